// Operator tool: dumps persisted chat rows from a badger store as a
// table. Opens the store read-only so it can run next to a live server.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/dgraph-io/badger/v4"
	"github.com/gookit/color"
	"github.com/olekukonko/tablewriter"

	"chat-relay/domain"
)

func main() {
	dbPath := flag.String("db", "/tmp/chat-relay/badger", "Path to badger DB")
	prefix := flag.String("prefix", "msg:", "Prefix to scan (msg:, status:, presence:, notif:, room:, user:)")
	flag.Parse()

	db, err := openDB(*dbPath)
	if err != nil {
		log.Fatal("Error while opening Badger: ", err)
	}
	defer db.Close()

	color.Bold.Printf("Rows under %q\n\n", *prefix)

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Key", "Entity", "Detail", "Timestamp"})
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(true)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetTablePadding("\t")

	count := 0
	err = db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		prefixBytes := []byte(*prefix)
		for it.Seek(prefixBytes); it.ValidForPrefix(prefixBytes); it.Next() {
			item := it.Item()
			key := string(item.Key())

			// Secondary indexes hold raw ids, not JSON rows
			if strings.HasPrefix(key, "msgid:") || strings.HasPrefix(key, "username:") {
				continue
			}

			err := item.Value(func(v []byte) error {
				entity, detail, timestamp := describe(key, v)
				table.Append([]string{key, entity, detail, timestamp})
				count++
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		log.Fatal(err)
	}

	table.Render()
	fmt.Printf("\n%d row(s)\n", count)
}

// describe decodes a row according to its key family. A row that fails
// to decode is shown raw instead of aborting the scan.
func describe(key string, value []byte) (entity, detail, timestamp string) {
	switch {
	case strings.HasPrefix(key, "msg:"):
		var m domain.Message
		if err := json.Unmarshal(value, &m); err == nil {
			return shortID(m.ID.String()), preview(m.Content), m.CreatedAt.Format("15:04:05")
		}
	case strings.HasPrefix(key, "status:"):
		var s domain.DeliveryStatus
		if err := json.Unmarshal(value, &s); err == nil {
			return shortID(s.MessageID.String()), fmt.Sprintf("%s -> %s", s.UserID, s.State), s.UpdatedAt.Format("15:04:05")
		}
	case strings.HasPrefix(key, "presence:"):
		var p domain.PresenceRecord
		if err := json.Unmarshal(value, &p); err == nil {
			state := "offline"
			if p.Online {
				state = "online"
			}
			return p.UserID, state, p.LastSeen.Format("15:04:05")
		}
	case strings.HasPrefix(key, "notif:"):
		var n domain.Notification
		if err := json.Unmarshal(value, &n); err == nil {
			read := "unread"
			if n.IsRead {
				read = "read"
			}
			return shortID(n.ID.String()), fmt.Sprintf("[%s/%s] %s", n.Type, read, n.Title), n.CreatedAt.Format("15:04:05")
		}
	case strings.HasPrefix(key, "room:"):
		var r domain.Room
		if err := json.Unmarshal(value, &r); err == nil {
			return r.ID, fmt.Sprintf("[%s] %s", r.Type, r.Name), r.CreatedAt.Format("15:04:05")
		}
	case strings.HasPrefix(key, "member:"):
		var m domain.Membership
		if err := json.Unmarshal(value, &m); err == nil {
			return m.RoomID, fmt.Sprintf("%s (%s)", m.UserID, m.Role), m.JoinedAt.Format("15:04:05")
		}
	case strings.HasPrefix(key, "user:"):
		var u domain.User
		if err := json.Unmarshal(value, &u); err == nil {
			return shortID(u.ID), u.Username, u.CreatedAt.Format("15:04:05")
		}
	}
	return "?", preview(string(value)), ""
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func preview(s string) string {
	runes := []rune(s)
	if len(runes) > 60 {
		return string(runes[:60]) + "..."
	}
	return s
}

func openDB(path string) (*badger.DB, error) {
	opts := badger.DefaultOptions(path).
		WithReadOnly(true).
		WithLogger(nil).
		WithBypassLockGuard(true).
		WithValueLogFileSize(10 * 1024 * 1024)

	db, err := badger.Open(opts)
	if err != nil {
		// Badger refuses a read-only open when the value log needs a truncate
		if strings.Contains(err.Error(), "Log truncate required") {
			repairOpts := badger.DefaultOptions(path).
				WithLogger(nil).WithBypassLockGuard(true)

			db, err = badger.Open(repairOpts)
			if err != nil {
				return nil, fmt.Errorf("repair failed: %w", err)
			}

			db.Close()
			return badger.Open(opts)
		}
		return nil, err
	}
	return db, nil
}
