// Package projection builds local read models from observed wire frames.
// Handles ordering and deduplication. Does not emit events or talk to
// the network itself.
package projection

import (
	"encoding/json"
	"sort"
	"time"
)

// Entry is one rendered message as a client sees it.
type Entry struct {
	ID        string
	SenderID  string
	Username  string
	Content   string
	CreatedAt time.Time
}

// Timeline folds chat_message frames into an ordered, deduplicated
// conversation view. Frames of any other type are ignored.
type Timeline struct {
	seen    map[string]struct{}
	entries []Entry
}

func NewTimeline() *Timeline {
	return &Timeline{seen: make(map[string]struct{})}
}

type chatFrame struct {
	Type    string `json:"type"`
	Message struct {
		ID      string `json:"id"`
		Content string `json:"content"`
		Sender  struct {
			ID       string `json:"id"`
			Username string `json:"username"`
		} `json:"sender"`
		CreatedAt time.Time `json:"created_at"`
	} `json:"message"`
}

// Consume folds one raw frame into the timeline. Non-message frames and
// duplicates are dropped silently; malformed frames report the error.
func (t *Timeline) Consume(frame []byte) error {
	var f chatFrame
	if err := json.Unmarshal(frame, &f); err != nil {
		return err
	}
	if f.Type != "chat_message" {
		return nil
	}
	if _, ok := t.seen[f.Message.ID]; ok {
		return nil
	}
	t.seen[f.Message.ID] = struct{}{}
	t.entries = append(t.entries, Entry{
		ID:        f.Message.ID,
		SenderID:  f.Message.Sender.ID,
		Username:  f.Message.Sender.Username,
		Content:   f.Message.Content,
		CreatedAt: f.Message.CreatedAt,
	})
	return nil
}

// Entries returns the conversation in creation order.
func (t *Timeline) Entries() []Entry {
	out := make([]Entry, len(t.entries))
	copy(out, t.entries)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

func (t *Timeline) Len() int {
	return len(t.entries)
}
