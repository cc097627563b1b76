package internal

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/dgraph-io/badger/v4"

	"chat-relay/observability"
)

var storePrefixes = map[string]string{
	"messages":      "msg:",
	"statuses":      "status:",
	"presence":      "presence:",
	"notifications": "notif:",
	"rooms":         "room:",
	"members":       "member:",
	"users":         "user:",
}

// StartDebugServer exposes live metrics and store row counts as JSON on
// a side port. Not meant to face the public network.
func StartDebugServer(log *slog.Logger, port int, monitoring *observability.MonitoringManager, db *badger.DB) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /debug/stats", func(w http.ResponseWriter, _ *http.Request) {
		payload := map[string]any{
			"stats":      monitoring.GetLatest(),
			"store_rows": countByPrefix(db),
		}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(payload); err != nil {
			log.Warn("Failed to encode debug stats", "err", err)
		}
	})

	go func() {
		addr := fmt.Sprintf("localhost:%d", port)
		log.Info("Debug server listening", "addr", addr)
		if err := http.ListenAndServe(addr, mux); err != nil {
			log.Warn("Debug server stopped", "err", err)
		}
	}()
}

func countByPrefix(db *badger.DB) map[string]int {
	counts := make(map[string]int, len(storePrefixes))
	_ = db.View(func(txn *badger.Txn) error {
		for name, prefix := range storePrefixes {
			opts := badger.DefaultIteratorOptions
			opts.PrefetchValues = false
			opts.Prefix = []byte(prefix)
			it := txn.NewIterator(opts)
			count := 0
			for it.Rewind(); it.ValidForPrefix([]byte(prefix)); it.Next() {
				count++
			}
			it.Close()
			counts[name] = count
		}
		return nil
	})
	return counts
}
