package internal

import (
	"embed"
	"encoding/json"
	"fmt"
	"html/template"
	"net/http"
	"strings"

	"github.com/dgraph-io/badger/v4"
)

//go:embed inspect.html
var templatesFS embed.FS

// InspectRow is one store entry rendered by the debug page.
type InspectRow struct {
	Key       string
	Namespace string
	EntityID  string
	Detail    string
}

type RowMapper func(key string, val []byte) InspectRow
type StatsProvider func() map[string]any

type PageData struct {
	Prefix string
	Items  []InspectRow
	Stats  map[string]any
}

// StartDebugServer serves a read-only HTML view over the Badger store plus
// the live engine counters. Development tool; never exposed in production.
func StartDebugServer(db *badger.DB, port int, mapper RowMapper, statsProvider StatsProvider) {
	mux := http.NewServeMux()
	tmpl := template.Must(template.ParseFS(templatesFS, "inspect.html"))

	if mapper == nil {
		mapper = DefaultMapper
	}

	mux.HandleFunc("/inspect", func(w http.ResponseWriter, r *http.Request) {
		prefix := r.URL.Query().Get("prefix")
		if prefix == "" {
			prefix = "msg:"
		}

		data := PageData{
			Prefix: prefix,
			Stats:  make(map[string]any),
		}
		if statsProvider != nil {
			data.Stats = statsProvider()
		}

		_ = db.View(func(txn *badger.Txn) error {
			it := txn.NewIterator(badger.DefaultIteratorOptions)
			defer it.Close()
			for it.Seek([]byte(prefix)); it.ValidForPrefix([]byte(prefix)); it.Next() {
				item := it.Item()
				_ = item.Value(func(val []byte) error {
					data.Items = append(data.Items, mapper(string(item.Key()), val))
					return nil
				})
			}
			return nil
		})

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_ = tmpl.Execute(w, data)
	})

	go func() {
		_ = http.ListenAndServe(fmt.Sprintf("0.0.0.0:%d", port), mux)
	}()
}

// DefaultMapper understands the store's key namespaces: msg:{len}:{room}:{seq},
// acct:{username}, email:{email}, grp:{room}. Values are JSON; the first
// 120 bytes are enough for a glance.
func DefaultMapper(key string, val []byte) InspectRow {
	row := InspectRow{Key: key, Namespace: "raw"}

	parts := strings.SplitN(key, ":", 2)
	if len(parts) == 2 {
		row.Namespace = parts[0]
		row.EntityID = parts[1]
		// Message keys carry a room-length segment before the room name.
		if row.Namespace == "msg" {
			if idx := strings.Index(row.EntityID, ":"); idx > 0 {
				row.EntityID = row.EntityID[idx+1:]
			}
		}
	}

	var pretty map[string]any
	if err := json.Unmarshal(val, &pretty); err == nil {
		compact, _ := json.Marshal(pretty)
		row.Detail = truncate(string(compact), 120)
	} else {
		row.Detail = truncate(string(val), 120)
	}
	return row
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
