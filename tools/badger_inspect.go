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
)

// Dumps the chat store to stdout. Namespaces: msg:{len}:{room}:{seq} for
// messages, acct:{username} and email:{email} for accounts, grp:{room}
// for groups.
func main() {
	dbPath := flag.String("db", "/tmp/chat-core/badger", "Path to badger DB")
	prefix := flag.String("prefix", "msg:", "Prefix to scan")
	flag.Parse()

	db, err := badger.Open(badger.DefaultOptions(*dbPath).
		WithReadOnly(true).
		WithLoggingLevel(badger.ERROR))
	if err != nil {
		log.Fatal("Error while opening Badger: ", err)
	}
	defer db.Close()

	header := fmt.Sprintf(" Store dump — prefix %q ", *prefix)
	fmt.Println(color.New(color.BgBlack, color.FgGreen).Render(header))

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Key", "Namespace", "Entity", "Detail"})
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

			// Internal sequence keys carry no JSON payload
			if strings.HasPrefix(key, "seq:") {
				continue
			}

			err := item.Value(func(v []byte) error {
				table.Append([]string{key, namespaceOf(key), entityOf(key), detailOf(v)})
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
		log.Fatal("Error while scanning: ", err)
	}

	table.Render()
	fmt.Printf("\n%d entries\n", count)
}

func namespaceOf(key string) string {
	if idx := strings.Index(key, ":"); idx > 0 {
		return key[:idx]
	}
	return "raw"
}

func entityOf(key string) string {
	rest := key
	if idx := strings.Index(key, ":"); idx > 0 {
		rest = key[idx+1:]
	}
	// Message keys carry a room-length segment before the room name.
	if strings.HasPrefix(key, "msg:") {
		if idx := strings.Index(rest, ":"); idx > 0 {
			rest = rest[idx+1:]
		}
	}
	return rest
}

// detailOf compacts the JSON value to one readable line.
func detailOf(v []byte) string {
	var parsed map[string]any
	if err := json.Unmarshal(v, &parsed); err != nil {
		return fmt.Sprintf("<%d raw bytes>", len(v))
	}
	compact, err := json.Marshal(parsed)
	if err != nil {
		return fmt.Sprintf("<%d raw bytes>", len(v))
	}
	detail := string(compact)
	if len(detail) > 100 {
		detail = detail[:100] + "..."
	}
	return detail
}
