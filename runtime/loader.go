// Package runtime owns the connection registry, the orchestrator, and the
// supporting infrastructure they need at startup.
package runtime

import (
	"bufio"
	"bytes"
	"embed"
	"io/fs"
	"strings"

	"chat-core/errors"
)

//go:embed censored/*.txt
var censoredFS embed.FS

// DefaultWordlists loads the dictionaries shipped with the binary.
func DefaultWordlists() (*Wordlists, error) {
	return LoadWordlists(censoredFS, "censored")
}

// Wordlists is the parsed content of the embedded moderation dictionaries,
// with per-language metadata kept for startup logging.
type Wordlists struct {
	Words     []string
	Languages []string
}

// LoadWordlists reads every .txt file under dir in the embedded filesystem.
// File names double as language tags ("en.txt" -> "en"); lines are trimmed
// and deduplicated across files.
func LoadWordlists(fsys embed.FS, dir string) (*Wordlists, error) {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, err
	}

	var languages []string
	unique := make(map[string]struct{})

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".txt") {
			continue
		}
		languages = append(languages, strings.TrimSuffix(entry.Name(), ".txt"))

		data, err := fsys.ReadFile(dir + "/" + entry.Name())
		if err != nil {
			return nil, err
		}

		// Scanner handles \n and \r\n line endings alike
		scanner := bufio.NewScanner(bytes.NewReader(data))
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			if line != "" {
				unique[line] = struct{}{}
			}
		}
		if err := scanner.Err(); err != nil {
			return nil, err
		}
	}

	if len(unique) == 0 {
		return nil, errors.ErrEmptyWords
	}

	words := make([]string, 0, len(unique))
	for w := range unique {
		words = append(words, w)
	}
	return &Wordlists{Words: words, Languages: languages}, nil
}
