package stages

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode"
	"unicode/utf8"
)

// minQueryRunes is the length a query must exceed to be paired with
// instructions.
const minQueryRunes = 20

// readLines returns the trimmed, non-blank lines of path.
func readLines(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var out []string
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for sc.Scan() {
		if line := strings.TrimSpace(sc.Text()); line != "" {
			out = append(out, line)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return out, nil
}

// queryLine is one record of a conversation dump. The query is the first
// dialog turn, or the query field when there are no dialogs.
type queryLine struct {
	Dialogs []struct {
		Content string `json:"content"`
	} `json:"dialogs"`
	Query string `json:"query"`
}

// loadQueries reads the query pool. A .jsonl file holds one conversation
// per line, anything else one query per line. Queries that are too short
// or contain Han characters are skipped.
func loadQueries(path string) ([]string, error) {
	lines, err := readLines(path)
	if err != nil {
		return nil, err
	}

	structured := strings.EqualFold(filepath.Ext(path), ".jsonl")
	out := make([]string, 0, len(lines))
	for i, line := range lines {
		q := line
		if structured {
			var rec queryLine
			if err := json.Unmarshal([]byte(line), &rec); err != nil {
				return nil, fmt.Errorf("%s line %d: %w", path, i+1, err)
			}
			q = rec.Query
			if len(rec.Dialogs) > 0 {
				q = rec.Dialogs[0].Content
			}
		}
		if usableQuery(q) {
			out = append(out, q)
		}
	}
	return out, nil
}

func usableQuery(q string) bool {
	if utf8.RuneCountInString(q) <= minQueryRunes {
		return false
	}
	for _, r := range q {
		if unicode.Is(unicode.Han, r) {
			return false
		}
	}
	return true
}
