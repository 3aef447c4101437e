package store

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
)

// ReadEntriesJSONL reads echo entries from a JSONL file produced by the
// external memory-file parser, one entry object per line. Blank lines are
// skipped; a malformed line is an error since it indicates a broken export.
func ReadEntriesJSONL(path string) ([]*EchoEntry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open entries file: %w", err)
	}
	defer func() { _ = f.Close() }()
	return DecodeEntriesJSONL(f)
}

// DecodeEntriesJSONL decodes JSONL entries from r.
func DecodeEntriesJSONL(r io.Reader) ([]*EchoEntry, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	var entries []*EchoEntry
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		var e EchoEntry
		if err := json.Unmarshal([]byte(text), &e); err != nil {
			return nil, fmt.Errorf("line %d: decode entry: %w", line, err)
		}
		if e.ID == "" {
			return nil, fmt.Errorf("line %d: entry is missing an id", line)
		}
		entries = append(entries, &e)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read entries: %w", err)
	}
	return entries, nil
}
