// Package keywordio reads and writes keyword corpora as JSONL, one keyword
// per line. It is the interchange format between the analyze and search
// binaries.
package keywordio

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strings"
)

// Entry is one serialized keyword.
type Entry struct {
	Text       string `json:"text"`
	Category   string `json:"category"`
	Context    string `json:"context,omitempty"`
	SourceFile string `json:"source_file,omitempty"`
	NoduleID   string `json:"nodule_id,omitempty"`
}

// LoadFromJSONL loads keyword entries from a JSONL file. Malformed lines are
// skipped with a warning; a file yielding no valid entries is an error.
func LoadFromJSONL(path string) ([]Entry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file %s: %w", path, err)
	}

	var entries []Entry
	lines := strings.Split(string(data), "\n")

	for i, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		var e Entry
		if err := json.Unmarshal([]byte(line), &e); err != nil {
			log.Printf("Warning: skipping malformed JSON at line %d in %s: %v", i+1, path, err)
			continue
		}
		entries = append(entries, e)
	}

	if len(entries) == 0 {
		return nil, fmt.Errorf("no valid entries found in %s", path)
	}

	return entries, nil
}

// SaveToJSONL writes entries as JSONL.
func SaveToJSONL(path string, entries []Entry) error {
	var b strings.Builder
	for _, e := range entries {
		line, err := json.Marshal(e)
		if err != nil {
			return err
		}
		b.Write(line)
		b.WriteByte('\n')
	}
	return os.WriteFile(path, []byte(b.String()), 0o644)
}
