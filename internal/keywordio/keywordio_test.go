package keywordio

import (
	"os"
	"path/filepath"
	"testing"
)

func TestRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "keywords.jsonl")
	entries := []Entry{
		{Text: "obvious", Category: "characteristic_semantic", Context: "subtlety=5", NoduleID: "Nodule 001"},
		{Text: "ct", Category: "header"},
	}

	if err := SaveToJSONL(path, entries); err != nil {
		t.Fatalf("SaveToJSONL: %v", err)
	}

	got, err := LoadFromJSONL(path)
	if err != nil {
		t.Fatalf("LoadFromJSONL: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}
	if got[0] != entries[0] || got[1] != entries[1] {
		t.Errorf("entries = %+v", got)
	}
}

func TestLoadSkipsMalformedLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "keywords.jsonl")
	content := `{"text":"obvious","category":"characteristic_semantic"}
not json
{"text":"ct","category":"header"}
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	got, err := LoadFromJSONL(path)
	if err != nil {
		t.Fatalf("LoadFromJSONL: %v", err)
	}
	if len(got) != 2 {
		t.Errorf("len = %d, want 2", len(got))
	}
}

func TestLoadAllMalformedIsError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "keywords.jsonl")
	if err := os.WriteFile(path, []byte("nope\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadFromJSONL(path); err == nil {
		t.Fatal("expected error for a file with no valid entries")
	}
}
