package output_test

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/selimozcann/RedirectCounter/internal/model"
	"github.com/selimozcann/RedirectCounter/internal/output"
)

func sampleOutput() model.RunOutput {
	return model.RunOutput{
		"/b": {PathsCounts: map[string]int{"/z": 1}, TotalCount: 1},
		"/a": {PathsCounts: map[string]int{"/y": 2, "/x": 3}, TotalCount: 5},
	}
}

func TestEncodeJSONIndentedSorted(t *testing.T) {
	var buf bytes.Buffer
	if err := output.EncodeJSON(&buf, sampleOutput()); err != nil {
		t.Fatalf("EncodeJSON error: %v", err)
	}
	want := `{
  "/a": {
    "paths_counts": {
      "/x": 3,
      "/y": 2
    },
    "total_count": 5
  },
  "/b": {
    "paths_counts": {
      "/z": 1
    },
    "total_count": 1
  }
}
`
	if buf.String() != want {
		t.Fatalf("unexpected encoding:\n%s", buf.String())
	}
}

func TestEncodeJSONNoHTMLEscape(t *testing.T) {
	var buf bytes.Buffer
	if err := output.EncodeJSON(&buf, map[string]int{"/a?x=1&y=2": 1}); err != nil {
		t.Fatalf("EncodeJSON error: %v", err)
	}
	if !bytes.Contains(buf.Bytes(), []byte("&y=2")) {
		t.Fatalf("expected ampersand to be kept verbatim: %s", buf.String())
	}
}

func TestWriteJSONFileOverwritesAtomically(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "c.json")

	if err := output.WriteJSONFile(path, map[string]int{"old": 1}); err != nil {
		t.Fatalf("first write: %v", err)
	}
	if err := output.WriteJSONFile(path, sampleOutput()); err != nil {
		t.Fatalf("second write: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var got model.RunOutput
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if _, ok := got["old"]; ok {
		t.Fatalf("expected file to be overwritten")
	}
	if got["/a"].TotalCount != 5 {
		t.Fatalf("unexpected total: %d", got["/a"].TotalCount)
	}

	entries, err := os.ReadDir(filepath.Dir(path))
	if err != nil {
		t.Fatalf("readdir: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected no leftover temp files, got %d entries", len(entries))
	}
}

func TestWriteFileFailsOnDirectoryTarget(t *testing.T) {
	dir := t.TempDir()
	if err := output.WriteFile(dir, []byte("{}")); err == nil {
		t.Fatalf("expected error renaming over a directory")
	}
}

func TestTimestampedShape(t *testing.T) {
	now := time.Date(2024, 1, 2, 3, 4, 5, 0, time.FixedZone("X", 3600))
	ts := output.Timestamped(sampleOutput(), now)
	if ts.Timestamp != "2024-01-02T02:04:05Z" {
		t.Fatalf("unexpected timestamp %q", ts.Timestamp)
	}
	if len(ts.Data) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(ts.Data))
	}
	if _, ok := ts.Data[0]["/a"]; !ok {
		t.Fatalf("expected first entry to be /a")
	}
	if len(ts.Data[1]) != 1 {
		t.Fatalf("expected single-entry objects")
	}
}

func TestParseShape(t *testing.T) {
	if _, err := output.ParseShape("flat"); err != nil {
		t.Fatalf("flat: %v", err)
	}
	if _, err := output.ParseShape("timestamped"); err != nil {
		t.Fatalf("timestamped: %v", err)
	}
	if _, err := output.ParseShape("yaml"); err == nil {
		t.Fatalf("expected error for unknown shape")
	}
}
