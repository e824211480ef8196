package testsupport

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

// UpdateGoldenEnv rewrites golden files instead of comparing against them when set to 1.
const UpdateGoldenEnv = "PUBLISHING_UPDATE_GOLDEN"

// LoadFixture reads a testdata file.
func LoadFixture(path string) ([]byte, error) {
	return os.ReadFile(path)
}

// LoadGolden decodes a JSON golden file into v.
func LoadGolden(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, v)
}

// AssertGolden compares the indented JSON rendering of got with the golden file at path.
func AssertGolden(tb testing.TB, path string, got any) {
	tb.Helper()
	rendered, err := json.MarshalIndent(got, "", "  ")
	if err != nil {
		tb.Fatalf("marshal %s: %v", path, err)
	}
	rendered = append(rendered, '\n')

	if os.Getenv(UpdateGoldenEnv) == "1" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			tb.Fatalf("create golden dir: %v", err)
		}
		if err := os.WriteFile(path, rendered, 0o644); err != nil {
			tb.Fatalf("write golden %s: %v", path, err)
		}
		return
	}

	var want any
	if err := LoadGolden(path, &want); err != nil {
		tb.Fatalf("load golden %s: %v", path, err)
	}
	var have any
	if err := json.Unmarshal(rendered, &have); err != nil {
		tb.Fatalf("decode rendered %s: %v", path, err)
	}
	wantJSON, _ := json.Marshal(want)
	haveJSON, _ := json.Marshal(have)
	if !bytes.Equal(wantJSON, haveJSON) {
		tb.Fatalf("golden mismatch for %s\nwant: %s\n got: %s", path, wantJSON, rendered)
	}
}
