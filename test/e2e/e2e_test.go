package e2e

import (
	"bytes"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/goccy/go-json"
)

var (
	docfsBin string
	projRoot string
)

type result struct {
	Index      int            `json:"index"`
	Type       string         `json:"type"`
	Collection string         `json:"collection"`
	ID         string         `json:"id"`
	Success    bool           `json:"success"`
	Deleted    *bool          `json:"deleted"`
	Doc        any            `json:"doc"`
	Docs       map[string]any `json:"docs"`
	Entries    []struct {
		ID   string `json:"id"`
		Data any    `json:"data"`
	} `json:"entries"`
	Error string `json:"error"`
}

func TestMain(m *testing.M) {
	// Build the CLI binary once for all tests
	tmpBinDir, err := os.MkdirTemp("", "docfs-bin")
	if err != nil {
		panic(err)
	}

	docfsBin = filepath.Join(tmpBinDir, "docfs")

	// Determine project root
	_, thisFile, _, ok := runtime.Caller(0)
	if !ok {
		panic("cannot determine current file path")
	}
	projRoot = filepath.Join(filepath.Dir(thisFile), "..", "..")
	src := filepath.Join(projRoot, "cmd", "main.go")

	cmd := exec.Command("go", "build", "-o", docfsBin, src)
	if out, err := cmd.CombinedOutput(); err != nil {
		panic(string(out))
	}

	code := m.Run()
	if err := os.RemoveAll(tmpBinDir); err != nil {
		panic(err)
	}
	os.Exit(code)
}

// run executes the binary and returns stdout, failing the test only on unexpected exit codes
func run(t *testing.T, wantExit int, args ...string) []byte {
	t.Helper()
	cmd := exec.Command(docfsBin, append([]string{"-v", "1"}, args...)...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	exit := 0
	if exitErr, ok := err.(*exec.ExitError); ok {
		exit = exitErr.ExitCode()
	} else if err != nil {
		t.Fatalf("failed to run docfs: %v", err)
	}
	if exit != wantExit {
		t.Fatalf("exit code %d, want %d\nstderr:\n%s", exit, wantExit, stderr.String())
	}
	return stdout.Bytes()
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write %s: %v", name, err)
	}
	return path
}

func decodeResults(t *testing.T, out []byte) []result {
	t.Helper()
	var results []result
	if err := json.Unmarshal(out, &results); err != nil {
		t.Fatalf("failed to decode output: %v\n%s", err, out)
	}
	return results
}

func TestE2EWriteFindDelete(t *testing.T) {
	dir := t.TempDir()
	base := filepath.Join(dir, "data")
	ops := writeFile(t, dir, "ops.json", `[
		{"type": "write", "collection": "users", "id": "u1", "data": {"name": "Alice", "age": 30}},
		{"type": "write", "collection": "users", "id": "u2", "data": {"name": "Bob", "age": 25}},
		{"type": "write", "collection": "users", "id": "u3", "data": {"name": "Carol", "age": 35}},
		{"type": "write", "collection": "users", "id": "u4", "data": {"name": "Dave", "age": 28}},
		{"type": "read", "collection": "users", "filter": {"age": {"$greaterThan": 28}}},
		{"type": "delete", "collection": "ghost", "id": "x"}
	]`)

	results := decodeResults(t, run(t, 0, "-b", base, "-o", ops))
	if len(results) != 6 {
		t.Fatalf("expected 6 results, got %d", len(results))
	}

	found := results[4].Entries
	if len(found) != 2 || found[0].ID != "u1" || found[1].ID != "u3" {
		t.Fatalf("unexpected find result: %+v", found)
	}
	if results[5].Deleted == nil || *results[5].Deleted {
		t.Fatalf("deleting a missing document must report false: %+v", results[5])
	}
	if _, err := os.Stat(filepath.Join(base, "ghost")); !os.IsNotExist(err) {
		t.Fatalf("delete of a missing document must not create its collection")
	}

	data, err := os.ReadFile(filepath.Join(base, "users", "u1.json"))
	if err != nil {
		t.Fatalf("failed to read stored document: %v", err)
	}
	expected := "{\n  \"age\": 30,\n  \"name\": \"Alice\"\n}\n"
	if string(data) != expected {
		t.Fatalf("content mismatch:\nexpected: %q\ngot:      %q", expected, string(data))
	}
}

func TestE2EYAMLBatchWithValidators(t *testing.T) {
	dir := t.TempDir()
	base := filepath.Join(dir, "data")
	validators := writeFile(t, dir, "validators.yaml", `users:
  type: required
  fields: [name]
`)
	ops := writeFile(t, dir, "ops.yaml", `
- type: write
  collection: users
  id: ok
  data:
    name: Alice
- type: write
  collection: users
  id: bad
  data:
    age: 3
`)

	results := decodeResults(t, run(t, 1, "-b", base, "-o", ops, "-validators", validators))
	if !results[0].Success {
		t.Fatalf("valid write failed: %+v", results[0])
	}
	if results[1].Success || results[1].Error == "" {
		t.Fatalf("invalid write must fail with an error: %+v", results[1])
	}
	if _, err := os.Stat(filepath.Join(base, "users", "bad.json")); !os.IsNotExist(err) {
		t.Fatalf("rejected document must not be written")
	}
}

func TestE2EConfigAndList(t *testing.T) {
	dir := t.TempDir()
	base := filepath.Join(dir, "data")
	cfg := writeFile(t, dir, "config.yaml", "base_path: "+base+"\n")
	ops := writeFile(t, dir, "ops.json", `[
		{"type": "insert", "collection": "zeta", "data": {}},
		{"type": "insert", "collection": "alpha", "data": {}}
	]`)

	run(t, 0, "-c", cfg, "-o", ops)

	var names []string
	if err := json.Unmarshal(run(t, 0, "-c", cfg, "-list"), &names); err != nil {
		t.Fatalf("failed to decode collections: %v", err)
	}
	if len(names) != 2 || names[0] != "alpha" || names[1] != "zeta" {
		t.Fatalf("unexpected collections: %v", names)
	}
}

func TestE2EMalformedBatchFile(t *testing.T) {
	dir := t.TempDir()
	ops := writeFile(t, dir, "ops.json", `{"type": "write"}`)

	cmd := exec.Command(docfsBin, "-b", filepath.Join(dir, "data"), "-o", ops)
	if err := cmd.Run(); err == nil {
		t.Fatalf("expected failure for a malformed batch file")
	}
}
