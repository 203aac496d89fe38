package storage

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/starford/mdstrip/internal/apperr"
)

func tempRoot(t *testing.T) *FS {
	t.Helper()
	dir := t.TempDir()
	fs, err := NewFS(dir)
	if err != nil {
		t.Fatalf("NewFS: %v", err)
	}
	return fs
}

func TestWriteAndRead(t *testing.T) {
	s := tempRoot(t)
	content := []byte("# Hello\n{{Glossary(\"HTML\")}}\n")
	if err := s.Write("page.md", content); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, err := s.Read("page.md")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if string(got) != string(content) {
		t.Errorf("content mismatch: got %q", got)
	}
}

func TestWriteCreatesSubdirs(t *testing.T) {
	s := tempRoot(t)
	if err := s.Write("a/b/c.md", []byte("deep")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, err := s.Read("a/b/c.md")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if string(got) != "deep" {
		t.Errorf("content = %q", got)
	}
}

func TestWriteKeepsMode(t *testing.T) {
	s := tempRoot(t)
	abs := filepath.Join(s.Root(), "ro.md")
	if err := os.WriteFile(abs, []byte("x"), 0o600); err != nil {
		t.Fatal(err)
	}
	if err := s.Write("ro.md", []byte("y")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Errorf("mode = %v, want 0600", info.Mode().Perm())
	}
}

func TestExists(t *testing.T) {
	s := tempRoot(t)
	_ = s.Write("sub/x.md", []byte("x"))
	if !s.Exists("sub/x.md") {
		t.Error("expected sub/x.md to exist")
	}
	if s.Exists("sub") {
		t.Error("directory must not count as a file")
	}
	if s.Exists("missing.md") {
		t.Error("missing.md should not exist")
	}
	if s.Exists("../x.md") {
		t.Error("path outside root should not exist")
	}
}

func TestList(t *testing.T) {
	s := tempRoot(t)
	_ = s.Write("a.md", []byte("a"))
	_ = s.Write("sub/b.md", []byte("b"))
	_ = s.Write("readme.txt", []byte("not md"))
	_ = s.Write(".git/c.md", []byte("hidden"))

	items, err := s.List("")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("len = %d, want 2", len(items))
	}
	paths := map[string]bool{}
	for _, it := range items {
		paths[it.Path] = true
		if it.Checksum == "" {
			t.Errorf("%s: empty checksum", it.Path)
		}
	}
	if !paths["a.md"] || !paths["sub/b.md"] {
		t.Errorf("unexpected paths: %v", paths)
	}
}

func TestTraversalBlocked(t *testing.T) {
	s := tempRoot(t)

	cases := []string{
		"../../etc/passwd",
		"../outside.md",
		"/etc/shadow",
	}
	for _, p := range cases {
		if _, err := s.Read(p); !errors.Is(err, apperr.ErrOutsideRoot) {
			t.Errorf("Read %q: err = %v, want ErrOutsideRoot", p, err)
		}
		if err := s.Write(p, []byte("x")); !errors.Is(err, apperr.ErrOutsideRoot) {
			t.Errorf("Write %q: err = %v, want ErrOutsideRoot", p, err)
		}
	}
}

func TestRel(t *testing.T) {
	s := tempRoot(t)
	got, err := s.Rel(filepath.Join(s.Root(), "learn", "a.md"))
	if err != nil {
		t.Fatalf("Rel: %v", err)
	}
	if got != "learn/a.md" {
		t.Errorf("Rel = %q", got)
	}
	if _, err := s.Rel(filepath.Dir(s.Root())); !errors.Is(err, apperr.ErrOutsideRoot) {
		t.Errorf("expected ErrOutsideRoot, got %v", err)
	}
}

func TestAtomicWriteNoLeftovers(t *testing.T) {
	s := tempRoot(t)
	_ = s.Write("atomic.md", []byte("original content"))

	updated := []byte("updated content")
	if err := s.Write("atomic.md", updated); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, _ := s.Read("atomic.md")
	if string(got) != string(updated) {
		t.Errorf("expected updated content, got %q", got)
	}

	matches, _ := filepath.Glob(filepath.Join(s.root, ".mdstrip-tmp-*"))
	if len(matches) != 0 {
		t.Errorf("leftover temp files: %v", matches)
	}
}

func TestNewFS_NonExistentDir(t *testing.T) {
	_, err := NewFS(filepath.Join(t.TempDir(), "does-not-exist"))
	if err == nil {
		t.Error("expected error for non-existent dir")
	}
}

func TestNewFS_FileNotDir(t *testing.T) {
	f, _ := os.CreateTemp("", "mdstrip-test-*")
	_ = f.Close()
	defer os.Remove(f.Name())
	_, err := NewFS(f.Name())
	if err == nil {
		t.Error("expected error when root is a file")
	}
}

func TestResources(t *testing.T) {
	s := tempRoot(t)
	_ = s.Write("resources/glossary/HTML.md", []byte("# HTML"))
	r := NewResources(s, "resources")

	if !r.Exists("glossary", "HTML") {
		t.Error("HTML should exist")
	}
	if r.Exists("glossary", "html") {
		t.Error("lookup should be case-sensitive")
	}
	if r.Exists("api", "HTML") {
		t.Error("category api should not match")
	}
	for _, slug := range []string{"", "..", "../glossary/HTML", `a\b`} {
		if r.Exists("glossary", slug) {
			t.Errorf("slug %q should not exist", slug)
		}
	}
}
