package main

import (
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, path string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte("<?php\n"), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func TestCollectPHPFiles(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "b.php"))
	writeFile(t, filepath.Join(dir, "src", "a.php"))
	writeFile(t, filepath.Join(dir, "src", "notes.txt"))
	writeFile(t, filepath.Join(dir, "vendor", "lib.php"))
	writeFile(t, filepath.Join(dir, ".git", "hook.php"))
	writeFile(t, filepath.Join(dir, "bin", "tool"))

	files, err := collectPHPFiles([]string{dir, filepath.Join(dir, "b.php"), filepath.Join(dir, "bin", "tool")})
	if err != nil {
		t.Fatalf("collectPHPFiles: %v", err)
	}
	want := []string{
		filepath.Join(dir, "b.php"),
		filepath.Join(dir, "bin", "tool"),
		filepath.Join(dir, "src", "a.php"),
	}
	if len(files) != len(want) {
		t.Fatalf("files = %v, want %v", files, want)
	}
	for i := range want {
		if files[i] != want[i] {
			t.Fatalf("files[%d] = %q, want %q", i, files[i], want[i])
		}
	}
}

func TestCollectPHPFilesMissingTarget(t *testing.T) {
	if _, err := collectPHPFiles([]string{filepath.Join(t.TempDir(), "missing.php")}); err == nil {
		t.Fatal("expected error for missing target")
	}
}

func TestDisplayPath(t *testing.T) {
	base := filepath.Join(string(filepath.Separator), "proj")
	cases := []struct {
		path string
		want string
	}{
		{filepath.Join(base, "src", "a.php"), "src/a.php"},
		{filepath.Join(string(filepath.Separator), "other", "b.php"), "/other/b.php"},
		{base, "/proj"},
	}
	for _, tc := range cases {
		if got := displayPath(tc.path, base); got != tc.want {
			t.Fatalf("displayPath(%q) = %q, want %q", tc.path, got, tc.want)
		}
	}
}
