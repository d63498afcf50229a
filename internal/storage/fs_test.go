package storage

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func tempStore(t *testing.T) *FS {
	t.Helper()
	dir := t.TempDir()
	fs, err := NewFS(dir)
	if err != nil {
		t.Fatalf("NewFS: %v", err)
	}
	return fs
}

func TestFS_FileNameRoundTrip(t *testing.T) {
	keys := []string{"/root/", "/root/_notebooks", "/root/Math/_notebooks/Calc 1/transcript", "/root/50%/"}
	for _, k := range keys {
		name := FileName(k)
		if strings.Contains(name, "/") {
			t.Errorf("file name %q contains a separator", name)
		}
		got, ok := KeyFromFileName(name)
		if !ok || got != k {
			t.Errorf("round trip %q -> %q -> %q", k, name, got)
		}
	}
}

func TestFS_IgnoresForeignFiles(t *testing.T) {
	s := tempStore(t)
	ctx := context.Background()
	_ = os.WriteFile(filepath.Join(s.Root(), "README.txt"), []byte("x"), 0o644)
	_ = os.WriteFile(filepath.Join(s.Root(), fsTempPrefix+"123"+fsExt), []byte("x"), 0o644)
	_ = s.Set(ctx, "/root/", `["a"]`)

	keys, err := s.Keys(ctx, "")
	if err != nil {
		t.Fatalf("Keys: %v", err)
	}
	if len(keys) != 1 || keys[0] != "/root/" {
		t.Errorf("keys = %v", keys)
	}
}

func TestFS_AtomicWriteNoLeftovers(t *testing.T) {
	s := tempStore(t)
	ctx := context.Background()
	_ = s.Set(ctx, "/root/n/transcript", "original")
	if err := s.Set(ctx, "/root/n/transcript", "updated"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	got, _, _ := s.Get(ctx, "/root/n/transcript")
	if got != "updated" {
		t.Errorf("expected updated content, got %q", got)
	}
	matches, _ := filepath.Glob(filepath.Join(s.Root(), fsTempPrefix+"*"))
	if len(matches) != 0 {
		t.Errorf("leftover temp files: %v", matches)
	}
}

func TestFS_KeyTooLong(t *testing.T) {
	s := tempStore(t)
	long := "/root/" + strings.Repeat("x", 300) + "/"
	if err := s.Set(context.Background(), long, "[]"); err == nil {
		t.Error("expected error for oversized key")
	}
}

func TestNewFS_CreatesDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "data")
	if _, err := NewFS(dir); err != nil {
		t.Fatalf("NewFS: %v", err)
	}
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		t.Errorf("data dir not created: %v", err)
	}
}

func TestNewFS_FileNotDir(t *testing.T) {
	f, _ := os.CreateTemp("", "studyvault-test-*")
	_ = f.Close()
	defer os.Remove(f.Name())
	if _, err := NewFS(f.Name()); err == nil {
		t.Error("expected error when root is a file")
	}
}
