package utils

import (
	"os"
	"path/filepath"
	"testing"
)

func TestResolveAndEnsureDBPath(t *testing.T) {
	t.Run("CreatesParentDirectory", func(t *testing.T) {
		target := filepath.Join(t.TempDir(), "nested", "dir", "diary.db")
		got, err := ResolveAndEnsureDBPath(target)
		if err != nil {
			t.Fatalf("ResolveAndEnsureDBPath() error = %v", err)
		}
		if got != target {
			t.Errorf("ResolveAndEnsureDBPath() = %q, want %q", got, target)
		}
		if info, err := os.Stat(filepath.Dir(target)); err != nil || !info.IsDir() {
			t.Errorf("parent directory was not created: %v", err)
		}
	})

	t.Run("MemoryDSNUntouched", func(t *testing.T) {
		got, err := ResolveAndEnsureDBPath(":memory:")
		if err != nil {
			t.Fatalf("ResolveAndEnsureDBPath() error = %v", err)
		}
		if got != ":memory:" {
			t.Errorf("ResolveAndEnsureDBPath() = %q, want :memory:", got)
		}
	})

	t.Run("HomeExpansion", func(t *testing.T) {
		home := t.TempDir()
		t.Setenv("HOME", home)
		got, err := ResolveAndEnsureDBPath("~/ft/diary.db")
		if err != nil {
			t.Fatalf("ResolveAndEnsureDBPath() error = %v", err)
		}
		if want := filepath.Join(home, "ft", "diary.db"); got != want {
			t.Errorf("ResolveAndEnsureDBPath() = %q, want %q", got, want)
		}
	})
}

func TestDefaultDBPath(t *testing.T) {
	if got := filepath.Base(DefaultDBPath()); got != dbFileName {
		t.Errorf("DefaultDBPath() base = %q, want %q", got, dbFileName)
	}
}
