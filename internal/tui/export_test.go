package tui

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Iron-Ham/prefixview/internal/bucket"
)

func TestExportFileName(t *testing.T) {
	tests := []struct {
		key  string
		cat  bucket.Category
		want string
	}{
		{"web", bucket.CategoryMessages, "prefixview-web-messages.log"},
		{"@scope/pkg:build", bucket.CategoryStderr, "prefixview-_scope_pkg_build-stderr.log"},
		{"", bucket.CategoryUnparsable, "prefixview-ungrouped-unparsable.log"},
		{"v1.2_rc-3", bucket.CategoryMessages, "prefixview-v1.2_rc-3-messages.log"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := ExportFileName(tt.key, tt.cat); got != tt.want {
				t.Errorf("ExportFileName(%q, %v) = %q, want %q", tt.key, tt.cat, got, tt.want)
			}
		})
	}
}

func TestWriteExport_CreatesDirectory(t *testing.T) {
	src := newFakeSource(10)
	src.emit("", "loose")
	dir := filepath.Join(t.TempDir(), "nested", "exports")

	path, n, err := WriteExport(dir, bucket.UngroupedKey, bucket.CategoryUnparsable, src.store)
	if err != nil {
		t.Fatalf("WriteExport() error = %v", err)
	}
	if n != 1 {
		t.Errorf("lines = %d, want 1", n)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "loose\n" {
		t.Errorf("content = %q", data)
	}
}

func TestWriteExport_EmptyBucket(t *testing.T) {
	src := newFakeSource(10)
	path, n, err := WriteExport(t.TempDir(), "missing", bucket.CategoryMessages, src.store)
	if err != nil {
		t.Fatalf("WriteExport() error = %v", err)
	}
	if n != 0 {
		t.Errorf("lines = %d, want 0", n)
	}
	if info, err := os.Stat(path); err != nil || info.Size() != 0 {
		t.Errorf("expected an empty file, stat = %v, %v", info, err)
	}
}

func TestOpenInEditor_Empty(t *testing.T) {
	if cmd := openInEditor("  ", "/tmp/x.log"); cmd != nil {
		t.Error("blank editor should not return a command")
	}
}

func TestWriteExport_NamesBucketOnFailure(t *testing.T) {
	src := newFakeSource(10)
	dir := t.TempDir()
	// A directory where the export file should go makes the create fail.
	blocker := filepath.Join(dir, ExportFileName("web", bucket.CategoryMessages))
	if err := os.Mkdir(blocker, 0o755); err != nil {
		t.Fatal(err)
	}

	_, _, err := WriteExport(dir, "web", bucket.CategoryMessages, src.store)
	if err == nil {
		t.Fatal("WriteExport() error = nil, want failure")
	}
	if !strings.Contains(err.Error(), "creating export file for web") {
		t.Errorf("error = %q, want it to name the bucket", err)
	}
}
