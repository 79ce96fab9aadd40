package security

import (
	"os"
	"path/filepath"
	"testing"
)

func TestNewPathValidator(t *testing.T) {
	if _, err := NewPathValidator(""); err == nil {
		t.Error("Expected error for empty directory")
	}

	validator, err := NewPathValidator("relative/dir")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if !filepath.IsAbs(validator.Root()) {
		t.Errorf("Expected absolute root, got %s", validator.Root())
	}
}

func TestPathValidator_Resolve(t *testing.T) {
	root := t.TempDir()
	outside := t.TempDir()

	if err := os.Mkdir(filepath.Join(root, "sub"), 0o755); err != nil {
		t.Fatalf("Failed to create subdirectory: %v", err)
	}
	if err := os.WriteFile(filepath.Join(outside, "secret.pdf"), []byte("%PDF-1.4"), 0o644); err != nil {
		t.Fatalf("Failed to create file: %v", err)
	}
	if err := os.Symlink(filepath.Join(outside, "secret.pdf"), filepath.Join(root, "link.pdf")); err != nil {
		t.Skipf("symlinks not supported: %v", err)
	}

	validator, err := NewPathValidator(root)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	tests := []struct {
		name    string
		path    string
		want    string
		wantErr bool
	}{
		{name: "absolute inside", path: filepath.Join(root, "a.pdf"), want: filepath.Join(root, "a.pdf")},
		{name: "relative joins root", path: "sub/b.pdf", want: filepath.Join(root, "sub", "b.pdf")},
		{name: "nul bytes stripped", path: "sub/c\x00.pdf", want: filepath.Join(root, "sub", "c.pdf")},
		{name: "root itself", path: root, want: root},
		{name: "empty", path: "  ", wantErr: true},
		{name: "dot dot escape", path: "../x.pdf", wantErr: true},
		{name: "absolute outside", path: filepath.Join(outside, "secret.pdf"), wantErr: true},
		{name: "symlink escape", path: "link.pdf", wantErr: true},
		{name: "prefix sibling", path: root + "-evil/a.pdf", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := validator.Resolve(tt.path)
			if tt.wantErr {
				if err == nil {
					t.Errorf("Resolve(%q) = %q, expected error", tt.path, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("Resolve(%q) unexpected error: %v", tt.path, err)
			}
			if got != tt.want {
				t.Errorf("Resolve(%q) = %q, want %q", tt.path, got, tt.want)
			}
		})
	}
}

func TestPathValidator_ResolveDirectory(t *testing.T) {
	root := t.TempDir()
	if err := os.Mkdir(filepath.Join(root, "drawings"), 0o755); err != nil {
		t.Fatalf("Failed to create subdirectory: %v", err)
	}
	if err := os.WriteFile(filepath.Join(root, "file.pdf"), []byte("x"), 0o644); err != nil {
		t.Fatalf("Failed to create file: %v", err)
	}

	validator, err := NewPathValidator(root)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if got, err := validator.ResolveDirectory(""); err != nil || got != validator.Root() {
		t.Errorf("ResolveDirectory(\"\") = %q, %v; want root", got, err)
	}
	if got, err := validator.ResolveDirectory("drawings"); err != nil || got != filepath.Join(root, "drawings") {
		t.Errorf("ResolveDirectory(drawings) = %q, %v", got, err)
	}
	if _, err := validator.ResolveDirectory("file.pdf"); err == nil {
		t.Error("Expected error for a file")
	}
	if _, err := validator.ResolveDirectory("missing"); err == nil {
		t.Error("Expected error for a missing directory")
	}
	if _, err := validator.ResolveDirectory(".."); err == nil {
		t.Error("Expected error for a directory outside the root")
	}
}
