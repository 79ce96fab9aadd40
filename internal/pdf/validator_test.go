package pdf

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pdferrors "github.com/a3tai/mcp-pdf-parts/internal/pdf/errors"
)

func TestValidator_ValidateBytes(t *testing.T) {
	validator := NewValidator(64)

	tests := []struct {
		name     string
		data     []byte
		wantErr  bool
		wantType pdferrors.ErrorType
	}{
		{"valid header", []byte("%PDF-1.7\n..."), false, pdferrors.ErrorTypeUnknown},
		{"header after junk", append([]byte("\x00\x00junk"), []byte("%PDF-1.4")...), false, pdferrors.ErrorTypeUnknown},
		{"empty", []byte{}, true, pdferrors.ErrorTypeCorruptDocument},
		{"no header", []byte("GIF89a"), true, pdferrors.ErrorTypeCorruptDocument},
		{"too large", make([]byte, 65), true, pdferrors.ErrorTypeFileTooLarge},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validator.ValidateBytes("in.pdf", tt.data)
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Equal(t, tt.wantType, pdferrors.TypeOf(err))
		})
	}
}

func TestValidator_ValidateFileInfo(t *testing.T) {
	validator := NewValidator(1024 * 1024)
	tempDir := t.TempDir()

	files := map[string][]byte{
		"valid.pdf":    []byte("%PDF-1.4"),
		"empty.pdf":    {},
		"large.pdf":    make([]byte, 2*1024*1024),
		"document.txt": []byte("text"),
	}
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(tempDir, name), content, 0o644))
	}

	tests := []struct {
		name      string
		path      string
		expectErr bool
	}{
		{"valid", filepath.Join(tempDir, "valid.pdf"), false},
		{"empty", filepath.Join(tempDir, "empty.pdf"), true},
		{"large", filepath.Join(tempDir, "large.pdf"), true},
		{"wrong extension", filepath.Join(tempDir, "document.txt"), true},
		{"directory", tempDir, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			info, err := os.Stat(tt.path)
			require.NoError(t, err)

			err = validator.ValidateFileInfo(tt.path, info)
			if tt.expectErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestIsPDFName(t *testing.T) {
	assert.True(t, IsPDFName("a.pdf"))
	assert.True(t, IsPDFName("A.PDF"))
	assert.False(t, IsPDFName("a.pdf.txt"))
}
