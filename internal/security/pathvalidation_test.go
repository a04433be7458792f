package security

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidatePathWithinDirectory(t *testing.T) {
	tmpDir := t.TempDir()
	safeDir := filepath.Join(tmpDir, "safe")
	unsafeDir := filepath.Join(tmpDir, "unsafe")
	require.NoError(t, os.MkdirAll(safeDir, 0o755))
	require.NoError(t, os.MkdirAll(unsafeDir, 0o755))
	evil := filepath.Join(safeDir, "evil-symlink")
	require.NoError(t, os.Symlink(unsafeDir, evil))

	tests := []struct {
		name      string
		filePath  string
		safeDir   string
		wantError bool
	}{
		{"file in directory", filepath.Join(safeDir, "summary.json"), safeDir, false},
		{"not yet created subdirectory", filepath.Join(safeDir, "2024", "03", "summary.json"), safeDir, false},
		{"directory itself", safeDir, safeDir, false},
		{"dot-dot escape", filepath.Join(safeDir, "..", "unsafe", "summary.json"), safeDir, true},
		{"relative escape", "../../../etc/passwd", safeDir, true},
		{"absolute elsewhere", "/etc/passwd", safeDir, true},
		{"through symlinked directory", filepath.Join(evil, "summary.json"), safeDir, true},
		{"symlink itself", evil, safeDir, true},
		{"through symlink under missing dirs", filepath.Join(evil, "a", "b", "summary.json"), safeDir, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePathWithinDirectory(tt.filePath, tt.safeDir)
			if tt.wantError {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidatePathWithinAllowedDirs(t *testing.T) {
	a, b := t.TempDir(), t.TempDir()

	assert.NoError(t, ValidatePathWithinAllowedDirs(filepath.Join(b, "x.json"), []string{a, b}))
	err := ValidatePathWithinAllowedDirs("/etc/passwd", []string{a, b})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "allowed directories")
	assert.Error(t, ValidatePathWithinAllowedDirs(filepath.Join(a, "x.json"), nil))
}

func TestValidateExportPath(t *testing.T) {
	assert.NoError(t, ValidateExportPath(filepath.Join(os.TempDir(), "plank", "summary.json")))
	assert.NoError(t, ValidateExportPath("summaries/summary.json"))
	assert.Error(t, ValidateExportPath("/etc/plank/summary.json"))
}

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"3f2a9c1e-7b4d-4a8e-9c0f-1d2e3f4a5b6c", "3f2a9c1e-7b4d-4a8e-9c0f-1d2e3f4a5b6c"},
		{"../../etc/passwd", "etc_passwd"},
		{"morning plank!!", "morning_plank"},
		{"  ", "unknown"},
		{"", "unknown"},
		{"ça va", "a_va"},
		{"a/b\\c", "a_b_c"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, SanitizeFilename(tt.in))
		})
	}

	long := SanitizeFilename(strings.Repeat("a", 300))
	assert.Len(t, long, 128)
}
