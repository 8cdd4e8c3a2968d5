package utils

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateOutputFileName(t *testing.T) {
	assert.Equal(t, "Model_Merged_Final.xlsx",
		GenerateOutputFileName("Model_Merged_Final.xlsx", nil, ".xlsx"))

	assert.Equal(t, "orders_merged.xlsx",
		GenerateOutputFileName("{original}_merged", map[string]string{"original": "orders"}, ".xlsx"))

	name := GenerateOutputFileName("merged_{uuid}", nil, ".xlsx")
	assert.Regexp(t, regexp.MustCompile(`^merged_[0-9a-f-]{36}\.xlsx$`), name)

	name = GenerateOutputFileName("{date}_{timestamp}.XLSX", nil, ".xlsx")
	assert.Regexp(t, regexp.MustCompile(`^\d{8}_\d{8}_\d{6}\.XLSX$`), name)
}

func TestGenerateOutputFileName_SanitizesParams(t *testing.T) {
	name := GenerateOutputFileName("{original}", map[string]string{"original": "../etc/passwd"}, ".xlsx")
	assert.NotContains(t, name, "/")
	assert.NotContains(t, name, "..")
}

func TestOriginalName(t *testing.T) {
	assert.Equal(t, "orders", OriginalName("/data/in/orders.xlsx"))
	assert.Equal(t, "stdin", OriginalName("-"))
	assert.Equal(t, "stdin", OriginalName(""))
}

func TestWriteFileAtomic(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.xlsx")

	require.NoError(t, WriteFileAtomic(path, func(w io.Writer) error {
		_, err := io.WriteString(w, "first")
		return err
	}))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "first", string(data))

	boom := errors.New("boom")
	err = WriteFileAtomic(path, func(w io.Writer) error {
		_, _ = io.WriteString(w, "partial")
		return boom
	})
	assert.ErrorIs(t, err, boom)

	data, err = os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "first", string(data), "a failed write keeps the previous file")

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp file is removed")
}

func TestEnsureDirectoryAndFileExists(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "a", "b")
	assert.False(t, FileExists(dir))
	require.NoError(t, EnsureDirectory(dir))
	assert.True(t, FileExists(dir))
}
