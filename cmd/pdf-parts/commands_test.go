package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/a3tai/mcp-pdf-parts/internal/pdf/pdftest"
)

func writeDrawings(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	files := map[string][]byte{
		"drawing.pdf": pdftest.Build(pdftest.Lines("PART NO: ABC-123, L=20mm W=4mm")),
		"other.pdf":   pdftest.Build(pdftest.Lines("ITEM XYZ-42")),
	}
	for name, data := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), data, 0o644))
	}
	return dir
}

func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	cmd := newRootCmd()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func TestRootCmd_Subcommands(t *testing.T) {
	root := newRootCmd()

	var names []string
	for _, c := range root.Commands() {
		names = append(names, c.Name())
	}
	assert.Subset(t, names, []string{"list", "search", "lines"})

	for _, flag := range []string{"tolerance", "ocr-dpi", "min-token-length", "file-workers", "log-level"} {
		assert.NotNil(t, root.PersistentFlags().Lookup(flag), flag)
	}
}

func TestSearchCmd_Flags(t *testing.T) {
	root := newRootCmd()
	search, _, err := root.Find([]string{"search"})
	require.NoError(t, err)

	for _, flag := range []string{"l", "w", "t", "csv", "output"} {
		assert.NotNil(t, search.Flags().Lookup(flag), flag)
	}
	assert.Equal(t, "o", search.Flags().Lookup("output").Shorthand)
}

func TestListCmd_RequiresArgs(t *testing.T) {
	_, _, err := execute(t, "list")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "requires at least 1 arg(s)")
}

func TestListCmd_Directory(t *testing.T) {
	dir := writeDrawings(t)

	stdout, _, err := execute(t, "list", dir)

	require.NoError(t, err)
	assert.Contains(t, stdout, "Found 2 part number(s) in 2 file(s)")
	assert.Contains(t, stdout, "ABC-123\tdrawing.pdf")
	assert.Contains(t, stdout, "XYZ-42\tother.pdf")
}

func TestListCmd_CSVToDirectory(t *testing.T) {
	dir := writeDrawings(t)
	outDir := t.TempDir()

	_, stderr, err := execute(t, "list", "--csv", "-o", outDir, filepath.Join(dir, "drawing.pdf"))
	require.NoError(t, err)
	assert.Contains(t, stderr, "parts_list.csv")

	data, err := os.ReadFile(filepath.Join(outDir, "parts_list.csv"))
	require.NoError(t, err)
	assert.Equal(t, "part_number,file_name\nABC-123,drawing.pdf\n", string(data))
}

func TestSearchCmd(t *testing.T) {
	dir := writeDrawings(t)

	stdout, _, err := execute(t, "search", "--l", "20", "--w", "4", dir)
	require.NoError(t, err)
	assert.Contains(t, stdout, "Found 1 matching line record(s)")
	assert.Contains(t, stdout, "ABC-123\tdrawing.pdf")

	stdout, _, err = execute(t, "search", "--l", "20", "--tolerance", "0.5", "--w", "4.4", dir)
	require.NoError(t, err)
	assert.Contains(t, stdout, "Found 1 matching line record(s)")
}

func TestSearchCmd_InvalidCriteria(t *testing.T) {
	dir := writeDrawings(t)

	_, _, err := execute(t, "search", "--l", "abc", dir)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "is not a number")
}

func TestSearchCmd_InvalidFlags(t *testing.T) {
	dir := writeDrawings(t)

	_, _, err := execute(t, "search", "--tolerance", "-1", "--l", "20", dir)

	assert.Error(t, err)
}

func TestLinesCmd_CSVFile(t *testing.T) {
	dir := writeDrawings(t)
	target := filepath.Join(t.TempDir(), "lines.csv")

	_, _, err := execute(t, "lines", "--csv", "--output", target, filepath.Join(dir, "other.pdf"))
	require.NoError(t, err)

	data, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Equal(t, "\ufefffile_name,page,line_no,text\nother.pdf,1,1,ITEM XYZ-42\n", string(data))
}

func TestReadInputs_Missing(t *testing.T) {
	_, _, err := execute(t, "list", filepath.Join(t.TempDir(), "missing.pdf"))

	require.Error(t, err)
	assert.Contains(t, err.Error(), "cannot access")
}

func TestReadInputs_EmptyDirectory(t *testing.T) {
	_, _, err := execute(t, "list", t.TempDir())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "no PDF files found")
}

