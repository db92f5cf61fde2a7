package loader

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestSupported(t *testing.T) {
	assert.True(t, Supported("notes.txt"))
	assert.True(t, Supported("notes.md"))
	assert.True(t, Supported("report.PDF"))
	assert.True(t, Supported("memo.docx"))
	assert.True(t, Supported("sheet.xlsx"))
	assert.False(t, Supported("image.png"))
	assert.False(t, Supported("archive.zip"))
	assert.False(t, Supported("noextension"))
}

func TestLoadText(t *testing.T) {
	path := writeFile(t, "notes.txt", "Taiwan's capital is Taipei.\n")

	docs, err := Load(path)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "Taiwan's capital is Taipei.\n", docs[0].Text)
	assert.Equal(t, "notes.txt", docs[0].Source)
	assert.Equal(t, 1, docs[0].Page)
}

func TestLoadEmptyText(t *testing.T) {
	path := writeFile(t, "empty.txt", "   \n\t  ")

	docs, err := Load(path)
	require.NoError(t, err)
	assert.Empty(t, docs)
}

func TestLoadMarkdownStripsFormatting(t *testing.T) {
	path := writeFile(t, "notes.md", "# Capitals\n\nTaiwan's capital is **Taipei**.\n\n- one\n- two\n")

	docs, err := Load(path)
	require.NoError(t, err)
	require.Len(t, docs, 1)

	assert.Contains(t, docs[0].Text, "Capitals")
	assert.Contains(t, docs[0].Text, "Taiwan's capital is")
	assert.Contains(t, docs[0].Text, "Taipei")
	assert.NotContains(t, docs[0].Text, "#")
	assert.NotContains(t, docs[0].Text, "**")
	assert.NotContains(t, docs[0].Text, "- one")
}

func TestLoadMarkdownEmpty(t *testing.T) {
	path := writeFile(t, "empty.md", "\n\n")

	docs, err := Load(path)
	require.NoError(t, err)
	assert.Empty(t, docs)
}

func TestLoadUnsupportedExtension(t *testing.T) {
	path := writeFile(t, "image.png", "\x89PNG")

	_, err := Load(path)
	assert.ErrorIs(t, err, ErrUnsupported)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.txt"))
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrUnsupported)
}

func TestExtractDocxText(t *testing.T) {
	xml := `<w:p><w:r><w:t>First paragraph.</w:t></w:r></w:p>` +
		`<w:p><w:r><w:t xml:space="preserve">Second </w:t></w:r><w:r><w:t>part.</w:t></w:r></w:p>`

	got := extractDocxText(xml)
	assert.Equal(t, "First paragraph.\nSecond part.\n", got)
}
