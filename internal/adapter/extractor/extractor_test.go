package extractor

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hsaeed3/yosemite/internal/domain"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func TestFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "note.txt")
	writeFile(t, path, "file contents")

	src, err := FromFile(path)
	require.NoError(t, err)
	require.Equal(t, path, src.URI)
	require.Equal(t, "file contents", src.Text)
	require.Equal(t, domain.String(path), src.Metadata["source"])
	require.Equal(t, domain.MetaTime, src.Metadata["modified"].Kind)
}

func TestFromFileMissing(t *testing.T) {
	_, err := FromFile(filepath.Join(t.TempDir(), "absent.txt"))
	require.Error(t, err)
}

func TestWalkIncludes(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "a.txt"), "a")
	writeFile(t, filepath.Join(root, "sub", "b.txt"), "b")
	writeFile(t, filepath.Join(root, "sub", "c.md"), "c")
	writeFile(t, filepath.Join(root, "skip.bin"), "x")

	files, err := Walk(root, []string{"**/*.txt", "**/*.md"})
	require.NoError(t, err)

	var names []string
	for _, f := range files {
		rel, err := filepath.Rel(root, f)
		require.NoError(t, err)
		names = append(names, filepath.ToSlash(rel))
	}
	require.ElementsMatch(t, []string{"a.txt", "sub/b.txt", "sub/c.md"}, names)
}

func TestWalkDefaultsToEverything(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "a.txt"), "a")
	writeFile(t, filepath.Join(root, "sub", "b.bin"), "b")

	files, err := Walk(root, nil)
	require.NoError(t, err)
	require.Len(t, files, 2)
}

func TestWalkBadPattern(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "a.txt"), "a")

	_, err := Walk(root, []string{"[unclosed"})
	require.Error(t, err)
}

func TestFromCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "docs.csv")
	writeFile(t, path, "id,title,body\n101,First,hello world\n102,Second,more text\n")

	sources, err := FromCSV(path, "id", "body")
	require.NoError(t, err)
	require.Len(t, sources, 2)

	require.Equal(t, path+"#101", sources[0].URI)
	require.Equal(t, "hello world", sources[0].Text)
	require.Equal(t, domain.String("First"), sources[0].Metadata["title"])
	require.Equal(t, domain.String("101"), sources[0].Metadata["id"])
	require.Equal(t, domain.String(path), sources[0].Metadata["source"])

	require.Equal(t, path+"#102", sources[1].URI)
	require.Equal(t, "more text", sources[1].Text)
}

func TestFromCSVRowNumberURIWithoutIDColumn(t *testing.T) {
	path := filepath.Join(t.TempDir(), "docs.csv")
	writeFile(t, path, "text,tag\nalpha,one\nbeta,two\n")

	sources, err := FromCSV(path, "", "text")
	require.NoError(t, err)
	require.Len(t, sources, 2)
	require.Equal(t, path+"#1", sources[0].URI)
	require.Equal(t, path+"#2", sources[1].URI)
	require.Equal(t, domain.String("two"), sources[1].Metadata["tag"])
}

func TestFromCSVMissingContentColumn(t *testing.T) {
	path := filepath.Join(t.TempDir(), "docs.csv")
	writeFile(t, path, "id,title\n1,x\n")

	_, err := FromCSV(path, "id", "body")
	require.Error(t, err)
	require.Contains(t, err.Error(), "body")
}
