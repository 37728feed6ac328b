package results

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/zip"
	"github.com/klauspost/compress/zstd"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type entry struct {
	name    string
	content string
	method  uint16
}

func writeArchive(t *testing.T, entries ...entry) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "SearchBot_results_for__test.txt.zip")
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	w := zip.NewWriter(f)
	w.RegisterCompressor(zstd.ZipMethodWinZip, zstd.ZipCompressor())
	for _, e := range entries {
		method := e.method
		if method == 0 {
			method = zip.Deflate
		}
		fw, err := w.CreateHeader(&zip.FileHeader{Name: e.name, Method: method})
		require.NoError(t, err)
		_, err = fw.Write([]byte(e.content))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return path
}

const listing = "Search results from SearchBot v3.00.07 by Ook\r\n" +
	"Searched 6 bookshelves for: La promesse de l'aube\r\n" +
	"\r\n" +
	"!Oatmeal Romain Gary - La promesse de l'aube.epub  ::INFO:: 1.2MB\r\n" +
	"!Ook Romain Gary - La promesse de l'aube (retail).mobi\r\n" +
	"!DV8 Romain Gary - La promesse de l'aube.epub.rar ::INFO:: 800KB\r\n" +
	"not a command .epub\r\n"

func TestExtract_KeepsCommandLinesInOrder(t *testing.T) {
	path := writeArchive(t, entry{name: "results.txt", content: listing})

	commands, err := NewExtractor().Extract(path)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"!Oatmeal Romain Gary - La promesse de l'aube.epub",
		"!DV8 Romain Gary - La promesse de l'aube.epub",
	}, commands)
}

func TestExtract_ReadsOnlyFirstEntry(t *testing.T) {
	path := writeArchive(t,
		entry{name: "first.txt", content: "!A first.epub\n"},
		entry{name: "second.txt", content: "!B second.epub\n"},
	)

	commands, err := NewExtractor().Extract(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"!A first.epub"}, commands)
}

func TestExtract_NoMatchesIsNotAnError(t *testing.T) {
	path := writeArchive(t, entry{name: "results.txt", content: "Sorry, nothing found\n"})

	commands, err := NewExtractor().Extract(path)
	require.NoError(t, err)
	assert.Empty(t, commands)
}

func TestExtract_ZstdEntry(t *testing.T) {
	path := writeArchive(t, entry{name: "results.txt", content: "!Bot Book.epub\n", method: zstd.ZipMethodWinZip})

	commands, err := NewExtractor().Extract(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"!Bot Book.epub"}, commands)
}

func TestExtract_Windows1252Listing(t *testing.T) {
	path := writeArchive(t, entry{name: "results.txt", content: "!Bot Les Mis\xe9rables.epub\n"})

	commands, err := NewExtractor().Extract(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"!Bot Les Misérables.epub"}, commands)
}

func TestExtract_Empty(t *testing.T) {
	path := writeArchive(t)

	_, err := NewExtractor().Extract(path)
	assert.ErrorIs(t, err, ErrEmpty)
}

func TestExtract_ZipBasedFormat(t *testing.T) {
	// Sniffs as epub because the first stored entry is "mimetype".
	path := filepath.Join(t.TempDir(), "results.zip")
	f, err := os.Create(path)
	require.NoError(t, err)
	w := zip.NewWriter(f)
	fw, err := w.CreateHeader(&zip.FileHeader{Name: "mimetype", Method: zip.Store})
	require.NoError(t, err)
	_, err = fw.Write([]byte("application/epub+zip\n!Bot Romain Gary - Clair de femme.epub ::INFO:: 300KB\n"))
	require.NoError(t, err)
	require.NoError(t, w.Close())
	require.NoError(t, f.Close())

	commands, err := NewExtractor().Extract(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"!Bot Romain Gary - Clair de femme.epub"}, commands)
}

func TestExtract_Unreadable(t *testing.T) {
	dir := t.TempDir()
	notZip := filepath.Join(dir, "results.txt")
	require.NoError(t, os.WriteFile(notZip, []byte("!Bot Book.epub\n"), 0644))
	truncated := filepath.Join(dir, "broken.zip")
	require.NoError(t, os.WriteFile(truncated, []byte("PK\x03\x04garbage"), 0644))

	tests := []struct {
		name string
		path string
	}{
		{"missing file", filepath.Join(dir, "missing.zip")},
		{"plain text", notZip},
		{"truncated zip", truncated},
		{"directory", dir},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewExtractor().Extract(tt.path)
			assert.ErrorIs(t, err, ErrUnreadable)
		})
	}
}

func TestCommands(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		expected []string
	}{
		{"empty", "", nil},
		{"cut at first suffix", "!a.epub.epub", []string{"!a.epub"}},
		{"suffix inside word", "!Bot x.epubs trailing", []string{"!Bot x.epub"}},
		{"prefix must be first", " !Bot a.epub", nil},
		{"needs suffix", "!Bot a.pdf", nil},
		{"duplicates kept", "!a.epub\n!a.epub", []string{"!a.epub", "!a.epub"}},
		{"crlf", "!a.epub\r\n!b.epub\r\n", []string{"!a.epub", "!b.epub"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Commands(tt.text))
		})
	}
}
