package results

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/klauspost/compress/zip"
	"github.com/klauspost/compress/zstd"
	"golang.org/x/text/encoding/charmap"

	"github.com/VincentCordobes/ebookz/pkg/fileInfo"
)

const (
	// CommandPrefix starts every follow-up request line.
	CommandPrefix = "!"
	// BookSuffix ends the kept part of a request line.
	BookSuffix = ".epub"
)

var (
	ErrUnreadable = errors.New("archive unreadable")
	ErrEmpty      = errors.New("archive empty")
)

// Extractor reads result listings delivered by the search bot.
type Extractor struct{}

// NewExtractor creates a new extractor.
func NewExtractor() *Extractor {
	return &Extractor{}
}

// Extract opens the zip archive at path and returns the request lines found
// in its first entry, in file order.
func (e *Extractor) Extract(path string) ([]string, error) {
	node, err := fileInfo.Describe(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnreadable, err)
	}

	// The sniffed type only explains failures; zip.OpenReader decides.
	archive, err := zip.OpenReader(path)
	if err != nil {
		if !node.IsZip() {
			return nil, fmt.Errorf("%w: %s is %s, not a zip archive: %w", ErrUnreadable, node.Name, node.MimeType, err)
		}
		return nil, fmt.Errorf("%w: %w", ErrUnreadable, err)
	}
	defer archive.Close()
	archive.RegisterDecompressor(zstd.ZipMethodWinZip, zstd.ZipDecompressor())

	if len(archive.File) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrEmpty, node.Name)
	}

	entry := archive.File[0]
	rc, err := entry.Open()
	if err != nil {
		return nil, fmt.Errorf("%w: failed to open entry %s: %w", ErrUnreadable, entry.Name, err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read entry %s: %w", ErrUnreadable, entry.Name, err)
	}

	text, err := decodeText(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnreadable, err)
	}

	commands := Commands(text)
	slog.Info("Extracted result listing", "archive", node.Name, "entry", entry.Name, "commands", len(commands))
	return commands, nil
}

// Commands keeps the lines of text that start with "!" and contain ".epub",
// each cut right after its first ".epub".
func Commands(text string) []string {
	var commands []string
	for line := range strings.SplitSeq(text, "\n") {
		line = strings.TrimSuffix(line, "\r")
		if !strings.HasPrefix(line, CommandPrefix) {
			continue
		}
		idx := strings.Index(line, BookSuffix)
		if idx < 0 {
			continue
		}
		commands = append(commands, line[:idx+len(BookSuffix)])
	}
	return commands
}

// Listings from older bots are Windows-1252.
func decodeText(data []byte) (string, error) {
	if utf8.Valid(data) {
		return string(data), nil
	}
	decoded, err := charmap.Windows1252.NewDecoder().Bytes(data)
	if err != nil {
		return "", fmt.Errorf("failed to decode listing: %w", err)
	}
	return string(decoded), nil
}
