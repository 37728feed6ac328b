package receiver

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	appevents "github.com/VincentCordobes/ebookz/internal/app_events"
	"github.com/VincentCordobes/ebookz/internal/util"
)

// ErrSinkClosed is returned when writing to a sink after Close.
var ErrSinkClosed = errors.New("sink closed")

const sinkBufferSize = 32 * 1024

// FileReceiver creates destination files for downloads under one directory.
type FileReceiver struct {
	outputDir  string
	uiMessages chan<- appevents.AppUIMessage
}

// NewFileReceiver creates a new file receiver. uiMessages may be nil.
func NewFileReceiver(outputDir string, uiMessages chan<- appevents.AppUIMessage) *FileReceiver {
	return &FileReceiver{
		outputDir:  outputDir,
		uiMessages: uiMessages,
	}
}

// OutputDir returns the directory files are written to.
func (fr *FileReceiver) OutputDir() string {
	return fr.outputDir
}

// Create opens name for writing inside the output directory, truncating any
// existing file. The name is used exactly as offered by the sender.
func (fr *FileReceiver) Create(ctx context.Context, name string) (*FileSink, error) {
	if err := util.EnsureDir(fr.outputDir); err != nil {
		return nil, fmt.Errorf("failed to prepare output directory %s: %w", fr.outputDir, err)
	}

	outputPath := filepath.Join(fr.outputDir, name)
	file, err := os.Create(outputPath)
	if err != nil {
		return nil, fmt.Errorf("failed to create output file %s: %w", outputPath, err)
	}

	slog.Info("Started receiving file", "fileName", name, "path", outputPath)
	appevents.Emit(ctx.Done(), fr.uiMessages, appevents.StatusMsg{Message: fmt.Sprintf("Receiving file: %s", name)})

	return &FileSink{
		file: file,
		w:    bufio.NewWriterSize(file, sinkBufferSize),
		path: outputPath,
	}, nil
}

// FileSink is a buffered, ordered writer onto one downloaded file. Close
// flushes and releases the file; it is safe to call more than once.
type FileSink struct {
	mu      sync.Mutex
	file    *os.File
	w       *bufio.Writer
	path    string
	written int64
	closed  bool
}

// Path returns the file the sink writes to.
func (s *FileSink) Path() string {
	return s.path
}

// Written returns the number of bytes accepted so far.
func (s *FileSink) Written() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.written
}

func (s *FileSink) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return 0, ErrSinkClosed
	}
	n, err := s.w.Write(p)
	s.written += int64(n)
	if err != nil {
		return n, fmt.Errorf("failed to write %s: %w", s.path, err)
	}
	return n, nil
}

// Flush pushes buffered bytes to the file.
func (s *FileSink) Flush() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrSinkClosed
	}
	return s.w.Flush()
}

func (s *FileSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true

	flushErr := s.w.Flush()
	closeErr := s.file.Close()
	if err := errors.Join(flushErr, closeErr); err != nil {
		return fmt.Errorf("failed to close %s: %w", s.path, err)
	}
	return nil
}
