package receiver

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	appevents "github.com/VincentCordobes/ebookz/internal/app_events"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileReceiver_CreateWritesInOrder(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "tmp")
	uiMessages := make(chan appevents.AppUIMessage, 10)
	fr := NewFileReceiver(dir, uiMessages)

	sink, err := fr.Create(context.Background(), "a b.zip")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "a b.zip"), sink.Path())

	for _, chunk := range []string{"first-", "second-", "third"} {
		n, err := sink.Write([]byte(chunk))
		require.NoError(t, err)
		assert.Equal(t, len(chunk), n)
	}
	assert.Equal(t, int64(len("first-second-third")), sink.Written())
	require.NoError(t, sink.Close())

	content, err := os.ReadFile(sink.Path())
	require.NoError(t, err)
	assert.Equal(t, "first-second-third", string(content))

	select {
	case msg := <-uiMessages:
		status, ok := msg.(appevents.StatusMsg)
		require.True(t, ok, "expected StatusMsg, got %T", msg)
		assert.Equal(t, "Receiving file: a b.zip", status.Message)
	default:
		t.Fatal("expected a status message for the new file")
	}
}

func TestFileSink_FlushMakesBytesVisible(t *testing.T) {
	fr := NewFileReceiver(t.TempDir(), nil)
	sink, err := fr.Create(context.Background(), "partial.bin")
	require.NoError(t, err)
	defer sink.Close()

	_, err = sink.Write([]byte("partial"))
	require.NoError(t, err)
	require.NoError(t, sink.Flush())

	content, err := os.ReadFile(sink.Path())
	require.NoError(t, err)
	assert.Equal(t, "partial", string(content))
}

func TestFileSink_CloseIsIdempotent(t *testing.T) {
	fr := NewFileReceiver(t.TempDir(), nil)
	sink, err := fr.Create(context.Background(), "f.txt")
	require.NoError(t, err)

	require.NoError(t, sink.Close())
	require.NoError(t, sink.Close())

	_, err = sink.Write([]byte("late"))
	assert.ErrorIs(t, err, ErrSinkClosed)
	assert.ErrorIs(t, sink.Flush(), ErrSinkClosed)
}

func TestFileReceiver_TruncatesExistingFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "f.txt"), []byte("old content that is long"), 0o644))

	sink, err := NewFileReceiver(dir, nil).Create(context.Background(), "f.txt")
	require.NoError(t, err)
	_, err = sink.Write([]byte("new"))
	require.NoError(t, err)
	require.NoError(t, sink.Close())

	content, err := os.ReadFile(filepath.Join(dir, "f.txt"))
	require.NoError(t, err)
	assert.Equal(t, "new", string(content))
}

func TestFileReceiver_OutputDirIsAFile(t *testing.T) {
	blocker := filepath.Join(t.TempDir(), "blocker")
	require.NoError(t, os.WriteFile(blocker, nil, 0o644))

	_, err := NewFileReceiver(blocker, nil).Create(context.Background(), "f.txt")
	assert.Error(t, err)
}
