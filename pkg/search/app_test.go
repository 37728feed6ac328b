package search

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/VincentCordobes/ebookz/internal/app"
	"github.com/VincentCordobes/ebookz/pkg/ircchat"
)

// scriptedChat joins, offers one book once the search is out and stays
// connected until cancelled.
type scriptedChat struct {
	fakeChat
	o       *Orchestrator
	payload string
	err     error
}

func (c *scriptedChat) Run(ctx context.Context, handler ircchat.Handler) error {
	if c.err != nil {
		return c.err
	}
	handler.OnConnected(ctx)
	for c.o.State() != app.AwaitingOffer {
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(5 * time.Millisecond):
		}
	}
	if c.payload != "" {
		handler.HandleControl(ctx, "Oatmeal", testNick, c.payload)
	}
	<-ctx.Done()
	return nil
}

type disconnectingChat struct{ fakeChat }

func (*disconnectingChat) Run(context.Context, ircchat.Handler) error { return nil }

func runApp(t *testing.T, a *App) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		a.Run(ctx, cancel)
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("app did not stop")
	}
}

func TestApp_DownloadsOfferedBook(t *testing.T) {
	chat := &scriptedChat{payload: `DCC SEND "A.epub" 2907707975 4530 1000`}
	chat.o = newTestOrchestrator(testConfig(), &chat.fakeChat, &fakeDownloader{}, &fakeExtractor{})
	a := NewApp(chat, chat.o)

	runApp(t, a)

	require.NoError(t, a.Err())
	assert.Equal(t, "/downloads/A.epub", a.Path())
	assert.Equal(t, []line{{"#ebooks", "@search La promesse de l'aube"}}, chat.lines())
}

func TestApp_ChatFailureEndsSearch(t *testing.T) {
	dialErr := errors.New("connection refused")
	chat := &scriptedChat{err: dialErr}
	chat.o = newTestOrchestrator(testConfig(), &chat.fakeChat, &fakeDownloader{}, &fakeExtractor{})
	a := NewApp(chat, chat.o)

	runApp(t, a)

	assert.ErrorIs(t, a.Err(), dialErr)
	assert.Empty(t, a.Path())
	select {
	case <-a.Done():
	default:
		t.Fatal("search not marked done")
	}
}

func TestApp_DisconnectEndsSearch(t *testing.T) {
	chat := &disconnectingChat{}
	a := NewApp(chat, newTestOrchestrator(testConfig(), &chat.fakeChat, &fakeDownloader{}, &fakeExtractor{}))

	runApp(t, a)

	assert.ErrorIs(t, a.Err(), ErrDisconnected)
}
