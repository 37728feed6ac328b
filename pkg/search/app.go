package search

import (
	"context"
	"errors"
	"log/slog"

	"golang.org/x/sync/errgroup"

	appevents "github.com/VincentCordobes/ebookz/internal/app_events"
	"github.com/VincentCordobes/ebookz/pkg/ircchat"
)

// ErrDisconnected is reported when the chat server closes the connection
// before the search is over.
var ErrDisconnected = errors.New("chat connection closed")

// ChatClient is a Chat that owns its connection loop.
type ChatClient interface {
	Chat
	Run(ctx context.Context, handler ircchat.Handler) error
}

// App is the application logic controller: it runs the chat connection and
// the orchestrator together and stops both when either is done.
type App struct {
	chat         ChatClient
	orchestrator *Orchestrator
}

// NewApp creates a controller. orchestrator must use chat to send.
func NewApp(chat ChatClient, orchestrator *Orchestrator) *App {
	return &App{chat: chat, orchestrator: orchestrator}
}

// Run blocks until the search is over and every transfer has returned.
func (a *App) Run(ctx context.Context, cancel context.CancelFunc) {
	defer cancel()

	runCtx, stop := context.WithCancel(ctx)
	defer stop()
	g, gctx := errgroup.WithContext(runCtx)

	g.Go(func() error {
		err := a.chat.Run(gctx, a.orchestrator)
		if err == nil && gctx.Err() == nil {
			err = ErrDisconnected
		}
		if err != nil {
			a.orchestrator.Stop(ctx, err)
		}
		return err
	})
	g.Go(func() error {
		a.orchestrator.Run(gctx, stop)
		return nil
	})

	if err := g.Wait(); err != nil {
		slog.Error("Chat connection failed", "error", err)
	}
}

func (a *App) UIMessages() <-chan appevents.AppUIMessage {
	return a.orchestrator.UIMessages()
}

// Done is closed once the search is over.
func (a *App) Done() <-chan struct{} {
	return a.orchestrator.Done()
}

// Err reports why the search ended. It is nil once a book was downloaded.
func (a *App) Err() error {
	return a.orchestrator.Err()
}

// Path returns the downloaded book.
func (a *App) Path() string {
	return a.orchestrator.Path()
}
