package search

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/VincentCordobes/ebookz/internal/app"
	appevents "github.com/VincentCordobes/ebookz/internal/app_events"
	searchEvents "github.com/VincentCordobes/ebookz/internal/app_events/search"
	"github.com/VincentCordobes/ebookz/pkg/concurrency"
	"github.com/VincentCordobes/ebookz/pkg/dcc"
	"github.com/VincentCordobes/ebookz/pkg/transfer"
)

// ErrOfferTimeout ends a session that waited too long for an offer.
var ErrOfferTimeout = errors.New("no offer received in time")

// Chat sends lines to the channel under this process's nick.
type Chat interface {
	Say(target, text string) error
	Nick() string
}

// Downloader runs the transfer for an accepted offer.
type Downloader interface {
	Download(ctx context.Context, offer dcc.FileOffer) (transfer.Result, error)
}

// Extractor turns a downloaded result listing into request lines.
type Extractor interface {
	Extract(path string) ([]string, error)
}

// Orchestrator drives one search: it sends the search request, downloads
// the result listing offered by the results bot, requests every listed book
// and ends once a book offered by anyone else has been downloaded.
type Orchestrator struct {
	config     Config
	chat       Chat
	downloader Downloader
	extractor  Extractor
	uiMessages chan appevents.AppUIMessage

	machine *app.StateMachine
	tracker *concurrency.Tracker

	mu   sync.Mutex
	path string
}

// New creates an orchestrator. Events are delivered on uiMessages, which is
// also the channel handed to the downloader.
func New(config Config, chat Chat, downloader Downloader, extractor Extractor, uiMessages chan appevents.AppUIMessage) *Orchestrator {
	return &Orchestrator{
		config:     config,
		chat:       chat,
		downloader: downloader,
		extractor:  extractor,
		uiMessages: uiMessages,
		machine:    app.NewStateMachine(),
		tracker:    concurrency.NewTracker(),
	}
}

// UIMessages returns the event stream for the UI.
func (o *Orchestrator) UIMessages() <-chan appevents.AppUIMessage {
	return o.uiMessages
}

// State returns the current session state.
func (o *Orchestrator) State() app.State {
	return o.machine.Current()
}

// Done is closed once the session is over.
func (o *Orchestrator) Done() <-chan struct{} {
	return o.machine.Done()
}

// Err reports why the session ended. It is nil after a successful download.
func (o *Orchestrator) Err() error {
	return o.machine.Err()
}

// Path returns the downloaded book, or "" if none was.
func (o *Orchestrator) Path() string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.path
}

// Wait blocks until every started transfer has returned.
func (o *Orchestrator) Wait() {
	o.tracker.Wait()
}

// Run supervises the session until it ends or ctx is cancelled, then cancels
// the remaining work through cancel.
func (o *Orchestrator) Run(ctx context.Context, cancel context.CancelFunc) {
	defer cancel()

	var timeout <-chan time.Time
	if o.config.OfferTimeout > 0 {
		timer := time.NewTimer(o.config.OfferTimeout)
		defer timer.Stop()
		timeout = timer.C

		// Re-arms the timer for whatever part of the window is left.
		check := func() {
			idle := o.tracker.IdleFor()
			if o.machine.Current() == app.AwaitingOffer && idle >= o.config.OfferTimeout {
				slog.Warn("Gave up waiting for an offer", "timeout", o.config.OfferTimeout)
				o.finish(ctx, "", ErrOfferTimeout)
				return
			}
			next := o.config.OfferTimeout
			if o.machine.Current() == app.AwaitingOffer && idle > 0 {
				next -= idle
			}
			timer.Reset(next)
		}

	loop:
		for {
			select {
			case <-o.machine.Done():
				break loop
			case <-ctx.Done():
				o.finish(ctx, "", ctx.Err())
				break loop
			case <-timeout:
				check()
			}
		}
	} else {
		select {
		case <-o.machine.Done():
		case <-ctx.Done():
			o.finish(ctx, "", ctx.Err())
		}
	}

	o.tracker.Close()
	err := o.machine.Err()
	o.emitFinal(searchEvents.FinishedMsg{Path: o.Path(), Err: err})
	if err != nil {
		slog.Error("Search ended", "error", err)
	} else {
		slog.Info("Search ended", "path", o.Path())
	}

	cancel()
	o.tracker.Wait()
}

// Stop ends the session with err unless it is already over.
func (o *Orchestrator) Stop(ctx context.Context, err error) {
	if err == nil {
		err = errors.New("search stopped")
	}
	o.finish(ctx, "", err)
}

// OnConnected is called once the chat client has joined the channel. The
// search request goes out after the settle delay.
func (o *Orchestrator) OnConnected(ctx context.Context) {
	if !o.transition(ctx, app.Idle, app.Connected) {
		slog.Warn("Ignoring connection signal", "state", o.machine.Current())
		return
	}
	go o.issueSearch(ctx)
}

func (o *Orchestrator) issueSearch(ctx context.Context) {
	if o.config.SettleDelay > 0 {
		slog.Info("Waiting before search", "delay", o.config.SettleDelay)
		timer := time.NewTimer(o.config.SettleDelay)
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-ctx.Done():
			return
		case <-o.machine.Done():
			return
		}
	}

	request := o.config.Request()
	if err := o.chat.Say(o.config.Channel, request); err != nil {
		o.finish(ctx, "", fmt.Errorf("failed to send search request: %w", err))
		return
	}
	slog.Info("Search request sent", "channel", o.config.Channel, "request", request)

	if !o.transition(ctx, app.Connected, app.SearchIssued) {
		return
	}
	o.emit(ctx, searchEvents.SearchIssuedMsg{Channel: o.config.Channel, Query: o.config.SearchText})
	o.tracker.Touch()
	o.transition(ctx, app.SearchIssued, app.AwaitingOffer)
}

// HandleMessage logs plain private messages, typically bot notices about
// the search.
func (o *Orchestrator) HandleMessage(ctx context.Context, from, to, text string) {
	if to != o.chat.Nick() {
		return
	}
	slog.Info("Message received", "from", from, "to", to, "text", text)
	o.emit(ctx, appevents.StatusMsg{Message: fmt.Sprintf("%s: %s", from, text)})
}

// HandleControl routes a control message. Offers from the results bot are
// result listings, any other offer is the book itself.
func (o *Orchestrator) HandleControl(ctx context.Context, from, to, payload string) {
	if to != o.chat.Nick() {
		slog.Debug("Ignoring control message for another target", "from", from, "to", to)
		return
	}
	slog.Info("Control message received", "from", from, "payload", payload)

	state := o.machine.Current()
	if !state.AcceptsOffers() {
		o.drop(ctx, from, fmt.Errorf("not awaiting offers in state %s", state))
		return
	}

	offer, err := dcc.Parse(payload)
	if err != nil {
		o.drop(ctx, from, err)
		return
	}

	results := strings.EqualFold(from, o.config.ResultsBot)
	next := app.DirectTransfer
	if results {
		next = app.ResultTransfer
	}
	prev, err := o.machine.Transition(next)
	if err != nil {
		o.drop(ctx, from, err)
		return
	}
	o.emit(ctx, searchEvents.StateChangedMsg{From: prev, To: next})
	o.emit(ctx, searchEvents.OfferReceivedMsg{From: from, Offer: offer, Results: results})
	slog.Info("Offer accepted", "from", from, "offer", offer.String(), "results", results)

	err = o.tracker.Go(func() {
		if results {
			o.handleResults(ctx, offer)
		} else {
			o.handleBook(ctx, offer)
		}
	})
	if err != nil {
		slog.Warn("Offer arrived after the search ended", "from", from, "file", offer.FileName)
	}
}

func (o *Orchestrator) handleResults(ctx context.Context, offer dcc.FileOffer) {
	result, err := o.downloader.Download(ctx, offer)
	if err != nil {
		o.abort(ctx, app.ResultTransfer, "Result listing transfer failed", err)
		return
	}

	commands, err := o.extractor.Extract(result.Path)
	if err != nil {
		o.abort(ctx, app.ResultTransfer, "Failed to read result listing", err)
		return
	}
	o.emit(ctx, searchEvents.ResultsExtractedMsg{Archive: result.Path, Commands: commands})
	slog.Info("Requesting books", "count", len(commands))

	for _, command := range commands {
		if ctx.Err() != nil {
			return
		}
		if err := o.chat.Say(o.config.Channel, command); err != nil {
			o.abort(ctx, app.ResultTransfer, "Failed to send request", err)
			return
		}
		o.emit(ctx, searchEvents.RequestSentMsg{Command: command})
	}

	o.transition(ctx, app.ResultTransfer, app.AwaitingOffer)
}

func (o *Orchestrator) handleBook(ctx context.Context, offer dcc.FileOffer) {
	result, err := o.downloader.Download(ctx, offer)
	if err != nil {
		o.abort(ctx, app.DirectTransfer, "Book transfer failed", err)
		return
	}
	slog.Info("Book downloaded", "path", result.Path, "received", result.Received, "written", result.Written)
	o.finish(ctx, result.Path, nil)
}

// abort ends a failed branch and goes back to waiting for offers.
func (o *Orchestrator) abort(ctx context.Context, from app.State, message string, err error) {
	slog.Error(message, "error", err)
	o.emit(ctx, appevents.ErrorMsg{Err: fmt.Errorf("%s: %w", message, err)})
	o.transition(ctx, from, app.AwaitingOffer)
}

func (o *Orchestrator) drop(ctx context.Context, from string, reason error) {
	slog.Info("Control message dropped", "from", from, "reason", reason)
	o.emit(ctx, searchEvents.OfferDroppedMsg{From: from, Reason: reason})
}

func (o *Orchestrator) transition(ctx context.Context, from, to app.State) bool {
	if !o.machine.TransitionFrom(from, to) {
		return false
	}
	slog.Debug("State changed", "from", from, "to", to)
	o.emit(ctx, searchEvents.StateChangedMsg{From: from, To: to})
	return true
}

func (o *Orchestrator) finish(ctx context.Context, path string, err error) {
	prev := o.machine.Current()

	// Path must be set before Path() can be read after Done.
	o.mu.Lock()
	finished := o.machine.Finish(err)
	if finished {
		o.path = path
	}
	o.mu.Unlock()

	if finished {
		o.emit(ctx, searchEvents.StateChangedMsg{From: prev, To: app.Terminal})
	}
}

func (o *Orchestrator) emit(ctx context.Context, msg appevents.AppUIMessage) {
	appevents.Emit(ctx.Done(), o.uiMessages, msg)
}

// emitFinal must not block: the UI may already be gone.
func (o *Orchestrator) emitFinal(msg appevents.AppUIMessage) {
	if o.uiMessages == nil {
		return
	}
	select {
	case o.uiMessages <- msg:
	default:
		slog.Warn("UI message dropped", "message", fmt.Sprintf("%T", msg))
	}
}
