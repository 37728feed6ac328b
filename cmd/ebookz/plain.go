package main

import (
	"context"
	"log/slog"

	appevents "github.com/VincentCordobes/ebookz/internal/app_events"
	searchEvents "github.com/VincentCordobes/ebookz/internal/app_events/search"
	transferEvents "github.com/VincentCordobes/ebookz/internal/app_events/transfer"
	"github.com/VincentCordobes/ebookz/internal/util"
	"github.com/VincentCordobes/ebookz/pkg/search"
)

// runPlain runs app without the interactive view, logging its events.
func runPlain(ctx context.Context, app *search.App) {
	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		app.Run(ctx, cancel)
		close(done)
	}()

	for {
		select {
		case msg := <-app.UIMessages():
			logEvent(msg)
		case <-done:
			for {
				select {
				case msg := <-app.UIMessages():
					logEvent(msg)
				default:
					return
				}
			}
		}
	}
}

func logEvent(msg appevents.AppUIMessage) {
	switch msg := msg.(type) {
	case searchEvents.StateChangedMsg:
		slog.Debug("State changed", "from", msg.From, "to", msg.To)
	case searchEvents.SearchIssuedMsg:
		slog.Info("Searching", "channel", msg.Channel, "query", msg.Query)
	case searchEvents.OfferReceivedMsg:
		slog.Info("Offer received", "from", msg.From, "file", msg.Offer.FileName, "size", util.FormatSize(msg.Offer.Length))
	case searchEvents.ResultsExtractedMsg:
		slog.Info("Result listing read", "books", len(msg.Commands))
	case searchEvents.RequestSentMsg:
		slog.Info("Requested", "command", msg.Command)
	case transferEvents.ProgressMsg:
		slog.Debug("Receiving", "file", msg.FileName, "received", util.FormatSize(msg.Received),
			"percent", int(util.Percent(msg.Received, msg.Advertised)*100))
	case transferEvents.CompletedMsg:
		slog.Info("Received", "file", msg.FileName, "size", util.FormatSize(msg.Received))
	case appevents.StatusMsg:
		slog.Info(msg.Message)
	}
}
