package ui

import (
	"context"

	appevents "github.com/VincentCordobes/ebookz/internal/app_events"
)

// AppController defines the contract between the UI and the backend application logic.
type AppController interface {
	// Run starts the backend and blocks until it is done.
	Run(ctx context.Context, cancel context.CancelFunc)

	// UIMessages returns a read-only channel for receiving messages from the backend to the UI.
	UIMessages() <-chan appevents.AppUIMessage
}
