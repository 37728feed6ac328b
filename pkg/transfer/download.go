package transfer

import (
	"context"
	"fmt"

	appevents "github.com/VincentCordobes/ebookz/internal/app_events"
	"github.com/VincentCordobes/ebookz/pkg/dcc"
	"github.com/VincentCordobes/ebookz/pkg/receiver"
)

// Result describes a finished download.
type Result struct {
	SessionID string
	Path      string
	Received  uint64
	// Written is what reached the sink; it trails Received when the sink failed.
	Written int64
}

// Downloader turns accepted offers into files under the receiver's output
// directory, one independent Session per offer.
type Downloader struct {
	dialer     Dialer
	config     *Config
	receiver   *receiver.FileReceiver
	uiMessages chan<- appevents.AppUIMessage
}

// NewDownloader creates a downloader. A nil config uses DefaultConfig.
func NewDownloader(dialer Dialer, config *Config, fr *receiver.FileReceiver, uiMessages chan<- appevents.AppUIMessage) *Downloader {
	if config == nil {
		config = DefaultConfig()
	}
	return &Downloader{
		dialer:     dialer,
		config:     config,
		receiver:   fr,
		uiMessages: uiMessages,
	}
}

// Download runs a session for offer. On failure the returned Result still
// names the partially written file, which is left on disk.
func (d *Downloader) Download(ctx context.Context, offer dcc.FileOffer) (Result, error) {
	sink, err := d.receiver.Create(ctx, offer.FileName)
	if err != nil {
		return Result{}, fmt.Errorf("failed to open destination for %s: %w", offer.FileName, err)
	}

	session := NewSession(offer, sink, d.dialer, d.config, d.uiMessages)
	received, err := session.Run(ctx)
	return Result{SessionID: session.ID, Path: sink.Path(), Received: received, Written: sink.Written()}, err
}
