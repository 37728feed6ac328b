package search

import (
	"github.com/VincentCordobes/ebookz/internal/app"
	appevents "github.com/VincentCordobes/ebookz/internal/app_events"
	"github.com/VincentCordobes/ebookz/pkg/dcc"
)

// StateChangedMsg is sent on every session state transition.
type StateChangedMsg struct {
	appevents.UIMessage
	From app.State
	To   app.State
}

// SearchIssuedMsg is sent once the search request went out on the channel.
type SearchIssuedMsg struct {
	appevents.UIMessage
	Channel string
	Query   string
}

// OfferReceivedMsg is sent when a DCC offer was accepted for download.
type OfferReceivedMsg struct {
	appevents.UIMessage
	From    string
	Offer   dcc.FileOffer
	Results bool
}

// OfferDroppedMsg is sent when a control message was ignored.
type OfferDroppedMsg struct {
	appevents.UIMessage
	From   string
	Reason error
}

// ResultsExtractedMsg lists the follow-up requests found in a result listing.
type ResultsExtractedMsg struct {
	appevents.UIMessage
	Archive  string
	Commands []string
}

// RequestSentMsg is sent after each follow-up request.
type RequestSentMsg struct {
	appevents.UIMessage
	Command string
}

// FinishedMsg is the last message of a session. Err is nil when a file was
// downloaded, Path names it.
type FinishedMsg struct {
	appevents.UIMessage
	Path string
	Err  error
}
