package transfer

import (
	appevents "github.com/VincentCordobes/ebookz/internal/app_events"
)

// ConnectedMsg is sent once the transfer connection is open. No data has
// been received yet.
type ConnectedMsg struct {
	appevents.UIMessage
	SessionID string
	FileName  string
	Addr      string
}

// ProgressMsg is sent after every received chunk, before its acknowledgment
// goes out.
type ProgressMsg struct {
	appevents.UIMessage
	SessionID string
	FileName  string
	Received  uint64
	// Advertised is the length from the offer, for display only.
	Advertised uint64
}

// CompletedMsg is sent when the sender closed the stream and the sink was flushed.
type CompletedMsg struct {
	appevents.UIMessage
	SessionID string
	FileName  string
	Received  uint64
}

// FailedMsg is sent when the session ended on a connection or sink error.
type FailedMsg struct {
	appevents.UIMessage
	SessionID string
	FileName  string
	Received  uint64
	Err       error
}

var (
	_ appevents.AppUIMessage = ConnectedMsg{}
	_ appevents.AppUIMessage = ProgressMsg{}
	_ appevents.AppUIMessage = CompletedMsg{}
	_ appevents.AppUIMessage = FailedMsg{}
)
