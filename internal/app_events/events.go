package appevents

// AppUIMessage is a marker interface for messages sent from the app's logic
// controller to the TUI. It uses an unexported method so that only types
// embedding UIMessage can satisfy it.
type AppUIMessage interface {
	isUIMessage()
}

// UIMessage is a base struct that can be embedded in other types to implement the AppUIMessage interface.
type UIMessage struct{}

func (UIMessage) isUIMessage() {}

// ErrorMsg reports a failure that did not end the process.
type ErrorMsg struct {
	UIMessage
	Err error
}

// StatusMsg carries a free-form status line.
type StatusMsg struct {
	UIMessage
	Message string
}

// Emit sends msg on ch unless ch is nil or done is closed first.
func Emit(done <-chan struct{}, ch chan<- AppUIMessage, msg AppUIMessage) {
	if ch == nil {
		return
	}
	select {
	case ch <- msg:
	case <-done:
	}
}
