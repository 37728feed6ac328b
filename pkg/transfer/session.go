package transfer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	appevents "github.com/VincentCordobes/ebookz/internal/app_events"
	transferEvents "github.com/VincentCordobes/ebookz/internal/app_events/transfer"
	"github.com/VincentCordobes/ebookz/pkg/dcc"
)

// Dialer opens the transfer connection. *net.Dialer and the dialers from
// golang.org/x/net/proxy satisfy it.
type Dialer interface {
	DialContext(ctx context.Context, network, address string) (net.Conn, error)
}

type flusher interface {
	Flush() error
}

// Session is one DCC SEND download: it dials the offer's address, writes
// every received chunk to the sink and acknowledges it with the running
// byte count. The session ends when the sender closes the connection; the
// advertised length is never used to decide completion.
type Session struct {
	ID string

	offer      dcc.FileOffer
	sink       io.WriteCloser
	dialer     Dialer
	config     *Config
	uiMessages chan<- appevents.AppUIMessage

	received atomic.Uint64
	mu       sync.Mutex
	state    State
}

// NewSession creates a session for offer writing into sink. uiMessages may
// be nil; a nil config uses DefaultConfig.
func NewSession(offer dcc.FileOffer, sink io.WriteCloser, dialer Dialer, config *Config, uiMessages chan<- appevents.AppUIMessage) *Session {
	if config == nil {
		config = DefaultConfig()
	}
	return &Session{
		ID:         uuid.New().String(),
		offer:      offer,
		sink:       sink,
		dialer:     dialer,
		config:     config,
		uiMessages: uiMessages,
		state:      StatePending,
	}
}

// State returns the current state of the session.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Received returns the number of bytes received so far.
func (s *Session) Received() uint64 {
	return s.received.Load()
}

func (s *Session) setState(state State) {
	s.mu.Lock()
	s.state = state
	s.mu.Unlock()
}

// Run performs the transfer and returns the number of bytes received. The
// sink is closed in every case; on failure it keeps whatever was written.
// A session runs once.
func (s *Session) Run(ctx context.Context) (uint64, error) {
	if state := s.State(); state.IsTerminal() {
		return s.received.Load(), fmt.Errorf("%w: %s is %s", ErrSessionFinished, s.ID, state)
	}
	s.setState(StateActive)
	addr := s.offer.Addr()
	log := slog.With("session", s.ID, "file", s.offer.FileName, "addr", addr)

	dialCtx := ctx
	if s.config.DialTimeout > 0 {
		var cancel context.CancelFunc
		dialCtx, cancel = context.WithTimeout(ctx, s.config.DialTimeout)
		defer cancel()
	}
	conn, err := s.dialer.DialContext(dialCtx, "tcp", addr)
	if err != nil {
		return s.fail(ctx, log, ErrConnectFailed, err)
	}
	defer conn.Close()

	// Unblock the pending Read when the caller gives up.
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	log.Info("Transfer connected")
	s.emit(ctx, transferEvents.ConnectedMsg{SessionID: s.ID, FileName: s.offer.FileName, Addr: addr})

	buf := make([]byte, s.config.BufferSize)
	var ack [AckSize]byte
	for {
		n, readErr := conn.Read(buf)
		if n > 0 {
			received := s.received.Add(uint64(n))

			if _, err := s.sink.Write(buf[:n]); err != nil {
				return s.fail(ctx, log, ErrStreamError, err)
			}
			s.emit(ctx, transferEvents.ProgressMsg{
				SessionID:  s.ID,
				FileName:   s.offer.FileName,
				Received:   received,
				Advertised: s.offer.Length,
			})

			PutAck(ack[:], received)
			if _, err := conn.Write(ack[:]); err != nil {
				// The sender may already be gone after its final chunk.
				if !errors.Is(readErr, io.EOF) {
					return s.fail(ctx, log, ErrStreamError, err)
				}
				log.Debug("Final acknowledgment not delivered", "error", err)
			}
		}

		if readErr != nil {
			if errors.Is(readErr, io.EOF) {
				break
			}
			if ctx.Err() != nil {
				readErr = ctx.Err()
			}
			return s.fail(ctx, log, ErrStreamError, readErr)
		}
	}

	if err := s.closeSink(true); err != nil {
		return s.fail(ctx, log, ErrStreamError, err)
	}

	received := s.received.Load()
	s.setState(StateCompleted)
	log.Info("Transfer completed", "received", received, "advertised", s.offer.Length)
	s.emit(ctx, transferEvents.CompletedMsg{SessionID: s.ID, FileName: s.offer.FileName, Received: received})
	return received, nil
}

func (s *Session) fail(ctx context.Context, log *slog.Logger, kind, cause error) (uint64, error) {
	if err := s.closeSink(false); err != nil {
		log.Warn("Failed to close sink", "error", err)
	}

	received := s.received.Load()
	err := &Error{Kind: kind, Addr: s.offer.Addr(), Received: received, Err: cause}
	s.setState(StateFailed)
	log.Error("Transfer failed", "error", err, "received", received)
	s.emit(ctx, transferEvents.FailedMsg{SessionID: s.ID, FileName: s.offer.FileName, Received: received, Err: err})
	return received, err
}

func (s *Session) closeSink(flush bool) error {
	if flush {
		if f, ok := s.sink.(flusher); ok {
			if err := f.Flush(); err != nil {
				s.sink.Close()
				return err
			}
		}
	}
	return s.sink.Close()
}

// emit delivers events in protocol order. Once ctx is done, events are
// dropped rather than blocking the session.
func (s *Session) emit(ctx context.Context, msg appevents.AppUIMessage) {
	appevents.Emit(ctx.Done(), s.uiMessages, msg)
}
