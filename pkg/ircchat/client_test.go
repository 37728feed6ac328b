package ircchat

import (
	"bufio"
	"context"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/irc.v4"
)

type event struct {
	from, to, text string
}

type recordingHandler struct {
	connected chan struct{}
	controls  chan event
	messages  chan event
}

func newRecordingHandler() *recordingHandler {
	return &recordingHandler{
		connected: make(chan struct{}, 4),
		controls:  make(chan event, 8),
		messages:  make(chan event, 8),
	}
}

func (h *recordingHandler) OnConnected(context.Context) { h.connected <- struct{}{} }

func (h *recordingHandler) HandleControl(_ context.Context, from, to, payload string) {
	h.controls <- event{from, to, payload}
}

func (h *recordingHandler) HandleMessage(_ context.Context, from, to, text string) {
	h.messages <- event{from, to, text}
}

// fakeServer accepts one client and exposes the parsed lines it sends.
type fakeServer struct {
	listener net.Listener
	received chan *irc.Message

	mu   sync.Mutex
	conn net.Conn
}

func startFakeServer(t *testing.T) *fakeServer {
	t.Helper()
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { listener.Close() })

	s := &fakeServer{listener: listener, received: make(chan *irc.Message, 64)}
	go func() {
		conn, err := listener.Accept()
		if err != nil {
			return
		}
		s.mu.Lock()
		s.conn = conn
		s.mu.Unlock()

		scanner := bufio.NewScanner(conn)
		for scanner.Scan() {
			if m, err := irc.ParseMessage(scanner.Text()); err == nil {
				s.received <- m
			}
		}
	}()
	return s
}

func (s *fakeServer) send(t *testing.T, line string) {
	t.Helper()
	require.Eventually(t, func() bool {
		s.mu.Lock()
		defer s.mu.Unlock()
		return s.conn != nil
	}, 2*time.Second, 5*time.Millisecond)

	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.conn.Write([]byte(line + "\r\n"))
	require.NoError(t, err)
}

// expect skips unrelated lines until one with command arrives.
func (s *fakeServer) expect(t *testing.T, command string) *irc.Message {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case m := <-s.received:
			if m.Command == command {
				return m
			}
		case <-deadline:
			t.Fatalf("server never received %s", command)
			return nil
		}
	}
}

func receive[T any](t *testing.T, ch <-chan T) T {
	t.Helper()
	select {
	case v := <-ch:
		return v
	case <-time.After(2 * time.Second):
		var zero T
		t.Fatal("handler was not called")
		return zero
	}
}

func TestClient_Session(t *testing.T) {
	server := startFakeServer(t)
	client := New(Config{Server: server.listener.Addr().String(), Nick: "ebookz", Channel: "#ebooks"}, &net.Dialer{})
	handler := newRecordingHandler()

	assert.ErrorIs(t, client.Say("#ebooks", "too early"), ErrNotConnected)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	runErr := make(chan error, 1)
	go func() { runErr <- client.Run(ctx, handler) }()

	nick := server.expect(t, "NICK")
	assert.Equal(t, []string{"ebookz"}, nick.Params)
	user := server.expect(t, "USER")
	assert.Equal(t, "ebookz", user.Params[0])

	server.send(t, ":irc.test 001 ebookz_ :Welcome to the network")
	join := server.expect(t, "JOIN")
	assert.Equal(t, []string{"#ebooks"}, join.Params)
	assert.Equal(t, "ebookz_", client.Nick())

	assert.ErrorIs(t, client.Say("#ebooks", "before join"), ErrNotConnected)

	server.send(t, ":someone!u@host JOIN #ebooks")
	server.send(t, ":ebookz_!e@host JOIN #ebooks")
	receive(t, handler.connected)

	require.NoError(t, client.Say("#ebooks", "@search La promesse de l'aube"))
	say := server.expect(t, "PRIVMSG")
	assert.Equal(t, []string{"#ebooks", "@search La promesse de l'aube"}, say.Params)

	server.send(t, ":Search!s@host PRIVMSG ebookz_ :\x01DCC SEND results.txt.zip 2907707975 4529 756\x01")
	assert.Equal(t, event{"Search", "ebookz_", "DCC SEND results.txt.zip 2907707975 4529 756"}, receive(t, handler.controls))

	server.send(t, ":Search!s@host PRIVMSG ebookz_ :Your search returned 12 matches")
	assert.Equal(t, event{"Search", "ebookz_", "Your search returned 12 matches"}, receive(t, handler.messages))

	server.send(t, ":Search!s@host NOTICE ebookz_ :Search accepted")
	assert.Equal(t, event{"Search", "ebookz_", "Search accepted"}, receive(t, handler.messages))

	cancel()
	select {
	case err := <-runErr:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
	assert.ErrorIs(t, client.Say("#ebooks", "after close"), ErrNotConnected)
	assert.Empty(t, handler.connected, "OnConnected fires once")
}

func TestClient_DialFailure(t *testing.T) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := listener.Addr().String()
	require.NoError(t, listener.Close())

	client := New(Config{Server: addr, Nick: "ebookz", Channel: "#ebooks"}, &net.Dialer{})
	err = client.Run(context.Background(), newRecordingHandler())
	assert.Error(t, err)
}

func TestParseCTCP(t *testing.T) {
	tests := []struct {
		text    string
		payload string
		ok      bool
	}{
		{"\x01DCC SEND a 1 2 3\x01", "DCC SEND a 1 2 3", true},
		{"\x01VERSION", "VERSION", true},
		{"\x01\x01", "", true},
		{"DCC SEND a 1 2 3", "", false},
		{"", "", false},
	}

	for _, tt := range tests {
		payload, ok := ParseCTCP(tt.text)
		assert.Equal(t, tt.ok, ok, "%q", tt.text)
		assert.Equal(t, tt.payload, payload, "%q", tt.text)
	}

	payload, ok := ParseCTCP(FormatCTCP("DCC SEND a 1 2 3"))
	assert.True(t, ok)
	assert.Equal(t, "DCC SEND a 1 2 3", payload)
}
