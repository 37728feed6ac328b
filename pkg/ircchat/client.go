package ircchat

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strings"
	"sync"

	"gopkg.in/irc.v4"
)

var ErrNotConnected = errors.New("not connected to chat server")

// Handler receives chat events. Calls are made from the read loop and must
// not block.
type Handler interface {
	OnConnected(ctx context.Context)
	HandleControl(ctx context.Context, from, to, payload string)
	HandleMessage(ctx context.Context, from, to, text string)
}

// Dialer opens the server connection.
type Dialer interface {
	DialContext(ctx context.Context, network, address string) (net.Conn, error)
}

// Config holds the connection settings.
type Config struct {
	Server  string
	TLS     bool
	Nick    string
	User    string
	Name    string
	Channel string
}

// Client is an IRC connection that joins one channel.
type Client struct {
	config Config
	dialer Dialer

	mu     sync.Mutex
	conn   *irc.Client
	nick   string
	joined bool
}

func New(config Config, dialer Dialer) *Client {
	if config.User == "" {
		config.User = config.Nick
	}
	if config.Name == "" {
		config.Name = config.Nick
	}
	return &Client{config: config, dialer: dialer, nick: config.Nick}
}

// Run connects, registers and dispatches messages to handler until the
// connection drops or ctx is cancelled. Cancellation is not an error.
func (c *Client) Run(ctx context.Context, handler Handler) error {
	slog.Info("Connecting to chat server", "server", c.config.Server, "tls", c.config.TLS)
	conn, err := c.dialer.DialContext(ctx, "tcp", c.config.Server)
	if err != nil {
		return fmt.Errorf("failed to connect to %s: %w", c.config.Server, err)
	}
	defer conn.Close()

	if c.config.TLS {
		host, _, err := net.SplitHostPort(c.config.Server)
		if err != nil {
			host = c.config.Server
		}
		tlsConn := tls.Client(conn, &tls.Config{ServerName: host})
		if err := tlsConn.HandshakeContext(ctx); err != nil {
			return fmt.Errorf("TLS handshake with %s failed: %w", c.config.Server, err)
		}
		conn = tlsConn
	}

	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	client := irc.NewClient(conn, irc.ClientConfig{
		Nick: c.config.Nick,
		User: c.config.User,
		Name: c.config.Name,
		Handler: irc.HandlerFunc(func(ic *irc.Client, m *irc.Message) {
			c.handle(ctx, ic, m, handler)
		}),
	})

	c.mu.Lock()
	c.conn = client
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		c.conn = nil
		c.joined = false
		c.mu.Unlock()
	}()

	err = client.RunContext(ctx)
	if ctx.Err() != nil {
		return nil
	}
	if err != nil {
		return fmt.Errorf("chat connection lost: %w", err)
	}
	return nil
}

func (c *Client) handle(ctx context.Context, ic *irc.Client, m *irc.Message, handler Handler) {
	from := ""
	if m.Prefix != nil {
		from = m.Prefix.Name
	}

	switch m.Command {
	case "001":
		if len(m.Params) > 0 {
			c.setNick(m.Params[0])
		}
		slog.Info("Registered with chat server", "nick", c.Nick())
		if err := ic.WriteMessage(&irc.Message{Command: "JOIN", Params: []string{c.config.Channel}}); err != nil {
			slog.Error("Failed to join channel", "channel", c.config.Channel, "error", err)
		}
	case "NICK":
		if from == c.Nick() && len(m.Params) > 0 {
			c.setNick(m.Params[0])
		}
	case "JOIN":
		if from != c.Nick() || len(m.Params) == 0 || !strings.EqualFold(m.Params[0], c.config.Channel) {
			return
		}
		c.mu.Lock()
		first := !c.joined
		c.joined = true
		c.mu.Unlock()
		if first {
			slog.Info("Joined channel", "channel", c.config.Channel)
			handler.OnConnected(ctx)
		}
	case "PRIVMSG":
		if len(m.Params) == 0 {
			return
		}
		to, text := m.Params[0], m.Trailing()
		if payload, ok := ParseCTCP(text); ok {
			handler.HandleControl(ctx, from, to, payload)
			return
		}
		handler.HandleMessage(ctx, from, to, text)
	case "NOTICE":
		if len(m.Params) > 0 && m.Params[0] == c.Nick() {
			handler.HandleMessage(ctx, from, m.Params[0], m.Trailing())
		}
	}
}

// Say sends text to a channel or nick.
func (c *Client) Say(target, text string) error {
	c.mu.Lock()
	conn, joined := c.conn, c.joined
	c.mu.Unlock()

	if conn == nil || !joined {
		return ErrNotConnected
	}
	return conn.WriteMessage(&irc.Message{Command: "PRIVMSG", Params: []string{target, text}})
}

// Nick returns the nick the server registered us under.
func (c *Client) Nick() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.nick
}

func (c *Client) setNick(nick string) {
	c.mu.Lock()
	c.nick = nick
	c.mu.Unlock()
}
