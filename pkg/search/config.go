package search

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	DefaultChannel     = "#ebooks"
	DefaultResultsBot  = "Search"
	DefaultSettleDelay = 2 * time.Second

	// SearchCommand prefixes the channel request that starts a search.
	SearchCommand = "@search"
)

var ErrInvalidConfiguration = errors.New("invalid search configuration")

// Config holds the orchestrator settings.
type Config struct {
	Channel    string `json:"channel" mapstructure:"channel"`
	ResultsBot string `json:"results_bot" mapstructure:"results-bot"`
	SearchText string `json:"search_text" mapstructure:"-"`
	// SettleDelay is waited after joining before the search is sent.
	SettleDelay time.Duration `json:"settle_delay" mapstructure:"settle-delay"`
	// OfferTimeout bounds the time spent awaiting an offer with no transfer
	// running. Zero waits forever.
	OfferTimeout time.Duration `json:"offer_timeout" mapstructure:"offer-timeout"`
}

func DefaultConfig() Config {
	return Config{
		Channel:     DefaultChannel,
		ResultsBot:  DefaultResultsBot,
		SettleDelay: DefaultSettleDelay,
	}
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.SearchText) == "" {
		return fmt.Errorf("%w: search text is empty", ErrInvalidConfiguration)
	}
	if !strings.HasPrefix(c.Channel, "#") && !strings.HasPrefix(c.Channel, "&") {
		return fmt.Errorf("%w: %q is not a channel name", ErrInvalidConfiguration, c.Channel)
	}
	if c.ResultsBot == "" {
		return fmt.Errorf("%w: results bot nick is empty", ErrInvalidConfiguration)
	}
	if c.SettleDelay < 0 {
		return fmt.Errorf("%w: settle delay %s is negative", ErrInvalidConfiguration, c.SettleDelay)
	}
	if c.OfferTimeout < 0 {
		return fmt.Errorf("%w: offer timeout %s is negative", ErrInvalidConfiguration, c.OfferTimeout)
	}
	return nil
}

// Request is the channel line that starts the search.
func (c Config) Request() string {
	return SearchCommand + " " + c.SearchText
}
