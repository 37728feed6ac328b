package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/VincentCordobes/ebookz/pkg/ircchat"
	"github.com/VincentCordobes/ebookz/pkg/search"
	"github.com/VincentCordobes/ebookz/pkg/transfer"
)

const (
	EnvPrefix = "EBOOKZ"

	DefaultServer      = "irc.irchighway.net:6667"
	DefaultNickPrefix  = "ebookz"
	DefaultDownloadDir = "tmp"
	DefaultLogLevel    = "info"

	// LogFileName is created in the download directory when the TUI owns
	// the terminal.
	LogFileName = "ebookz.log"
)

var ErrInvalidConfiguration = errors.New("invalid configuration")

// Config is the full set of settings for one run.
type Config struct {
	Server       string        `mapstructure:"server"`
	TLS          bool          `mapstructure:"tls"`
	Nick         string        `mapstructure:"nick"`
	Channel      string        `mapstructure:"channel"`
	ResultsBot   string        `mapstructure:"results-bot"`
	DownloadDir  string        `mapstructure:"download-dir"`
	SettleDelay  time.Duration `mapstructure:"settle-delay"`
	OfferTimeout time.Duration `mapstructure:"offer-timeout"`
	DialTimeout  time.Duration `mapstructure:"dial-timeout"`
	BufferSize   int           `mapstructure:"buffer-size"`
	Proxy        string        `mapstructure:"proxy"`
	Plain        bool          `mapstructure:"plain"`
	LogLevel     string        `mapstructure:"log-level"`
}

// Default returns the settings used when nothing is configured. The nick
// gets a short random suffix so parallel runs do not collide.
func Default() *Config {
	return &Config{
		Server:      DefaultServer,
		Nick:        DefaultNickPrefix + uuid.New().String()[:4],
		Channel:     search.DefaultChannel,
		ResultsBot:  search.DefaultResultsBot,
		DownloadDir: DefaultDownloadDir,
		SettleDelay: search.DefaultSettleDelay,
		DialTimeout: transfer.DefaultDialTimeout,
		BufferSize:  transfer.DefaultBufferSize,
		LogLevel:    DefaultLogLevel,
	}
}

// RegisterFlags adds one flag per setting to fs.
func RegisterFlags(fs *pflag.FlagSet) {
	d := Default()
	fs.String("server", d.Server, "IRC server address (host:port)")
	fs.Bool("tls", d.TLS, "connect to the IRC server over TLS")
	fs.String("nick", d.Nick, "nick to register with")
	fs.String("channel", d.Channel, "channel to search in")
	fs.String("results-bot", d.ResultsBot, "nick of the bot that sends result listings")
	fs.String("download-dir", d.DownloadDir, "directory downloads are written to")
	fs.Duration("settle-delay", d.SettleDelay, "wait after joining before searching")
	fs.Duration("offer-timeout", d.OfferTimeout, "give up when no offer arrives for this long (0 waits forever)")
	fs.Duration("dial-timeout", d.DialTimeout, "timeout for opening connections")
	fs.Int("buffer-size", d.BufferSize, "transfer read buffer size in bytes")
	fs.String("proxy", d.Proxy, "proxy URL, e.g. socks5://127.0.0.1:1080 (default: ALL_PROXY or direct)")
	fs.Bool("plain", d.Plain, "print events as log lines instead of the interactive view")
	fs.String("log-level", d.LogLevel, "log level: debug, info, warn or error")
}

// Load resolves the settings from, in increasing priority, defaults, the
// config file, EBOOKZ_* environment variables and flags set on fs.
func Load(v *viper.Viper, fs *pflag.FlagSet, configFile string) (*Config, error) {
	d := Default()
	for key, value := range map[string]any{
		"server":        d.Server,
		"tls":           d.TLS,
		"nick":          d.Nick,
		"channel":       d.Channel,
		"results-bot":   d.ResultsBot,
		"download-dir":  d.DownloadDir,
		"settle-delay":  d.SettleDelay,
		"offer-timeout": d.OfferTimeout,
		"dial-timeout":  d.DialTimeout,
		"buffer-size":   d.BufferSize,
		"proxy":         d.Proxy,
		"plain":         d.Plain,
		"log-level":     d.LogLevel,
	} {
		v.SetDefault(key, value)
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if fs != nil {
		if err := v.BindPFlags(fs); err != nil {
			return nil, fmt.Errorf("failed to bind flags: %w", err)
		}
	}

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", configFile, err)
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("failed to decode configuration: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

func (c *Config) Validate() error {
	if _, _, err := net.SplitHostPort(c.Server); err != nil {
		return fmt.Errorf("%w: server %q: %w", ErrInvalidConfiguration, c.Server, err)
	}
	if c.Nick == "" || strings.ContainsAny(c.Nick, " ,*?!@#") {
		return fmt.Errorf("%w: invalid nick %q", ErrInvalidConfiguration, c.Nick)
	}
	if c.DownloadDir == "" {
		return fmt.Errorf("%w: download directory is empty", ErrInvalidConfiguration)
	}
	if _, err := c.Level(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfiguration, err)
	}

	// Search text is not known yet; validate the rest with a placeholder.
	sc := c.Search("-")
	if err := sc.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfiguration, err)
	}
	if err := c.Transfer().Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfiguration, err)
	}
	return nil
}

// Level parses LogLevel.
func (c *Config) Level() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return 0, fmt.Errorf("log level %q: %w", c.LogLevel, err)
	}
	return level, nil
}

// Search returns the orchestrator settings for searchText.
func (c *Config) Search(searchText string) search.Config {
	return search.Config{
		Channel:      c.Channel,
		ResultsBot:   c.ResultsBot,
		SearchText:   searchText,
		SettleDelay:  c.SettleDelay,
		OfferTimeout: c.OfferTimeout,
	}
}

// Transfer returns the DCC transfer settings.
func (c *Config) Transfer() *transfer.Config {
	return &transfer.Config{
		BufferSize:  c.BufferSize,
		DialTimeout: c.DialTimeout,
	}
}

// Chat returns the IRC connection settings.
func (c *Config) Chat() ircchat.Config {
	return ircchat.Config{
		Server:  c.Server,
		TLS:     c.TLS,
		Nick:    c.Nick,
		Channel: c.Channel,
	}
}
