package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/fang"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	appevents "github.com/VincentCordobes/ebookz/internal/app_events"
	"github.com/VincentCordobes/ebookz/internal/config"
	"github.com/VincentCordobes/ebookz/internal/util"
	"github.com/VincentCordobes/ebookz/pkg/ircchat"
	"github.com/VincentCordobes/ebookz/pkg/receiver"
	"github.com/VincentCordobes/ebookz/pkg/results"
	"github.com/VincentCordobes/ebookz/pkg/search"
	"github.com/VincentCordobes/ebookz/pkg/transfer"
	"github.com/VincentCordobes/ebookz/pkg/ui"
)

var (
	errMissingSearch = errors.New("missing search text")
	errInterrupted   = errors.New("interrupted")
)

func main() {
	var configFile string
	v := viper.New()

	cmd := &cobra.Command{
		Use:   "ebookz [flags] <search text...>",
		Short: "Search an IRC ebook channel and download the first book offered",
		Long: `ebookz joins an IRC ebook channel, sends "@search <text>", downloads the
result listing sent by the search bot, requests every listed epub and exits
once the first book has been downloaded.`,
		Example:      `  ebookz La promesse de l'aube`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				_ = cmd.Usage()
				return errMissingSearch
			}
			cfg, err := config.Load(v, cmd.Flags(), configFile)
			if err != nil {
				return err
			}
			return run(cmd.Context(), cfg, strings.Join(args, " "))
		},
	}

	config.RegisterFlags(cmd.Flags())
	cmd.Flags().StringVar(&configFile, "config", "", "config file (yaml, toml or json)")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := fang.Execute(ctx, cmd); err != nil {
		stop()
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, query string) error {
	closeLog, err := setupLogging(cfg)
	if err != nil {
		return err
	}
	defer closeLog()

	searchConfig := cfg.Search(query)
	if err := searchConfig.Validate(); err != nil {
		return err
	}

	dialer, err := cfg.Dialer()
	if err != nil {
		return err
	}

	uiMessages := make(chan appevents.AppUIMessage, 64)
	fileReceiver := receiver.NewFileReceiver(cfg.DownloadDir, uiMessages)
	downloader := transfer.NewDownloader(dialer, cfg.Transfer(), fileReceiver, uiMessages)
	chat := ircchat.New(cfg.Chat(), dialer)
	orchestrator := search.New(searchConfig, chat, downloader, results.NewExtractor(), uiMessages)
	app := search.NewApp(chat, orchestrator)

	slog.Info("Starting search", "server", cfg.Server, "channel", cfg.Channel, "nick", cfg.Nick, "query", query, "downloadDir", fileReceiver.OutputDir())

	if cfg.Plain {
		runPlain(ctx, app)
	} else if err := runTUI(app, query); err != nil {
		return err
	}

	select {
	case <-app.Done():
	default:
		return errInterrupted
	}
	if err := app.Err(); err != nil {
		return err
	}
	fmt.Println(app.Path())
	return nil
}

func runTUI(app *search.App, query string) error {
	p := tea.NewProgram(ui.InitialModel(app, query))
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("alas, there's been an error: %w", err)
	}
	return nil
}

// setupLogging sends logs to stderr in plain mode. The TUI owns the
// terminal, so it logs to a file in the download directory instead.
func setupLogging(cfg *config.Config) (func(), error) {
	level, err := cfg.Level()
	if err != nil {
		return nil, err
	}

	var w io.Writer = os.Stderr
	closeLog := func() {}
	if !cfg.Plain {
		if err := util.EnsureDir(cfg.DownloadDir); err != nil {
			return nil, err
		}
		f, err := os.OpenFile(filepath.Join(cfg.DownloadDir, config.LogFileName), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file: %w", err)
		}
		w = f
		closeLog = func() {
			if err := f.Close(); err != nil {
				fmt.Fprintf(os.Stderr, "failed to close log file: %v\n", err)
			}
		}
	}

	slog.SetDefault(slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})))
	return closeLog, nil
}
