package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/exec"
	"runtime"
	"time"

	"github.com/spf13/cobra"

	"github.com/bulktube/bulktube/internal/config"
	"github.com/bulktube/bulktube/internal/history"
	"github.com/bulktube/bulktube/internal/profile"
	"github.com/bulktube/bulktube/internal/youtube"
)

// version is set at build time via ldflags.
var version = "dev"

// Global persistent flags, bound in newRootCmd().
var (
	flagConfigPath string
	flagProfile    string
	flagVerbose    bool
	flagQuiet      bool
)

// cfg holds the effective configuration loaded by PersistentPreRunE.
// It is available to all subcommands after the root pre-run phase completes.
var cfg *config.Config

// httpClientTimeout bounds individual HTTP requests. Chunk uploads send a
// few MiB per request, so this is generous rather than snappy.
const httpClientTimeout = 10 * time.Minute

// defaultHTTPClient returns an HTTP client with a sensible timeout.
func defaultHTTPClient() *http.Client {
	return &http.Client{Timeout: httpClientTimeout}
}

// newRootCmd builds and returns the fully-assembled root command with all
// subcommands registered. Called once from main().
func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "bulktube",
		Short:   "Bulk video uploader",
		Long:    "Uploads directory trees of videos to YouTube with dedup, playlists, and resumable history.",
		Version: version,
		// Silence Cobra's default error/usage printing; we handle it ourselves.
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			return loadConfig()
		},
	}

	cmd.PersistentFlags().StringVar(&flagConfigPath, "config", "", "config file path")
	cmd.PersistentFlags().StringVar(&flagProfile, "profile", "", "account profile (default: the active profile)")
	cmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "enable debug logging")
	cmd.PersistentFlags().BoolVarP(&flagQuiet, "quiet", "q", false, "suppress informational output")

	// Register subcommands.
	cmd.AddCommand(newUploadCmd())
	cmd.AddCommand(newRetryCmd())
	cmd.AddCommand(newHistoryCmd())
	cmd.AddCommand(newSyncCmd())
	cmd.AddCommand(newQuotaCmd())
	cmd.AddCommand(newPlaylistCmd())
	cmd.AddCommand(newVideoCmd())
	cmd.AddCommand(newAuthCmd())

	return cmd
}

// loadConfig resolves the effective configuration and stores the result in
// cfg for use by subcommands. A missing config file selects defaults.
func loadConfig() error {
	path := flagConfigPath
	if path == "" {
		path = config.DefaultConfigPath()
	}

	loaded, err := config.LoadOrDefault(path)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	cfg = loaded

	return nil
}

// buildLogger creates an slog.Logger configured by the resolved config and
// CLI flags. Config-file log level provides the baseline; --verbose and
// --quiet override it because CLI flags always win.
func buildLogger() *slog.Logger {
	level := slog.LevelInfo

	if cfg != nil {
		switch cfg.Logging.LogLevel {
		case "debug":
			level = slog.LevelDebug
		case "warn":
			level = slog.LevelWarn
		case "error":
			level = slog.LevelError
		}
	}

	if flagVerbose {
		level = slog.LevelDebug
	}

	if flagQuiet {
		level = slog.LevelError
	}

	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// exitOnError prints a user-friendly error message to stderr and exits.
func exitOnError(err error) {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}

// profileBook returns the profile book for the configured state directory,
// with any legacy single token file migrated in.
func profileBook(logger *slog.Logger) (*profile.Book, error) {
	book := profile.NewBook(cfg.ResolvedStateDir(), logger)

	if err := book.MigrateLegacyToken(cfg.Auth.TokenFile); err != nil {
		return nil, err
	}

	return book, nil
}

// selectedProfile resolves --profile or falls back to the active marker.
func selectedProfile(book *profile.Book) (string, error) {
	if flagProfile != "" {
		return flagProfile, nil
	}

	return book.Active()
}

// openStore opens the upload history database.
func openStore(logger *slog.Logger) (*history.Store, error) {
	return history.NewStore(cfg.HistoryDBPath(), logger)
}

// buildClient constructs an authenticated API client for the selected
// profile. Fails with ErrNotLoggedIn when the profile has no token.
func buildClient(ctx context.Context, logger *slog.Logger) (*youtube.Client, error) {
	book, err := profileBook(logger)
	if err != nil {
		return nil, err
	}

	name, err := selectedProfile(book)
	if err != nil {
		return nil, err
	}

	oauthCfg, err := youtube.LoadCredentials(clientSecretsPath(), cfg.Auth.Scopes)
	if err != nil {
		return nil, err
	}

	src, err := youtube.TokenSourceFromPath(ctx, oauthCfg, book.TokenPath(name), logger)
	if err != nil {
		return nil, err
	}

	return youtube.NewClient("", "", defaultHTTPClient(), src, cfg.Upload.RetryCount, logger), nil
}

// clientSecretsPath returns the configured client secrets location,
// defaulting to client_secrets.json in the state directory.
func clientSecretsPath() string {
	if cfg.Auth.ClientSecretsFile != "" {
		return cfg.Auth.ClientSecretsFile
	}

	return cfg.ResolvedStateDir() + "/client_secrets.json"
}

// openBrowser launches the system browser for the login flow.
func openBrowser(url string) error {
	switch runtime.GOOS {
	case "darwin":
		return exec.Command("open", url).Start()
	case "windows":
		return exec.Command("rundll32", "url.dll,FileProtocolHandler", url).Start()
	default:
		return exec.Command("xdg-open", url).Start()
	}
}
