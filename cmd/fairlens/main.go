// Package main is the entrypoint for the FairLens CLI.
package main

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"runtime"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/fairlensai/fairlens/internal/api"
	"github.com/fairlensai/fairlens/internal/cache"
	"github.com/fairlensai/fairlens/internal/config"
	"github.com/fairlensai/fairlens/internal/httpclient"
	"github.com/fairlensai/fairlens/internal/metrics"
)

// Build-time variables set via ldflags.
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildDate = "unknown"
)

// serverFlag overrides the backend base URL for a single invocation.
var serverFlag string

// verboseFlag enables debug logging on stderr.
var verboseFlag bool

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "fairlens",
		Short: "FairLens CLI - AI governance from the terminal",
		Long: `FairLens is the command-line client for the FairLens AI-governance
platform: bias detection, security scanning, compliance tracking, and
AI bill-of-materials management.

Run 'fairlens login' to authenticate against a FairLens server.`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVar(&serverFlag, "server", "", "FairLens server URL (overrides config and FAIRLENS_API_URL)")
	rootCmd.PersistentFlags().BoolVarP(&verboseFlag, "verbose", "v", false, "Enable debug logging")

	rootCmd.AddCommand(
		newVersionCmd(),
		newLoginCmd(),
		newLogoutCmd(),
		newConfigCmd(),
		newStatusCmd(),
		newModelsCmd(),
		newDatasetsCmd(),
		newBiasCmd(),
		newSecurityCmd(),
		newComplianceCmd(),
		newBOMCmd(),
		newWatchCmd(),
		newHistoryCmd(),
	)

	return rootCmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("FairLens CLI %s\n", Version)
			fmt.Printf("  Commit:     %s\n", Commit)
			fmt.Printf("  Built:      %s\n", BuildDate)
			fmt.Printf("  Go version: %s\n", runtime.Version())
			fmt.Printf("  OS/Arch:    %s/%s\n", runtime.GOOS, runtime.GOARCH)
		},
	}
}

// newLogger builds the CLI logger. Debug output is opt-in via --verbose.
func newLogger() zerolog.Logger {
	level := zerolog.WarnLevel
	if verboseFlag {
		level = zerolog.DebugLevel
	}
	return zerolog.New(os.Stderr).With().Timestamp().Logger().Level(level)
}

// buildClient constructs the API client from config, flags, and environment.
func buildClient(cfg *config.Config, recorder *metrics.Recorder) (*api.Client, error) {
	hc, err := httpclient.New(httpclient.Options{
		SOCKS5Proxy: cfg.SOCKS5Proxy,
	})
	if err != nil {
		return nil, fmt.Errorf("create http client: %w", err)
	}

	opts := []api.Option{
		api.WithHTTPClient(hc),
		api.WithLogger(newLogger()),
		api.WithOffline(cfg.Offline),
		api.WithUserAgent("fairlens-cli/" + Version),
	}
	if recorder != nil {
		opts = append(opts, api.WithRecorder(recorder))
	}
	if cfg.Cache.Enabled {
		store, err := buildCache(cfg)
		if err != nil {
			return nil, err
		}
		opts = append(opts, api.WithCache(store, time.Duration(cfg.Cache.TTLSeconds)*time.Second))
	}

	client := api.NewClient(cfg.ResolveServerURL(serverFlag), opts...)
	if cfg.AccessToken != "" {
		client.SetAccessToken(cfg.AccessToken)
	}
	return client, nil
}

// buildCache constructs the configured response cache: Redis when an address
// is set, in-memory otherwise.
func buildCache(cfg *config.Config) (cache.Cache, error) {
	if cfg.Cache.RedisAddr == "" {
		return cache.NewMemory(), nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	store, err := cache.NewRedis(ctx, cfg.Cache.RedisAddr)
	if err != nil {
		return nil, fmt.Errorf("connect redis cache: %w", err)
	}
	return store, nil
}

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show connection status and session info",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadDefault()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}

			serverURL := cfg.ResolveServerURL(serverFlag)
			fmt.Printf("Server:    %s\n", serverURL)
			if cfg.IsLoggedIn() {
				fmt.Printf("Session:   logged in (token %s)\n", maskToken(cfg.AccessToken))
			} else {
				fmt.Println("Session:   not logged in")
			}
			if cfg.Offline {
				fmt.Println("Mode:      offline")
				return nil
			}
			fmt.Println()

			fmt.Print("Checking server connection... ")
			hc := httpclient.NewSimple(10 * time.Second)
			resp, err := hc.Get(serverURL + "/health")
			if err != nil {
				fmt.Println("FAILED")
				return fmt.Errorf("connect to server: %w", err)
			}
			defer resp.Body.Close()

			if resp.StatusCode == 200 {
				fmt.Println("OK")
				fmt.Println("Connection: Online")
			} else {
				fmt.Printf("FAILED (HTTP %d)\n", resp.StatusCode)
				return fmt.Errorf("server returned HTTP %d", resp.StatusCode)
			}
			return nil
		},
	}
}

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage CLI configuration",
	}

	cmd.AddCommand(
		newConfigShowCmd(),
		newConfigSetServerCmd(),
		newConfigSetOfflineCmd(),
	)

	return cmd
}

func newConfigShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show current configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadDefault()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}

			configPath, _ := config.DefaultConfigPath()
			fmt.Printf("Config file: %s\n", configPath)
			fmt.Println()
			fmt.Printf("Server URL:   %s\n", cfg.ResolveServerURL(""))
			if cfg.IsLoggedIn() {
				fmt.Printf("Access token: %s\n", maskToken(cfg.AccessToken))
			} else {
				fmt.Println("Access token: (not logged in)")
			}
			if cfg.Organization != "" {
				fmt.Printf("Organization: %s\n", cfg.Organization)
			}
			fmt.Printf("Offline mode: %v\n", cfg.Offline)
			if cfg.Watch.Schedule != "" {
				fmt.Printf("Watch:        %s\n", cfg.Watch.Schedule)
			}
			return nil
		},
	}
}

func newConfigSetServerCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set-server <url>",
		Short: "Set the server URL",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			serverURL := args[0]

			parsed, err := url.Parse(serverURL)
			if err != nil {
				return fmt.Errorf("invalid server URL: %w", err)
			}
			if parsed.Scheme != "http" && parsed.Scheme != "https" {
				return fmt.Errorf("server URL must use http or https scheme")
			}

			cfg, err := config.LoadDefault()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}

			cfg.ServerURL = strings.TrimSuffix(serverURL, "/")

			if err := cfg.SaveDefault(); err != nil {
				return fmt.Errorf("save config: %w", err)
			}

			fmt.Printf("Server URL set to: %s\n", cfg.ServerURL)
			return nil
		},
	}
}

func newConfigSetOfflineCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set-offline <true|false>",
		Short: "Enable or disable offline mode (no network calls)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var enabled bool
			switch strings.ToLower(args[0]) {
			case "true", "1", "yes", "on":
				enabled = true
			case "false", "0", "no", "off":
				enabled = false
			default:
				return fmt.Errorf("invalid value: use true or false")
			}

			cfg, err := config.LoadDefault()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}

			cfg.Offline = enabled

			if err := cfg.SaveDefault(); err != nil {
				return fmt.Errorf("save config: %w", err)
			}

			if enabled {
				fmt.Println("Offline mode: enabled")
			} else {
				fmt.Println("Offline mode: disabled")
			}
			return nil
		},
	}
}

// maskToken returns a masked version of a token for display.
func maskToken(token string) string {
	if len(token) <= 8 {
		return "****"
	}
	return token[:4] + "****" + token[len(token)-4:]
}
