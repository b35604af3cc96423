package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/fairlensai/fairlens/internal/config"
)

func newLoginCmd() *cobra.Command {
	var email string
	var password string
	var refresh bool

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Authenticate against the FairLens server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadDefault()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}

			if refresh {
				return refreshSession(cfg)
			}

			reader := bufio.NewReader(os.Stdin)
			if email == "" {
				fmt.Print("Email: ")
				line, err := reader.ReadString('\n')
				if err != nil {
					return fmt.Errorf("read email: %w", err)
				}
				email = strings.TrimSpace(line)
			}
			if password == "" {
				password = os.Getenv("FAIRLENS_PASSWORD")
			}
			if password == "" {
				fmt.Print("Password: ")
				line, err := reader.ReadString('\n')
				if err != nil {
					return fmt.Errorf("read password: %w", err)
				}
				password = strings.TrimSpace(line)
			}
			if email == "" || password == "" {
				return fmt.Errorf("email and password are required")
			}

			client, err := buildClient(cfg, nil)
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()

			tokens, err := client.Login(ctx, email, password)
			if err != nil {
				return fmt.Errorf("login failed: %w", err)
			}

			cfg.ServerURL = cfg.ResolveServerURL(serverFlag)
			cfg.AccessToken = tokens.AccessToken
			cfg.RefreshToken = tokens.RefreshToken

			if err := cfg.SaveDefault(); err != nil {
				return fmt.Errorf("save session: %w", err)
			}

			fmt.Printf("Logged in to %s as %s\n", cfg.ServerURL, email)
			return nil
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "Account email")
	cmd.Flags().StringVar(&password, "password", "", "Account password (falls back to FAIRLENS_PASSWORD, then prompts)")
	cmd.Flags().BoolVar(&refresh, "refresh", false, "Renew the session from the stored refresh token instead of prompting")

	return cmd
}

// refreshSession exchanges the persisted refresh token for a new token pair.
func refreshSession(cfg *config.Config) error {
	if cfg.RefreshToken == "" {
		return fmt.Errorf("no refresh token stored; run 'fairlens login' first")
	}

	client, err := buildClient(cfg, nil)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	tokens, err := client.RefreshSession(ctx, cfg.RefreshToken)
	if err != nil {
		return fmt.Errorf("refresh session: %w", err)
	}

	cfg.AccessToken = tokens.AccessToken
	if tokens.RefreshToken != "" {
		cfg.RefreshToken = tokens.RefreshToken
	}

	if err := cfg.SaveDefault(); err != nil {
		return fmt.Errorf("save session: %w", err)
	}

	fmt.Println("Session refreshed")
	return nil
}

func newLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "End the current session",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadDefault()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}

			if !cfg.IsLoggedIn() {
				fmt.Println("Not logged in")
				return nil
			}

			client, err := buildClient(cfg, nil)
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
			defer cancel()

			// Local session state is cleared even when the server call fails.
			if err := client.Logout(ctx); err != nil {
				fmt.Fprintf(os.Stderr, "Warning: server logout failed: %v\n", err)
			}

			cfg.ClearSession()
			if err := cfg.SaveDefault(); err != nil {
				return fmt.Errorf("save config: %w", err)
			}

			fmt.Println("Logged out")
			return nil
		},
	}
}
