package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/bulktube/bulktube/internal/tokenfile"
	"github.com/bulktube/bulktube/internal/youtube"
)

// newAuthCmd builds the auth command group: login, logout, and profile
// management. Running "auth" with no subcommand shows the current status.
func newAuthCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Manage authentication and account profiles",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runAuthStatus(cmd)
		},
	}

	cmd.AddCommand(newAuthLoginCmd())
	cmd.AddCommand(newAuthLogoutCmd())
	cmd.AddCommand(newAuthSwitchCmd())
	cmd.AddCommand(newAuthListCmd())

	return cmd
}

func runAuthStatus(cmd *cobra.Command) error {
	logger := buildLogger()

	book, err := profileBook(logger)
	if err != nil {
		return err
	}

	name, err := selectedProfile(book)
	if err != nil {
		return err
	}

	fmt.Printf("Profile: %s\n", name)

	if !book.Exists(name) {
		fmt.Println("Status:  not logged in")
		fmt.Println("\nRun 'bulktube auth login' to authenticate.")

		return nil
	}

	fmt.Println("Status:  logged in")

	meta, err := tokenfile.ReadMeta(book.TokenPath(name))
	if err == nil {
		if channel := meta["channel_title"]; channel != "" {
			fmt.Printf("Channel: %s\n", channel)
		}
	}

	return nil
}

func newAuthLoginCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "login [profile]",
		Short: "Log in to a profile via the browser",
		Long: `Runs the OAuth browser flow and saves the token under the given profile
name. With no argument the selected profile is used. Logging in to a new
profile name creates it and makes it active.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := buildLogger()
			ctx := cmd.Context()

			book, err := profileBook(logger)
			if err != nil {
				return err
			}

			name := ""
			if len(args) == 1 {
				name = args[0]
			}

			if name == "" {
				name, err = selectedProfile(book)
				if err != nil {
					return err
				}
			}

			oauthCfg, err := youtube.LoadCredentials(clientSecretsPath(), cfg.Auth.Scopes)
			if err != nil {
				return fmt.Errorf("loading client secrets: %w\n\nDownload an OAuth client (Desktop app) JSON from the API console and save it to %s", err, clientSecretsPath())
			}

			statusf("Opening browser for profile %q...\n", name)

			if _, err := youtube.Login(ctx, oauthCfg, book.TokenPath(name), openBrowser, logger); err != nil {
				return err
			}

			if err := book.SetActive(name); err != nil {
				return err
			}

			fmt.Printf("Logged in. Active profile: %s\n", name)

			return nil
		},
	}

	return cmd
}

func newAuthLogoutCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "logout [profile]",
		Short: "Remove a profile's saved token",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := buildLogger()

			book, err := profileBook(logger)
			if err != nil {
				return err
			}

			name := ""
			if len(args) == 1 {
				name = args[0]
			}

			if name == "" {
				name, err = selectedProfile(book)
				if err != nil {
					return err
				}
			}

			if !book.Exists(name) {
				return fmt.Errorf("profile %q is not logged in", name)
			}

			if err := book.Delete(name); err != nil {
				return err
			}

			fmt.Printf("Logged out of profile %s\n", name)

			return nil
		},
	}

	return cmd
}

func newAuthSwitchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "switch <profile>",
		Short: "Make another profile the active one",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := buildLogger()

			book, err := profileBook(logger)
			if err != nil {
				return err
			}

			name := args[0]

			if !book.Exists(name) {
				return fmt.Errorf("profile %q is not logged in, run 'bulktube auth login %s' first", name, name)
			}

			if err := book.SetActive(name); err != nil {
				return err
			}

			fmt.Printf("Active profile: %s\n", name)

			return nil
		},
	}

	return cmd
}

func newAuthListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List known profiles",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			logger := buildLogger()

			book, err := profileBook(logger)
			if err != nil {
				return err
			}

			names, err := book.List()
			if err != nil {
				return err
			}

			if len(names) == 0 {
				statusf("No profiles. Run 'bulktube auth login' to create one.\n")
				return nil
			}

			active, err := book.Active()
			if err != nil {
				return err
			}

			rows := make([][]string, 0, len(names))

			for _, name := range names {
				marker := ""
				if name == active {
					marker = "*"
				}

				channel := ""
				if meta, metaErr := tokenfile.ReadMeta(book.TokenPath(name)); metaErr == nil {
					channel = meta["channel_title"]
				}

				rows = append(rows, []string{marker, name, channel})
			}

			printTable(os.Stdout, []string{"", "PROFILE", "CHANNEL"}, rows)

			return nil
		},
	}

	return cmd
}
