package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/bulktube/bulktube/internal/youtube"
)

// newPlaylistCmd builds the playlist command group.
func newPlaylistCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "playlist",
		Short: "Inspect and manage channel playlists",
	}

	cmd.AddCommand(newPlaylistListCmd())
	cmd.AddCommand(newPlaylistItemsCmd())
	cmd.AddCommand(newPlaylistRenameCmd())
	cmd.AddCommand(newPlaylistAddCmd())
	cmd.AddCommand(newPlaylistRemoveCmd())

	return cmd
}

func newPlaylistListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the channel's playlists",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			logger := buildLogger()
			ctx := cmd.Context()

			client, err := buildClient(ctx, logger)
			if err != nil {
				return err
			}

			playlists, err := client.ListPlaylists(ctx)
			if err != nil {
				return err
			}

			if len(playlists) == 0 {
				statusf("No playlists.\n")
				return nil
			}

			rows := make([][]string, 0, len(playlists))
			for _, p := range playlists {
				rows = append(rows, []string{
					p.ID,
					truncateCell(p.Title, 50),
					strconv.FormatInt(p.ItemCount, 10),
					p.Privacy,
				})
			}

			printTable(os.Stdout, []string{"ID", "TITLE", "VIDEOS", "PRIVACY"}, rows)

			return nil
		},
	}

	return cmd
}

func newPlaylistItemsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "items <playlist name or ID>",
		Short: "List the videos in a playlist",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := buildLogger()
			ctx := cmd.Context()

			client, err := buildClient(ctx, logger)
			if err != nil {
				return err
			}

			cache := youtube.NewPlaylistCache(client, logger)

			playlistID, err := cache.Resolve(ctx, args[0])
			if err != nil {
				return err
			}

			items, err := client.ListPlaylistItems(ctx, playlistID)
			if err != nil {
				return err
			}

			if len(items) == 0 {
				statusf("Playlist is empty.\n")
				return nil
			}

			rows := make([][]string, 0, len(items))
			for _, item := range items {
				rows = append(rows, []string{
					strconv.FormatInt(item.Position+1, 10),
					item.VideoID,
					truncateCell(item.Title, 60),
				})
			}

			printTable(os.Stdout, []string{"#", "VIDEO", "TITLE"}, rows)

			return nil
		},
	}

	return cmd
}

func newPlaylistAddCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add <playlist name or ID> <video ID>...",
		Short: "Add videos to a playlist",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := buildLogger()
			ctx := cmd.Context()

			client, err := buildClient(ctx, logger)
			if err != nil {
				return err
			}

			cache := youtube.NewPlaylistCache(client, logger)

			playlistID, err := cache.Resolve(ctx, args[0])
			if err != nil {
				return err
			}

			for _, videoID := range args[1:] {
				if err := cache.Attach(ctx, playlistID, videoID); err != nil {
					return fmt.Errorf("adding %s: %w", videoID, err)
				}
			}

			fmt.Printf("Added %d video(s) to %q\n", len(args)-1, args[0])

			return nil
		},
	}

	return cmd
}

func newPlaylistRemoveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "remove <playlist name or ID> <video ID>...",
		Short: "Remove videos from a playlist",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := buildLogger()
			ctx := cmd.Context()

			client, err := buildClient(ctx, logger)
			if err != nil {
				return err
			}

			cache := youtube.NewPlaylistCache(client, logger)

			playlistID, err := cache.Resolve(ctx, args[0])
			if err != nil {
				return err
			}

			for _, videoID := range args[1:] {
				if err := cache.Detach(ctx, playlistID, videoID); err != nil {
					return fmt.Errorf("removing %s: %w", videoID, err)
				}
			}

			fmt.Printf("Removed %d video(s) from %q\n", len(args)-1, args[0])

			return nil
		},
	}

	return cmd
}

func newPlaylistRenameCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rename <playlist name or ID> <new title>",
		Short: "Rename a playlist",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := buildLogger()
			ctx := cmd.Context()

			client, err := buildClient(ctx, logger)
			if err != nil {
				return err
			}

			cache := youtube.NewPlaylistCache(client, logger)

			if err := cache.Rename(ctx, args[0], args[1]); err != nil {
				return err
			}

			fmt.Printf("Renamed %q to %q\n", args[0], args[1])

			return nil
		},
	}

	return cmd
}
