package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/bulktube/bulktube/internal/youtube"
)

// newVideoCmd builds the video command group.
func newVideoCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "video",
		Short: "Manage uploaded videos",
	}

	cmd.AddCommand(newVideoUpdatePrivacyCmd())

	return cmd
}

func newVideoUpdatePrivacyCmd() *cobra.Command {
	var flagPlaylist string

	cmd := &cobra.Command{
		Use:   "update-privacy <privacy> [video ID...]",
		Short: "Change the privacy status of videos",
		Long: `Sets the privacy status of one or more videos to public, private, or
unlisted. Video IDs are given as arguments, or --playlist targets every video
in a playlist at once.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := buildLogger()
			ctx := cmd.Context()

			privacy := args[0]
			if !youtube.ValidPrivacy(privacy) {
				return fmt.Errorf("invalid privacy status %q (want %s)",
					privacy, strings.Join(youtube.PrivacyStatuses, ", "))
			}

			videoIDs := args[1:]

			if flagPlaylist == "" && len(videoIDs) == 0 {
				return fmt.Errorf("give video IDs or --playlist")
			}

			client, err := buildClient(ctx, logger)
			if err != nil {
				return err
			}

			if flagPlaylist != "" {
				cache := youtube.NewPlaylistCache(client, logger)

				playlistID, resolveErr := cache.Resolve(ctx, flagPlaylist)
				if resolveErr != nil {
					return resolveErr
				}

				items, listErr := client.ListPlaylistItems(ctx, playlistID)
				if listErr != nil {
					return listErr
				}

				for _, item := range items {
					videoIDs = append(videoIDs, item.VideoID)
				}
			}

			var failed int

			for _, id := range videoIDs {
				if err := client.UpdatePrivacy(ctx, id, privacy); err != nil {
					failed++
					fmt.Printf("✗ %s: %v\n", id, err)

					continue
				}

				statusf("✓ %s -> %s\n", id, privacy)
			}

			if failed > 0 {
				return fmt.Errorf("%d of %d update(s) failed", failed, len(videoIDs))
			}

			statusf("Updated %d video(s).\n", len(videoIDs))

			return nil
		},
	}

	cmd.Flags().StringVar(&flagPlaylist, "playlist", "", "update every video in this playlist")

	return cmd
}
