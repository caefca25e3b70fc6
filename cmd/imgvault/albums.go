package main

import (
	"github.com/spf13/cobra"

	"imgvault/internal/api"
	"imgvault/internal/config"
)

func newAlbumCmd(cfg *config.Config, jsonOutput *bool) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "album",
		Short: "Manage albums",
	}
	cmd.AddCommand(
		newAlbumCreateCmd(cfg, jsonOutput),
		newAlbumListCmd(cfg, jsonOutput),
		newAlbumShowCmd(cfg, jsonOutput),
		newAlbumAddCmd(cfg),
		newAlbumRemoveImageCmd(cfg),
		newAlbumDeleteCmd(cfg, jsonOutput, "rm <name>", "Delete an album", func(c *api.Client, cmd *cobra.Command, name string, fromStorage bool) (api.BulkDeleteResponse, error) {
			return c.DeleteAlbum(cmd.Context(), name, fromStorage)
		}),
		newAlbumDeleteCmd(cfg, jsonOutput, "clear <name>", "Remove every image from an album", func(c *api.Client, cmd *cobra.Command, name string, fromStorage bool) (api.BulkDeleteResponse, error) {
			return c.ClearAlbum(cmd.Context(), name, fromStorage)
		}),
	)
	return cmd
}

func newAlbumCreateCmd(cfg *config.Config, jsonOutput *bool) *cobra.Command {
	var description string

	cmd := &cobra.Command{
		Use:   "create <name>",
		Short: "Create an album",
		Args:  requireExactlyArgs(1, "album name is required"),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cfg, func(client *api.Client) error {
				album, err := client.CreateAlbum(cmd.Context(), api.AlbumCreateRequest{Name: args[0], Description: description})
				if err != nil {
					return err
				}
				if *jsonOutput {
					return writeJSON(album)
				}
				return writePlain("created album %s\n", album.Name)
			})
		},
	}

	cmd.Flags().StringVar(&description, "description", "", "album description")
	return cmd
}

func newAlbumListCmd(cfg *config.Config, jsonOutput *bool) *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List your albums",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cfg, func(client *api.Client) error {
				albums, err := client.ListAlbums(cmd.Context())
				if err != nil {
					return err
				}
				if *jsonOutput {
					return writeJSON(albums)
				}
				return writeAlbumList(albums)
			})
		},
	}
}

func newAlbumShowCmd(cfg *config.Config, jsonOutput *bool) *cobra.Command {
	return &cobra.Command{
		Use:   "show <name>",
		Short: "List the images of an album",
		Args:  requireExactlyArgs(1, "album name is required"),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cfg, func(client *api.Client) error {
				images, err := client.ListAlbumImages(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if *jsonOutput {
					return writeJSON(images)
				}
				return writeImageList(images)
			})
		},
	}
}

func newAlbumAddCmd(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "add <name> <id>...",
		Short: "Add images to an album",
		Args:  requireImageIDs(1, "album name and image id are required"),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cfg, func(client *api.Client) error {
				for _, id := range normalizeImageArgs(args[1:]) {
					if err := client.AddToAlbum(cmd.Context(), args[0], id); err != nil {
						return err
					}
				}
				return writePlain("added %d images to %s\n", len(args)-1, args[0])
			})
		},
	}
}

func newAlbumRemoveImageCmd(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <name> <id>...",
		Short: "Detach images from an album without deleting them",
		Args:  requireImageIDs(1, "album name and image id are required"),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cfg, func(client *api.Client) error {
				for _, id := range normalizeImageArgs(args[1:]) {
					if err := client.RemoveFromAlbum(cmd.Context(), args[0], id); err != nil {
						return err
					}
				}
				return writePlain("removed %d images from %s\n", len(args)-1, args[0])
			})
		},
	}
}

type albumDeleteFunc func(c *api.Client, cmd *cobra.Command, name string, fromStorage bool) (api.BulkDeleteResponse, error)

// newAlbumDeleteCmd builds rm and clear. Both require --from-storage or
// --keep-images so image deletion is never implied.
func newAlbumDeleteCmd(cfg *config.Config, jsonOutput *bool, use, short string, run albumDeleteFunc) *cobra.Command {
	var (
		fromStorage bool
		keepImages  bool
	)

	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		Args:  requireExactlyArgs(1, "album name is required"),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cfg, func(client *api.Client) error {
				result, err := run(client, cmd, args[0], fromStorage)
				if *jsonOutput && result.Requested+result.Detached > 0 {
					if writeErr := writeJSON(result); writeErr != nil {
						return writeErr
					}
					return err
				}
				if err != nil {
					return err
				}
				if *jsonOutput {
					return writeJSON(result)
				}
				return writeBulkResult("album "+args[0], result)
			})
		},
	}

	cmd.Flags().BoolVar(&fromStorage, "from-storage", false, "also delete the album's images")
	cmd.Flags().BoolVar(&keepImages, "keep-images", false, "only detach the album's images")
	cmd.MarkFlagsOneRequired("from-storage", "keep-images")
	cmd.MarkFlagsMutuallyExclusive("from-storage", "keep-images")
	return cmd
}
