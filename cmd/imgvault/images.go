package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"imgvault/internal/api"
	"imgvault/internal/config"
	"imgvault/internal/models"
)

func newUploadCmd(cfg *config.Config, jsonOutput *bool) *cobra.Command {
	var (
		caption string
		albums  []string
	)

	cmd := &cobra.Command{
		Use:   "upload <file>...",
		Short: "Upload one or more images",
		Args:  requireAtLeastArgs(1, "file is required"),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cfg, func(client *api.Client) error {
				uploaded := make([]models.Image, 0, len(args))
				for _, path := range args {
					image, err := uploadFile(cmd, client, path, caption, albums)
					if err != nil {
						return fmt.Errorf("%s: %w", path, err)
					}
					uploaded = append(uploaded, image)
					if !*jsonOutput {
						if err := writePlain("%s\n", formatImageLine(image)); err != nil {
							return err
						}
					}
				}
				if *jsonOutput {
					return writeJSON(uploaded)
				}
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&caption, "caption", "", "caption for every uploaded image")
	cmd.Flags().StringArrayVar(&albums, "album", nil, "existing album to add the images to (repeatable)")
	return cmd
}

func uploadFile(cmd *cobra.Command, client *api.Client, path, caption string, albums []string) (models.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return models.Image{}, err
	}
	defer f.Close()
	return client.UploadImage(cmd.Context(), filepath.Base(path), f, caption, albums)
}

func newListCmd(cfg *config.Config, jsonOutput *bool) *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List your images",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cfg, func(client *api.Client) error {
				images, err := client.ListImages(cmd.Context())
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

func newShowCmd(cfg *config.Config, jsonOutput *bool) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show one image",
		Args:  cobra.MatchAll(requireExactlyArgs(1, "image id is required"), requireImageIDArg(0)),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cfg, func(client *api.Client) error {
				image, err := client.GetImage(cmd.Context(), normalizeImageArg(args[0]))
				if err != nil {
					return err
				}
				if *jsonOutput {
					return writeJSON(image)
				}
				return writeImageDetail(image)
			})
		},
	}
}

func newDownloadCmd(cfg *config.Config) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "download <id>",
		Short: "Write the stored image bytes to a file or stdout",
		Args:  cobra.MatchAll(requireExactlyArgs(1, "image id is required"), requireImageIDArg(0)),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cfg, func(client *api.Client) error {
				var w io.Writer = os.Stdout
				if output != "" && output != "-" {
					f, err := os.Create(output)
					if err != nil {
						return err
					}
					defer f.Close()
					w = f
				}
				return client.DownloadImage(cmd.Context(), normalizeImageArg(args[0]), w)
			})
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default stdout)")
	return cmd
}

func newCaptionCmd(cfg *config.Config, jsonOutput *bool) *cobra.Command {
	return &cobra.Command{
		Use:   "caption <id> <text>",
		Short: "Replace an image caption",
		Args:  cobra.MatchAll(requireExactlyArgs(2, "image id and caption are required"), requireImageIDArg(0)),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cfg, func(client *api.Client) error {
				image, err := client.UpdateCaption(cmd.Context(), normalizeImageArg(args[0]), args[1])
				if err != nil {
					return err
				}
				if *jsonOutput {
					return writeJSON(image)
				}
				return writePlain("%s\n", formatImageLine(image))
			})
		},
	}
}

func newRemoveCmd(cfg *config.Config, jsonOutput *bool) *cobra.Command {
	return &cobra.Command{
		Use:     "rm <id>...",
		Aliases: []string{"delete"},
		Short:   "Delete images with their stored files",
		Args:    requireImageIDs(0, "image id is required"),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cfg, func(client *api.Client) error {
				result, err := client.DeleteImages(cmd.Context(), normalizeImageArgs(args))
				if *jsonOutput && result.Requested > 0 {
					if writeErr := writeJSON(result); writeErr != nil {
						return writeErr
					}
					return err
				}
				if err != nil {
					return err
				}
				return writeBulkResult("images", result)
			})
		},
	}
}
