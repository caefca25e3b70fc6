package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"

	internalauth "imgvault/internal/auth"
	"imgvault/internal/config"
	"imgvault/internal/media"
	"imgvault/internal/metrics"
)

const defaultImportParallel = 4

// importManifest lists albums to create and local files to upload.
type importManifest struct {
	Albums []importAlbum `yaml:"albums"`
	Images []importImage `yaml:"images"`
}

type importAlbum struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
}

type importImage struct {
	Path    string   `yaml:"path"`
	Caption string   `yaml:"caption"`
	Albums  []string `yaml:"albums"`
}

type importFailure struct {
	Path  string `json:"path" yaml:"path"`
	Error string `json:"error" yaml:"error"`
}

type importSummary struct {
	AlbumsCreated  int             `json:"albums_created" yaml:"albums_created"`
	AlbumsExisting int             `json:"albums_existing" yaml:"albums_existing"`
	Uploaded       []string        `json:"uploaded" yaml:"uploaded"`
	Failed         []importFailure `json:"failed,omitempty" yaml:"failed,omitempty"`
	DryRun         bool            `json:"dry_run" yaml:"dry_run"`
}

func newImportCmd(cfg *config.Config, jsonOutput *bool) *cobra.Command {
	var (
		email    string
		dryRun   bool
		parallel int
	)

	cmd := &cobra.Command{
		Use:   "import <manifest.yaml>",
		Short: "Upload local images described in a YAML manifest",
		Args:  requireExactlyArgs(1, "manifest path is required"),
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(email) == "" {
				return errors.New("--email is required")
			}
			if parallel < 1 {
				return errors.New("--parallel must be at least 1")
			}
			owner, err := internalauth.NormalizeEmail(email)
			if err != nil {
				return err
			}

			manifest, err := loadImportManifest(args[0])
			if err != nil {
				return err
			}
			baseDir := filepath.Dir(args[0])

			logger := slog.Default().With("component", "import")
			backend, err := openLocalBackend(cmd.Context(), cfg, logger, metrics.Nop{})
			if err != nil {
				return err
			}
			defer backend.Close()

			user, err := backend.store.GetUserByEmail(cmd.Context(), owner)
			if err != nil {
				return err
			}
			if user == nil {
				return fmt.Errorf("user %s not found", owner)
			}

			var summary importSummary
			if dryRun {
				summary = checkImport(manifest, baseDir)
			} else {
				summary = runImport(cmd.Context(), backend.media, user.ID, manifest, baseDir, parallel, logger)
			}

			if *jsonOutput {
				if err := writeJSON(summary); err != nil {
					return err
				}
			} else if err := writeImportSummary(summary); err != nil {
				return err
			}
			if len(summary.Failed) > 0 {
				return fmt.Errorf("%d of %d images failed to import", len(summary.Failed), len(manifest.Images))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "owner account email")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "check the manifest and files without uploading")
	cmd.Flags().IntVar(&parallel, "parallel", defaultImportParallel, "number of concurrent uploads")
	return cmd
}

func loadImportManifest(path string) (*importManifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var manifest importManifest
	if err := yaml.Unmarshal(data, &manifest); err != nil {
		return nil, fmt.Errorf("parse manifest %s: %w", path, err)
	}
	for i, album := range manifest.Albums {
		if strings.TrimSpace(album.Name) == "" {
			return nil, fmt.Errorf("albums[%d]: name is required", i)
		}
	}
	for i, image := range manifest.Images {
		if strings.TrimSpace(image.Path) == "" {
			return nil, fmt.Errorf("images[%d]: path is required", i)
		}
	}
	if len(manifest.Images) == 0 && len(manifest.Albums) == 0 {
		return nil, fmt.Errorf("manifest %s lists no albums or images", path)
	}
	return &manifest, nil
}

func resolveImportPath(baseDir, path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(baseDir, path)
}

func checkImport(manifest *importManifest, baseDir string) importSummary {
	summary := importSummary{DryRun: true}
	for _, image := range manifest.Images {
		path := resolveImportPath(baseDir, image.Path)
		info, err := os.Stat(path)
		switch {
		case err != nil:
			summary.Failed = append(summary.Failed, importFailure{Path: image.Path, Error: err.Error()})
		case info.IsDir():
			summary.Failed = append(summary.Failed, importFailure{Path: image.Path, Error: "is a directory"})
		}
	}
	return summary
}

// runImport creates the manifest's albums, then uploads every image through
// the regular upload path with at most parallel uploads in flight. A failed
// image does not stop the rest; results keep manifest order.
func runImport(ctx context.Context, svc *media.Service, ownerID string, manifest *importManifest, baseDir string, parallel int, logger *slog.Logger) importSummary {
	var summary importSummary

	for _, album := range manifest.Albums {
		_, err := svc.CreateAlbum(ctx, ownerID, album.Name, album.Description)
		switch {
		case err == nil:
			summary.AlbumsCreated++
		case errors.Is(err, media.ErrAlbumExists):
			summary.AlbumsExisting++
		default:
			summary.Failed = append(summary.Failed, importFailure{Path: "album:" + album.Name, Error: err.Error()})
		}
	}

	ids := make([]string, len(manifest.Images))
	errs := make([]error, len(manifest.Images))

	var g errgroup.Group
	g.SetLimit(max(parallel, 1))
	for i, image := range manifest.Images {
		g.Go(func() error {
			ids[i], errs[i] = importOne(ctx, svc, ownerID, image, resolveImportPath(baseDir, image.Path))
			return nil
		})
	}
	_ = g.Wait()

	for i, image := range manifest.Images {
		if errs[i] != nil {
			logger.Warn("import failed", "path", image.Path, "error", errs[i])
			summary.Failed = append(summary.Failed, importFailure{Path: image.Path, Error: errs[i].Error()})
			continue
		}
		summary.Uploaded = append(summary.Uploaded, ids[i])
	}
	return summary
}

func importOne(ctx context.Context, svc *media.Service, ownerID string, image importImage, path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return "", err
	}

	uploaded, err := svc.Upload(ctx, ownerID, media.UploadInput{
		Meta:    media.FileMeta{Filename: filepath.Base(path), DeclaredSize: info.Size()},
		Content: f,
		Caption: image.Caption,
		Albums:  image.Albums,
	})
	if err != nil {
		return "", err
	}
	return uploaded.ID, nil
}

func writeImportSummary(summary importSummary) error {
	for _, failure := range summary.Failed {
		if err := writePlain("failed: %s: %s\n", failure.Path, failure.Error); err != nil {
			return err
		}
	}
	if summary.DryRun {
		return writePlain("manifest checked, %d problems\n", len(summary.Failed))
	}
	return writePlain("imported %d images, created %d albums (%d already existed)\n",
		len(summary.Uploaded), summary.AlbumsCreated, summary.AlbumsExisting)
}
