package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/iksnae/orgdash/internal"
	"github.com/iksnae/orgdash/internal/dashboard"
	"github.com/iksnae/orgdash/internal/export"
	"github.com/spf13/cobra"
)

var (
	format    string
	outputDir string
	useCache  bool
	maxAge    time.Duration
)

// exportCmd represents the export command
var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the dashboard to a file",
	Long: `Export the loaded dashboard to various formats (jsonl, md, yaml, json).

The dashboard is loaded fresh unless --cached is given and a snapshot
younger than --max-age exists. Use --out - to write to standard output.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, a *app) error {
			exporter, err := export.NewExporter(format, a.format)
			if err != nil {
				return err
			}

			sess, err := a.resume()
			if err != nil {
				return err
			}

			var snap dashboard.Snapshot
			key := cacheKey(dashboard.SessionInfo{OrganizationID: sess.OrganizationID})
			loaded := false
			if useCache && a.cache.IsCacheValid(key, maxAge) {
				if _, err := a.cache.LoadSnapshot(key, &snap); err == nil {
					internal.LogInfo("Using cached snapshot from %s", snap.LoadedAt.Format(time.RFC822))
					loaded = true
				} else if !errors.Is(err, internal.ErrCacheMiss) {
					internal.LogWarn("Failed to load cache: %v, reloading...", err)
				}
			}
			if !loaded {
				err := internal.ShowProgress(ctx, "Loading dashboard", func() error {
					return a.orch.Boot(ctx)
				})
				if err := bootError(err); err != nil {
					return err
				}
				a.saveSnapshot()
				snap = a.orch.Snapshot()
			}

			if outputDir == "-" {
				if err := exporter.Export(&snap, cmd.OutOrStdout()); err != nil {
					return &internal.ExportError{Format: format, Path: "stdout", Err: err}
				}
				return nil
			}

			path, err := writeExport(exporter, &snap)
			if err != nil {
				return err
			}
			internal.PrintSuccess(fmt.Sprintf("Export complete: %s", path))
			return nil
		})
	},
}

func writeExport(exporter export.Exporter, snap *dashboard.Snapshot) (string, error) {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}

	stamp := snap.LoadedAt
	if stamp.IsZero() {
		stamp = time.Now()
	}
	filename := fmt.Sprintf("dashboard_%s_%s.%s", cacheKey(snap.Session), stamp.Format("20060102-150405"), exporter.Extension())
	path := filepath.Join(outputDir, filename)

	file, err := os.Create(path)
	if err != nil {
		return "", &internal.ExportError{Format: format, Path: path, Err: err}
	}
	if err := exporter.Export(snap, file); err != nil {
		_ = file.Close()
		return "", &internal.ExportError{Format: format, Path: path, Err: err}
	}
	if err := file.Close(); err != nil {
		return "", &internal.ExportError{Format: format, Path: path, Err: err}
	}
	return path, nil
}

func init() {
	rootCmd.AddCommand(exportCmd)
	exportCmd.Flags().StringVarP(&format, "format", "f", "json", "Export format (jsonl, md, yaml, json)")
	exportCmd.Flags().StringVarP(&outputDir, "out", "o", "./exports", "Output directory, or - for stdout")
	exportCmd.Flags().BoolVar(&useCache, "cached", false, "Use the cached snapshot when it is fresh")
	exportCmd.Flags().DurationVar(&maxAge, "max-age", 15*time.Minute, "Maximum age of a cached snapshot")
}
