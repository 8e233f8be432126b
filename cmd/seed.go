package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/spf13/cobra"

	"github.com/salonkit/salonkit/internal/inspirations"
	"github.com/salonkit/salonkit/internal/progress"
)

var (
	seedDir      string
	seedUser     string
	seedCategory string
	seedTags     []string
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Bulk import inspiration images from a directory",
	Long: `Scans a directory recursively for image files and imports each one as
an inspiration image. The title is derived from the file name and the
category from the containing directory unless --category is given.
After importing, the semantic index is rebuilt.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		a, err := buildApp(cfg)
		if err != nil {
			return err
		}
		defer a.Close()

		root, err := filepath.Abs(seedDir)
		if err != nil {
			return err
		}

		matches, err := doublestar.FilepathGlob(filepath.Join(root, "**", "*.{png,jpg,jpeg,webp}"))
		if err != nil {
			return fmt.Errorf("scanning %s: %w", root, err)
		}
		if len(matches) == 0 {
			fmt.Fprintf(os.Stderr, "No images found under %s\n", root)
			return nil
		}

		ctx := context.Background()
		reporter := progress.NewReporter("Importing images")
		reporter.Start(len(matches))

		imported := 0
		for i, path := range matches {
			reporter.Update(i+1, filepath.Base(path))

			category := seedCategory
			if category == "" {
				if parent := filepath.Base(filepath.Dir(path)); parent != filepath.Base(root) {
					category = parent
				}
			}

			_, err := a.inspirations.Create(ctx, seedUser, inspirations.CreateParams{
				Title:     titleFromFilename(path),
				Category:  category,
				Tags:      seedTags,
				ImagePath: path,
			})
			if err != nil {
				fmt.Fprintf(os.Stderr, "skipping %s: %v\n", path, err)
				continue
			}
			imported++
		}
		reporter.Finish()

		indexed, err := a.inspirations.Reindex(ctx, seedUser)
		if err != nil {
			return fmt.Errorf("rebuilding semantic index: %w", err)
		}

		fmt.Printf("Imported %d image(s), indexed %d\n", imported, indexed)
		return nil
	},
}

// titleFromFilename turns "cherry-blossom_01.png" into "cherry blossom 01".
func titleFromFilename(path string) string {
	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	name = strings.ReplaceAll(name, "-", " ")
	name = strings.ReplaceAll(name, "_", " ")
	return strings.Join(strings.Fields(name), " ")
}

func init() {
	seedCmd.Flags().StringVar(&seedDir, "dir", ".", "directory to scan for images")
	seedCmd.Flags().StringVar(&seedUser, "user", "anonymous", "artist ID the images belong to")
	seedCmd.Flags().StringVar(&seedCategory, "category", "", "category for all imported images (default: containing directory)")
	seedCmd.Flags().StringSliceVar(&seedTags, "tags", nil, "tags applied to all imported images")
	rootCmd.AddCommand(seedCmd)
}
