package cmd

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"text/tabwriter"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/kozaktomas/face-roster/internal/config"
	"github.com/kozaktomas/face-roster/internal/constants"
	"github.com/kozaktomas/face-roster/internal/photo"
	"github.com/kozaktomas/face-roster/internal/recognition"
)

var batchCmd = &cobra.Command{
	Use:   "batch <directory>",
	Short: "Identify every photo in a directory",
	Long: `Identify every photo found in a directory tree.

Each photo goes through the same flow as a single identification: unknown people
are registered on first sight, so running a class photo directory seeds the roster.

Examples:
  # Identify all photos under ./intake
  face-roster batch ./intake

  # Print per-file results as JSON
  face-roster batch ./intake --json`,
	Args: cobra.ExactArgs(1),
	RunE: runBatch,
}

func init() {
	rootCmd.AddCommand(batchCmd)

	batchCmd.Flags().Int("concurrency", constants.DefaultBatchWorkers, "Number of photos identified in parallel")
	batchCmd.Flags().Bool("json", false, "Output as JSON")
}

// BatchItem is the outcome for a single file
type BatchItem struct {
	File    string `json:"file"`
	UUID    string `json:"uuid,omitempty"`
	Status  string `json:"status"`
	Emotion string `json:"emotion,omitempty"`
	Error   string `json:"error,omitempty"`
}

// BatchResult summarizes a batch run
type BatchResult struct {
	Items         []BatchItem `json:"items"`
	Created       int         `json:"created"`
	Matched       int         `json:"matched"`
	Failed        int         `json:"failed"`
	DurationMs    int64       `json:"duration_ms"`
	DurationHuman string      `json:"-"`
}

// collectPhotos returns photo files under dir in lexical order.
func collectPhotos(dir string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if slices.Contains(constants.PhotoExtensions, strings.ToLower(filepath.Ext(path))) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scanning %s: %w", dir, err)
	}
	slices.Sort(files)
	return files, nil
}

// identifyFile runs one identification and converts it into a BatchItem.
func identifyFile(ctx context.Context, svc *recognition.Service, path string) BatchItem {
	item := BatchItem{File: path}

	data, err := os.ReadFile(path)
	if err != nil {
		item.Status = "failed"
		item.Error = err.Error()
		return item
	}

	res := svc.Identify(ctx, recognition.Request{Photo: photo.Encode(data)})
	if res.Err != nil {
		item.Status = "failed"
		item.Error = fmt.Sprintf("%s: %v", recognition.ErrorKind(res.Err), res.Err)
		return item
	}

	item.UUID = res.Identification.UUID
	item.Emotion = res.Identification.Emotion
	item.Status = recognition.StatusMatched
	if res.Identification.Created {
		item.Status = recognition.StatusCreated
	}
	return item
}

func runBatch(cmd *cobra.Command, args []string) error {
	concurrency := max(mustGetInt(cmd, "concurrency"), 1)
	jsonOutput := mustGetBool(cmd, "json")

	files, err := collectPhotos(args[0])
	if err != nil {
		return err
	}
	if len(files) == 0 {
		fmt.Println("No photos found.")
		return nil
	}

	ctx := context.Background()
	b, err := openBackends(ctx, config.Load())
	if err != nil {
		return err
	}
	defer b.Close()
	svc := b.service()

	var bar *progressbar.ProgressBar
	if !jsonOutput {
		bar = progressbar.NewOptions(len(files),
			progressbar.OptionSetDescription("Identifying"),
			progressbar.OptionShowCount(),
			progressbar.OptionShowIts(),
			progressbar.OptionSetItsString("photos"),
			progressbar.OptionShowElapsedTimeOnFinish(),
			progressbar.OptionSetPredictTime(true),
			progressbar.OptionFullWidth(),
		)
	}

	startTime := time.Now()
	items := make([]BatchItem, len(files))
	sem := make(chan struct{}, concurrency)
	var wg sync.WaitGroup

	for i, path := range files {
		wg.Add(1)
		go func() {
			defer wg.Done()

			sem <- struct{}{}
			defer func() { <-sem }()

			items[i] = identifyFile(ctx, svc, path)

			if bar != nil {
				bar.Add(1)
			}
		}()
	}

	wg.Wait()

	if bar != nil {
		fmt.Println()
	}

	result := summarizeBatch(items, time.Since(startTime))

	if jsonOutput {
		return outputJSON(result)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "FILE\tSTATUS\tUUID\tEMOTION\tERROR")
	fmt.Fprintln(w, "----\t------\t----\t-------\t-----")
	for _, item := range result.Items {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", item.File, item.Status, item.UUID, item.Emotion, item.Error)
	}
	w.Flush()

	fmt.Println("\nBatch complete!")
	fmt.Printf("  Created:  %d\n", result.Created)
	fmt.Printf("  Matched:  %d\n", result.Matched)
	if result.Failed > 0 {
		fmt.Printf("  Failed:   %d\n", result.Failed)
	}
	fmt.Printf("  Duration: %s\n", result.DurationHuman)
	b.printUsage()

	return nil
}

func summarizeBatch(items []BatchItem, duration time.Duration) BatchResult {
	result := BatchResult{
		Items:         items,
		DurationMs:    duration.Milliseconds(),
		DurationHuman: formatDuration(duration),
	}
	for _, item := range items {
		switch item.Status {
		case recognition.StatusCreated:
			result.Created++
		case recognition.StatusMatched:
			result.Matched++
		default:
			result.Failed++
		}
	}
	return result
}

func formatDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
	if d < time.Hour {
		return fmt.Sprintf("%dm%ds", int(d.Minutes()), int(d.Seconds())%60)
	}
	return fmt.Sprintf("%dh%dm", int(d.Hours()), int(d.Minutes())%60)
}
