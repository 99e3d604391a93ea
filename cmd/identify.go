package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/kozaktomas/face-roster/internal/config"
	"github.com/kozaktomas/face-roster/internal/photo"
	"github.com/kozaktomas/face-roster/internal/recognition"
)

var identifyCmd = &cobra.Command{
	Use:   "identify <photo-file>",
	Short: "Identify the person on a photo file",
	Long: `Identify the person on a local photo file.

The photo is compared against every stored identity. When nobody matches, a new
unregistered identity is created. The inferred emotion is always reported.

Examples:
  # Identify a photo
  face-roster identify student.jpg

  # Print the response envelope as JSON
  face-roster identify student.jpg --json`,
	Args: cobra.ExactArgs(1),
	RunE: runIdentify,
}

func init() {
	rootCmd.AddCommand(identifyCmd)

	identifyCmd.Flags().Bool("json", false, "Output the response envelope as JSON")
}

func runIdentify(cmd *cobra.Command, args []string) error {
	jsonOutput := mustGetBool(cmd, "json")

	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("failed to read photo: %w", err)
	}

	ctx := context.Background()
	b, err := openBackends(ctx, config.Load())
	if err != nil {
		return err
	}
	defer b.Close()

	res := b.service().Identify(ctx, recognition.Request{Photo: photo.Encode(data)})

	if jsonOutput {
		return outputJSON(recognition.BuildEnvelope(res))
	}
	if res.Err != nil {
		return fmt.Errorf("identification failed (%s): %w", recognition.ErrorKind(res.Err), res.Err)
	}

	printIdentification(res.Identification)
	b.printUsage()
	return nil
}

func printIdentification(id *recognition.Identification) {
	status := "Matched existing identity"
	if id.Created {
		status = "Created new identity"
	}
	fmt.Println(status)
	fmt.Printf("  UUID:       %s\n", id.UUID)
	fmt.Printf("  Name:       %s\n", displayName(id.FirstName, id.LastName))
	if id.Grade != nil {
		fmt.Printf("  Grade:      %d\n", *id.Grade)
	}
	fmt.Printf("  Registered: %t\n", id.IsRegistered)
	fmt.Printf("  Emotion:    %s\n", id.Emotion)
}

func displayName(first, last *string) string {
	if first == nil && last == nil {
		return "(unregistered)"
	}
	var name string
	if first != nil {
		name = *first
	}
	if last != nil {
		if name != "" {
			name += " "
		}
		name += *last
	}
	return name
}

func outputJSON(data any) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(data); err != nil {
		return fmt.Errorf("encoding JSON output: %w", err)
	}
	return nil
}
