package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/kozaktomas/face-roster/internal/config"
	"github.com/kozaktomas/face-roster/internal/database"
)

var identitiesCmd = &cobra.Command{
	Use:   "identities",
	Short: "List and register stored identities",
}

var identitiesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored identities",
	Long: `List one page of stored identities in scan order.

Examples:
  # First 50 identities
  face-roster identities list --limit 50

  # Continue from a cursor printed by a previous page
  face-roster identities list --cursor 50`,
	Args: cobra.NoArgs,
	RunE: runIdentitiesList,
}

var identitiesRegisterCmd = &cobra.Command{
	Use:   "register <uuid>",
	Short: "Attach a name and grade to an identity",
	Long: `Register an identity seen by the identification flow.

Example:
  face-roster identities register 5b0e3c7e-8a63-4b55-9b1c-3f0f4f6f2d11 --first-name Ada --last-name Lovelace --grade 10`,
	Args: cobra.ExactArgs(1),
	RunE: runIdentitiesRegister,
}

func init() {
	rootCmd.AddCommand(identitiesCmd)
	identitiesCmd.AddCommand(identitiesListCmd)
	identitiesCmd.AddCommand(identitiesRegisterCmd)

	identitiesListCmd.Flags().String("cursor", "", "Continuation cursor from a previous page")
	identitiesListCmd.Flags().Int("limit", database.DefaultPageSize, "Maximum number of identities to list")
	identitiesListCmd.Flags().Bool("json", false, "Output as JSON")

	identitiesRegisterCmd.Flags().String("first-name", "", "First name (required)")
	identitiesRegisterCmd.Flags().String("last-name", "", "Last name (required)")
	identitiesRegisterCmd.Flags().Int("grade", -1, "Grade (required)")
}

func runIdentitiesList(cmd *cobra.Command, args []string) error {
	cursor := mustGetString(cmd, "cursor")
	limit := database.NormalizeLimit(mustGetInt(cmd, "limit"))
	jsonOutput := mustGetBool(cmd, "json")

	ctx := context.Background()
	b, err := openStoreOnly(ctx, config.Load())
	if err != nil {
		return err
	}
	defer b.Close()

	page, err := b.store.ScanPage(ctx, cursor, limit)
	if err != nil {
		return fmt.Errorf("failed to list identities: %w", err)
	}

	identities := make([]database.StoredIdentity, 0, len(page.Identities))
	for _, identity := range page.Identities {
		identities = append(identities, identity.WithoutPhoto())
	}

	if jsonOutput {
		return outputJSON(map[string]any{
			"identities": identities,
			"nextCursor": page.NextCursor,
		})
	}

	if len(identities) == 0 {
		fmt.Println("No identities found.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "UUID\tNAME\tGRADE\tREGISTERED\tCREATED")
	fmt.Fprintln(w, "----\t----\t-----\t----------\t-------")
	for _, identity := range identities {
		grade := "-"
		if identity.Grade != nil {
			grade = fmt.Sprintf("%d", *identity.Grade)
		}
		created := "-"
		if !identity.CreatedAt.IsZero() {
			created = identity.CreatedAt.Format("2006-01-02 15:04")
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%t\t%s\n",
			identity.UUID, displayName(identity.FirstName, identity.LastName), grade, identity.IsRegistered, created)
	}
	w.Flush()

	fmt.Printf("\nShown: %d identities\n", len(identities))
	if page.NextCursor != "" {
		fmt.Printf("Next page: --cursor %s\n", page.NextCursor)
	}
	return nil
}

func runIdentitiesRegister(cmd *cobra.Command, args []string) error {
	reg := database.Registration{
		FirstName: strings.TrimSpace(mustGetString(cmd, "first-name")),
		LastName:  strings.TrimSpace(mustGetString(cmd, "last-name")),
		Grade:     mustGetInt(cmd, "grade"),
	}
	if reg.FirstName == "" || reg.LastName == "" {
		return errors.New("--first-name and --last-name are required")
	}
	if reg.Grade < 0 {
		return errors.New("--grade is required and must not be negative")
	}

	ctx := context.Background()
	b, err := openStoreOnly(ctx, config.Load())
	if err != nil {
		return err
	}
	defer b.Close()

	identity, err := b.store.Register(ctx, args[0], reg)
	if errors.Is(err, database.ErrNotFound) {
		return fmt.Errorf("identity %s not found", args[0])
	}
	if err != nil {
		return fmt.Errorf("failed to register identity: %w", err)
	}

	fmt.Printf("Registered %s as %s (grade %d)\n", identity.UUID, displayName(identity.FirstName, identity.LastName), *identity.Grade)
	return nil
}
