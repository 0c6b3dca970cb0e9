package commands

import (
	"context"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/marshallshelly/caretable/cmd/caretable/output"
	"github.com/marshallshelly/caretable/pkg/clinic"
	"github.com/marshallshelly/caretable/pkg/pg"
)

// seedCmd populates the store with the demo clinic dataset
var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Populate the store with the demo clinic dataset",
	Long: `Build a fresh store holding the demo clinic and, when a database is
configured, overwrite the persisted snapshot with it.

Examples:
  caretable seed --db postgres://localhost/caretable
  CARETABLE_DB_URL=postgres://localhost/caretable caretable seed`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSeed(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(seedCmd)
}

func runSeed(ctx context.Context) error {
	s, err := clinic.NewStore(storeOptions()...)
	if err != nil {
		return err
	}
	anchor, err := today()
	if err != nil {
		return err
	}
	if _, err := clinic.Seed(s, anchor); err != nil {
		return err
	}

	output.Section("Seeded clinic")
	for _, name := range s.Registry().AllNames() {
		n, err := s.Count(name)
		if err != nil {
			return err
		}
		output.Info("%-24s %d rows", name, n)
	}

	url := viper.GetString("db_url")
	if url == "" {
		output.Warning("No database configured; dataset not persisted")
		return nil
	}

	db, err := pg.ConnectWithURL(ctx, url)
	if err != nil {
		return err
	}
	defer db.Close()
	if err := db.EnsureSchema(ctx); err != nil {
		return err
	}
	snap, err := s.Snapshot()
	if err != nil {
		return err
	}
	if err := db.SaveSnapshot(ctx, snap); err != nil {
		return err
	}
	output.Success("Snapshot saved")
	return nil
}
