package commands

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/marshallshelly/caretable/cmd/caretable/output"
	"github.com/marshallshelly/caretable/pkg/clinic"
	"github.com/marshallshelly/caretable/pkg/pg"
	"github.com/marshallshelly/caretable/pkg/store"
)

var (
	// Global flags
	dbURL    string
	todayStr string
	verbose  bool
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "caretable",
	Short: "Caretable - integrity-enforcing clinical operations store",
	Long: `Caretable keeps a clinic's operational data in a constraint-checked
in-memory store: patients, doctors, appointments, prescriptions and the
medication formulary. Every mutation passes the constraint engine, and
deletes propagate over the relationship graph.

State can be checkpointed to and recovered from PostgreSQL. Without a
database the CLI runs against an ephemeral seeded store, which is handy
for exploring the commands.`,
	Version: "0.3.0",
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringVar(&dbURL, "db", "", "PostgreSQL URL for snapshot persistence (env: CARETABLE_DB_URL)")
	rootCmd.PersistentFlags().StringVar(&todayStr, "today", "", "Anchor date for schedule queries, YYYY-MM-DD (default: today)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose output")
	_ = viper.BindPFlag("db_url", rootCmd.PersistentFlags().Lookup("db"))
}

func initConfig() {
	viper.SetEnvPrefix("caretable")
	viper.AutomaticEnv()
	_ = viper.BindEnv("db_url")
}

// today resolves the --today flag, falling back to the wall clock.
func today() (time.Time, error) {
	if todayStr == "" {
		return time.Now().UTC(), nil
	}
	t, err := time.Parse("2006-01-02", todayStr)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid --today value %q: expected YYYY-MM-DD", todayStr)
	}
	return t, nil
}

func storeOptions() []store.Option {
	if !verbose {
		return nil
	}
	log := logrus.New()
	log.SetOutput(os.Stderr)
	log.SetLevel(logrus.DebugLevel)
	return []store.Option{store.WithLogger(log)}
}

// session is one CLI invocation's view of the store: restored from the
// configured database when there is one, an ephemeral seeded store when
// there is not.
type session struct {
	store *store.Store
	db    *pg.DB
}

func openSession(ctx context.Context) (*session, error) {
	s, err := clinic.NewStore(storeOptions()...)
	if err != nil {
		return nil, err
	}

	url := viper.GetString("db_url")
	if url == "" {
		anchor, err := today()
		if err != nil {
			return nil, err
		}
		if _, err := clinic.Seed(s, anchor); err != nil {
			return nil, err
		}
		output.Muted("no database configured; using an ephemeral seeded store")
		return &session{store: s}, nil
	}

	db, err := pg.ConnectWithURL(ctx, url)
	if err != nil {
		return nil, err
	}
	if err := db.EnsureSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}
	snap, err := db.LoadSnapshot(ctx)
	if err != nil {
		db.Close()
		return nil, err
	}
	if len(snap.Entities) > 0 {
		if err := s.Restore(snap); err != nil {
			db.Close()
			return nil, err
		}
	}
	return &session{store: s, db: db}, nil
}

// save checkpoints the store back to the database, if there is one.
func (ss *session) save(ctx context.Context) error {
	if ss.db == nil {
		return nil
	}
	snap, err := ss.store.Snapshot()
	if err != nil {
		return err
	}
	return ss.db.SaveSnapshot(ctx, snap)
}

func (ss *session) close() {
	if ss.db != nil {
		ss.db.Close()
	}
}
