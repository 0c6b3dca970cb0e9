package commands

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/marshallshelly/caretable/cmd/caretable/output"
	"github.com/marshallshelly/caretable/pkg/clinic"
)

// searchCmd finds patients or doctors by name prefix
var searchCmd = &cobra.Command{
	Use:   "search <patients|doctors> <prefix>",
	Short: "Find patients or doctors by name prefix",
	Long: `Look up people whose full name starts with the given prefix, using
the name index rather than a full scan.

Examples:
  caretable search patients "Ben"
  caretable search doctors "Dr. M"`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSearch(cmd.Context(), args[0], args[1])
	},
}

func init() {
	rootCmd.AddCommand(searchCmd)
}

func runSearch(ctx context.Context, kind, prefix string) error {
	ss, err := openSession(ctx)
	if err != nil {
		return err
	}
	defer ss.close()

	q := clinic.NewQueries(ss.store)
	var rows [][]string
	switch kind {
	case clinic.EntityPatients:
		patients, err := q.SearchPatientsByName(prefix)
		if err != nil {
			return err
		}
		for _, p := range patients {
			rows = append(rows, []string{strconv.FormatInt(p.ID, 10), p.FullName, p.Phone})
		}
	case clinic.EntityDoctors:
		doctors, err := q.SearchDoctorsByName(prefix)
		if err != nil {
			return err
		}
		for _, d := range doctors {
			rows = append(rows, []string{strconv.FormatInt(d.ID, 10), d.FullName, d.LicenseNumber})
		}
	default:
		return fmt.Errorf("unknown search target %q: expected patients or doctors", kind)
	}

	if len(rows) == 0 {
		output.Muted("no matches for %q", prefix)
		return nil
	}
	output.Table([]string{"ID", "NAME", "CONTACT"}, rows)
	return nil
}
