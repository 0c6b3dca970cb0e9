package commands

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/marshallshelly/caretable/cmd/caretable/output"
	"github.com/marshallshelly/caretable/cmd/caretable/tui"
	"github.com/marshallshelly/caretable/pkg/runtime"
)

var deleteYes bool

// deleteCmd deletes a row and everything that depends on it
var deleteCmd = &cobra.Command{
	Use:   "delete <entity> <id>",
	Short: "Delete a row and everything that depends on it",
	Long: `Delete the row and propagate over the relationship graph: dependent
rows on cascade edges are removed, nullable references are cleared, and a
restricted dependent aborts the whole delete. The root delete and every
propagated effect commit as one unit.

Examples:
  caretable delete patients 3
  caretable delete doctors 1 --yes`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.ParseInt(args[1], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid id %q", args[1])
		}
		return runDelete(cmd.Context(), args[0], id)
	},
}

func init() {
	rootCmd.AddCommand(deleteCmd)

	deleteCmd.Flags().BoolVarP(&deleteYes, "yes", "y", false, "Skip the confirmation dialog")
}

func runDelete(ctx context.Context, entity string, id int64) error {
	ss, err := openSession(ctx)
	if err != nil {
		return err
	}
	defer ss.close()

	if !ss.store.Registry().HasEntity(entity) {
		return fmt.Errorf("unknown entity %q (one of: %v)", entity, ss.store.Registry().AllNames())
	}

	if !deleteYes {
		ok, err := tui.Confirm(
			"Delete "+entity+"/"+strconv.FormatInt(id, 10),
			"Dependent rows will be deleted or unlinked with it.\nThis cannot be undone.",
		)
		if err != nil {
			return err
		}
		if !ok {
			output.Muted("aborted")
			return nil
		}
	}

	if err := ss.store.Delete(entity, id); err != nil {
		var restricted *runtime.RestrictedDeleteViolation
		if errors.As(err, &restricted) {
			output.Error("Delete blocked by restricted dependents:")
			for _, dep := range restricted.Dependents {
				output.Muted("  %s", dep.String())
			}
			return nil
		}
		if errors.Is(err, runtime.ErrNotFound) {
			output.Warning("No such row: %s/%d", entity, id)
			return nil
		}
		return err
	}
	if err := ss.save(ctx); err != nil {
		return err
	}
	output.Success("Deleted %s/%d", entity, id)
	return nil
}
