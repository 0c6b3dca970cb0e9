package commands

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/marshallshelly/caretable/cmd/caretable/output"
	"github.com/marshallshelly/caretable/pkg/clinic"
	"github.com/marshallshelly/caretable/pkg/runtime"
)

var lowStockThreshold int64

// lowstockCmd lists medications running low on stock
var lowstockCmd = &cobra.Command{
	Use:   "lowstock",
	Short: "List medications running low on stock",
	Long: `List medications whose stock is strictly below the threshold, lowest
stock first.

Examples:
  caretable lowstock
  caretable lowstock --threshold 25`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runLowStock(cmd.Context())
	},
}

// restockCmd adjusts a medication's stock level
var restockCmd = &cobra.Command{
	Use:   "restock <medication-id> <delta>",
	Short: "Adjust a medication's stock level",
	Long: `Apply a positive or negative delta to a medication's stock. A delta
that would drive stock negative is rejected and leaves the row untouched.

Examples:
  caretable restock 2 100
  caretable restock 3 -5`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		medID, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid medication id %q", args[0])
		}
		delta, err := strconv.ParseInt(args[1], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid delta %q", args[1])
		}
		return runRestock(cmd.Context(), medID, delta)
	},
}

func init() {
	rootCmd.AddCommand(lowstockCmd)
	rootCmd.AddCommand(restockCmd)

	lowstockCmd.Flags().Int64Var(&lowStockThreshold, "threshold", clinic.DefaultLowStockThreshold, "Stock level below which a medication counts as low")
}

func runLowStock(ctx context.Context) error {
	ss, err := openSession(ctx)
	if err != nil {
		return err
	}
	defer ss.close()

	q := clinic.NewQueries(ss.store)
	meds, err := q.LowStockMedications(lowStockThreshold)
	if err != nil {
		return err
	}

	output.Section(fmt.Sprintf("Medications below %d units", lowStockThreshold))
	if len(meds) == 0 {
		output.Success("Stock levels are healthy")
		return nil
	}

	rows := make([][]string, 0, len(meds))
	for _, m := range meds {
		rows = append(rows, []string{
			strconv.FormatInt(m.ID, 10),
			m.Name,
			strconv.FormatInt(m.StockQuantity, 10),
			m.LastRestockDate.Format("2006-01-02"),
		})
	}
	output.Table([]string{"ID", "MEDICATION", "STOCK", "LAST RESTOCK"}, rows)
	return nil
}

func runRestock(ctx context.Context, medID, delta int64) error {
	ss, err := openSession(ctx)
	if err != nil {
		return err
	}
	defer ss.close()

	anchor, err := today()
	if err != nil {
		return err
	}

	q := clinic.NewQueries(ss.store)
	level, err := q.AdjustStock(medID, delta, anchor)
	if err != nil {
		if runtime.IsViolation(err) {
			output.Error("Rejected: %v", err)
			return nil
		}
		return err
	}
	if err := ss.save(ctx); err != nil {
		return err
	}
	output.Success("Stock adjusted to %d units", level)
	return nil
}
