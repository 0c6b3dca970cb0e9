package commands

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/marshallshelly/caretable/cmd/caretable/output"
	"github.com/marshallshelly/caretable/pkg/clinic"
	"github.com/marshallshelly/caretable/pkg/store"
)

// prescriptionsCmd lists a patient's prescription history
var prescriptionsCmd = &cobra.Command{
	Use:   "prescriptions <patient-id>",
	Short: "List a patient's prescription history",
	Long: `List every prescription ever issued to the patient, joined with the
visit it was issued at, the medication and the prescribing doctor.

Examples:
  caretable prescriptions 2`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		patientID, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid patient id %q", args[0])
		}
		return runPrescriptions(cmd.Context(), patientID)
	},
}

func init() {
	rootCmd.AddCommand(prescriptionsCmd)
}

func runPrescriptions(ctx context.Context, patientID int64) error {
	ss, err := openSession(ctx)
	if err != nil {
		return err
	}
	defer ss.close()

	patient, err := store.Get[clinic.Patient](ss.store, patientID)
	if err != nil {
		return err
	}

	q := clinic.NewQueries(ss.store)
	history, err := q.PrescriptionsForPatient(patientID)
	if err != nil {
		return err
	}

	output.Section(fmt.Sprintf("Prescriptions for %s", patient.FullName))
	if len(history) == 0 {
		output.Muted("no prescriptions on record")
		return nil
	}

	rows := make([][]string, 0, len(history))
	for _, h := range history {
		rows = append(rows, []string{
			h.Appointment.Date.Format("2006-01-02"),
			h.Medication.Name,
			h.Prescription.Dosage,
			strconv.FormatInt(h.Prescription.Quantity, 10),
			h.Doctor.FullName,
		})
	}
	output.Table([]string{"DATE", "MEDICATION", "DOSAGE", "QTY", "PRESCRIBED BY"}, rows)
	return nil
}
