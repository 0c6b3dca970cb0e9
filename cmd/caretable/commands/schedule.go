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

// scheduleCmd lists a doctor's upcoming appointments
var scheduleCmd = &cobra.Command{
	Use:   "schedule <doctor-id>",
	Short: "List a doctor's upcoming appointments",
	Long: `List the visits still in the Scheduled state on or after the anchor
date, ordered by date then start time.

Examples:
  caretable schedule 1
  caretable schedule 1 --today 2026-09-01`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		doctorID, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid doctor id %q", args[0])
		}
		return runSchedule(cmd.Context(), doctorID)
	},
}

func init() {
	rootCmd.AddCommand(scheduleCmd)
}

func runSchedule(ctx context.Context, doctorID int64) error {
	ss, err := openSession(ctx)
	if err != nil {
		return err
	}
	defer ss.close()

	doctor, err := store.Get[clinic.Doctor](ss.store, doctorID)
	if err != nil {
		return err
	}
	anchor, err := today()
	if err != nil {
		return err
	}

	q := clinic.NewQueries(ss.store)
	upcoming, err := q.UpcomingAppointments(doctorID, anchor)
	if err != nil {
		return err
	}

	output.Section(fmt.Sprintf("Upcoming appointments for %s", doctor.FullName))
	if len(upcoming) == 0 {
		output.Muted("nothing scheduled")
		return nil
	}

	rows := make([][]string, 0, len(upcoming))
	for _, u := range upcoming {
		rows = append(rows, []string{
			strconv.FormatInt(u.Appointment.ID, 10),
			u.Appointment.Date.Format("2006-01-02"),
			u.Appointment.StartTime,
			u.Patient.FullName,
			u.Appointment.Reason,
		})
	}
	output.Table([]string{"ID", "DATE", "TIME", "PATIENT", "REASON"}, rows)
	return nil
}
