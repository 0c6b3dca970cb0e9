package clinic

import (
	"fmt"
	"time"

	"github.com/marshallshelly/caretable/pkg/runtime"
	"github.com/marshallshelly/caretable/pkg/store"
)

// DefaultLowStockThreshold is the stock level below which a medication
// counts as low on stock.
const DefaultLowStockThreshold = 10

// Queries is the read-side facade over a clinical store. Every method
// resolves rows through a secondary index rather than a full scan.
type Queries struct {
	store *store.Store
}

// NewQueries wraps a store.
func NewQueries(s *store.Store) *Queries {
	return &Queries{store: s}
}

// Store returns the underlying store.
func (q *Queries) Store() *store.Store {
	return q.store
}

// UpcomingAppointment is one scheduled visit joined with its patient.
type UpcomingAppointment struct {
	Appointment Appointment
	Patient     Patient
}

// UpcomingAppointments returns a doctor's visits that are still in the
// Scheduled state on or after the given day, ordered by date then start
// time. The day portion of today is what bounds the scan; the clock is
// ignored.
func (q *Queries) UpcomingAppointments(doctorID int64, today time.Time) ([]UpcomingAppointment, error) {
	ids, err := q.store.IndexRange(
		EntityAppointments, IndexAppointmentsDoctorDate,
		[]any{doctorID, dateOnly(today)},
		[]any{doctorID + 1},
	)
	if err != nil {
		return nil, err
	}

	out := make([]UpcomingAppointment, 0, len(ids))
	for _, id := range ids {
		appt, err := store.Get[Appointment](q.store, id)
		if err != nil {
			return nil, err
		}
		if appt.Status != StatusScheduled {
			continue
		}
		patient, err := store.Get[Patient](q.store, appt.PatientID)
		if err != nil {
			return nil, err
		}
		out = append(out, UpcomingAppointment{Appointment: appt, Patient: patient})
	}
	return out, nil
}

// PatientPrescription is one medication order joined with the visit it was
// issued at, the medication and the prescribing doctor.
type PatientPrescription struct {
	Prescription Prescription
	Medication   Medication
	Appointment  Appointment
	Doctor       Doctor
}

// PrescriptionsForPatient returns every prescription ever issued to the
// patient, ordered by visit date and then by prescription identifier
// within a visit.
func (q *Queries) PrescriptionsForPatient(patientID int64) ([]PatientPrescription, error) {
	apptIDs, err := q.store.IndexPrefix(EntityAppointments, IndexAppointmentsPatient, patientID)
	if err != nil {
		return nil, err
	}

	var out []PatientPrescription
	for _, apptID := range apptIDs {
		appt, err := store.Get[Appointment](q.store, apptID)
		if err != nil {
			return nil, err
		}
		doctor, err := store.Get[Doctor](q.store, appt.DoctorID)
		if err != nil {
			return nil, err
		}
		rxIDs, err := q.store.IndexPrefix(EntityPrescriptions, IndexPrescriptionsAppt, apptID)
		if err != nil {
			return nil, err
		}
		for _, rxID := range rxIDs {
			rx, err := store.Get[Prescription](q.store, rxID)
			if err != nil {
				return nil, err
			}
			med, err := store.Get[Medication](q.store, rx.MedicationID)
			if err != nil {
				return nil, err
			}
			out = append(out, PatientPrescription{
				Prescription: rx,
				Medication:   med,
				Appointment:  appt,
				Doctor:       doctor,
			})
		}
	}
	return out, nil
}

// LowStockMedications returns medications with stock strictly below the
// threshold, lowest stock first. A non-positive threshold falls back to
// DefaultLowStockThreshold.
func (q *Queries) LowStockMedications(threshold int64) ([]Medication, error) {
	if threshold <= 0 {
		threshold = DefaultLowStockThreshold
	}
	ids, err := q.store.IndexRange(EntityMedications, IndexMedicationsStock, nil, []any{threshold})
	if err != nil {
		return nil, err
	}
	out := make([]Medication, 0, len(ids))
	for _, id := range ids {
		med, err := store.Get[Medication](q.store, id)
		if err != nil {
			return nil, err
		}
		out = append(out, med)
	}
	return out, nil
}

// SearchPatientsByName returns patients whose full name starts with the
// given prefix, in name order.
func (q *Queries) SearchPatientsByName(prefix string) ([]Patient, error) {
	ids, err := q.store.IndexStringPrefix(EntityPatients, IndexPatientsName, prefix)
	if err != nil {
		return nil, err
	}
	out := make([]Patient, 0, len(ids))
	for _, id := range ids {
		p, err := store.Get[Patient](q.store, id)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

// SearchDoctorsByName returns doctors whose full name starts with the
// given prefix, in name order.
func (q *Queries) SearchDoctorsByName(prefix string) ([]Doctor, error) {
	ids, err := q.store.IndexStringPrefix(EntityDoctors, IndexDoctorsName, prefix)
	if err != nil {
		return nil, err
	}
	out := make([]Doctor, 0, len(ids))
	for _, id := range ids {
		d, err := store.Get[Doctor](q.store, id)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, nil
}

// AdjustStock applies a delta to a medication's stock and returns the new
// level. The read and the write happen in one store critical section, so
// concurrent adjustments never lose a delta. A delta that would drive
// stock negative is rejected by the range check and leaves the row
// untouched. Positive deltas stamp the restock date.
func (q *Queries) AdjustStock(medicationID, delta int64, now time.Time) (int64, error) {
	med, err := store.Modify(q.store, medicationID, func(m Medication) (Medication, error) {
		m.StockQuantity += delta
		if delta > 0 {
			m.LastRestockDate = dateOnly(now)
		}
		return m, nil
	})
	if err != nil {
		return 0, err
	}
	return med.StockQuantity, nil
}

// AssignSpecialization links a doctor to a specialization. Assigning the
// same pair twice is a uniqueness violation.
func (q *Queries) AssignSpecialization(doctorID, specializationID int64) error {
	_, err := q.store.Insert(DoctorSpecialization{
		DoctorID:         doctorID,
		SpecializationID: specializationID,
	})
	return err
}

// RemoveSpecialization unlinks a doctor from a specialization.
func (q *Queries) RemoveSpecialization(doctorID, specializationID int64) error {
	links, err := store.Rows[DoctorSpecialization](q.store)
	if err != nil {
		return err
	}
	for key, link := range links {
		if link.DoctorID == doctorID && link.SpecializationID == specializationID {
			return q.store.Delete(EntityDoctorSpecializations, key)
		}
	}
	return fmt.Errorf("%w: doctor %d has no specialization %d", runtime.ErrNotFound, doctorID, specializationID)
}

// SpecializationsOf returns the specializations linked to a doctor,
// including the primary one only if it is also linked.
func (q *Queries) SpecializationsOf(doctorID int64) ([]Specialization, error) {
	links, err := store.List[DoctorSpecialization](q.store)
	if err != nil {
		return nil, err
	}
	var out []Specialization
	for _, link := range links {
		if link.DoctorID != doctorID {
			continue
		}
		spec, err := store.Get[Specialization](q.store, link.SpecializationID)
		if err != nil {
			return nil, err
		}
		out = append(out, spec)
	}
	return out, nil
}

// dateOnly truncates a time to its UTC calendar day.
func dateOnly(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
