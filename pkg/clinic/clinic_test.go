package clinic_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marshallshelly/caretable/pkg/clinic"
	"github.com/marshallshelly/caretable/pkg/runtime"
	"github.com/marshallshelly/caretable/pkg/store"
)

func count(t *testing.T, s *store.Store, entity string) int {
	t.Helper()
	n, err := s.Count(entity)
	require.NoError(t, err)
	return n
}

func TestPatientDeleteCascades(t *testing.T) {
	s, ids := newSeededStore(t)

	require.NoError(t, s.Delete(clinic.EntityPatients, ids.Bennett))

	assert.Equal(t, 2, count(t, s, clinic.EntityPatients))
	assert.Equal(t, 2, count(t, s, clinic.EntityPatientPhones), "Bennett's phone goes with him")
	assert.Equal(t, 2, count(t, s, clinic.EntityAppointments), "both Bennett visits go with him")
	assert.Equal(t, 0, count(t, s, clinic.EntityPrescriptions), "prescriptions go with the visits")
	assert.Equal(t, 2, count(t, s, clinic.EntityDoctors), "doctors are untouched")
	assert.Equal(t, 3, count(t, s, clinic.EntityMedications), "the formulary is untouched")
}

func TestDoctorDeleteCascades(t *testing.T) {
	s, ids := newSeededStore(t)

	require.NoError(t, s.Delete(clinic.EntityDoctors, ids.DrChen))

	assert.Equal(t, 1, count(t, s, clinic.EntityAppointments), "only the Okoro visit survives")
	assert.Equal(t, 0, count(t, s, clinic.EntityPrescriptions))
	assert.Equal(t, 3, count(t, s, clinic.EntityPatients), "patients are never deleted through a doctor")

	links, err := store.Rows[clinic.DoctorSpecialization](s)
	require.NoError(t, err)
	for _, link := range links {
		assert.NotEqual(t, ids.DrChen, link.DoctorID, "specialization links go with the doctor")
	}
	assert.Len(t, links, 1)
}

func TestSpecializationDelete(t *testing.T) {
	s, ids := newSeededStore(t)

	require.NoError(t, s.Delete(clinic.EntitySpecializations, ids.Cardiology))

	doctor, err := store.Get[clinic.Doctor](s, ids.DrChen)
	require.NoError(t, err)
	assert.Nil(t, doctor.PrimarySpecializationID, "primary reference is cleared, not cascaded")

	links, err := store.Rows[clinic.DoctorSpecialization](s)
	require.NoError(t, err)
	for _, link := range links {
		assert.NotEqual(t, ids.Cardiology, link.SpecializationID)
	}
	assert.Len(t, links, 2, "only the cardiology links are removed")
}

func TestAppointmentDeleteCascades(t *testing.T) {
	s, ids := newSeededStore(t)

	require.NoError(t, s.Delete(clinic.EntityAppointments, ids.BennettPast))

	assert.Equal(t, 0, count(t, s, clinic.EntityPrescriptions))
	assert.Equal(t, 3, count(t, s, clinic.EntityMedications), "medications outlive the prescriptions naming them")
}

func TestDeleteCascadeIsRetrySafe(t *testing.T) {
	s, ids := newSeededStore(t)

	require.NoError(t, s.DeleteCascade(clinic.EntityPatients, ids.Cho))
	require.NoError(t, s.DeleteCascade(clinic.EntityPatients, ids.Cho), "second attempt is a no-op")
	assert.ErrorIs(t, s.Delete(clinic.EntityPatients, ids.Cho), runtime.ErrNotFound, "strict delete still reports the miss")
}

func TestClinicConstraints(t *testing.T) {
	s, ids := newSeededStore(t)
	email := "amara.diallo@example.com"

	t.Run("duplicate patient email", func(t *testing.T) {
		_, err := s.Insert(clinic.Patient{
			FullName:    "Imposter",
			DateOfBirth: time.Date(1990, 1, 1, 0, 0, 0, 0, time.UTC),
			Gender:      clinic.GenderOther,
			Phone:       "+1-555-0900",
			Email:       &email,
		})
		var uniq *runtime.UniquenessViolation
		require.ErrorAs(t, err, &uniq)
	})

	t.Run("patients without email never collide", func(t *testing.T) {
		_, err := s.Insert(clinic.Patient{
			FullName:    "Noor Haddad",
			DateOfBirth: time.Date(1990, 1, 1, 0, 0, 0, 0, time.UTC),
			Gender:      clinic.GenderFemale,
			Phone:       "+1-555-0901",
		})
		require.NoError(t, err, "Cho also has no email on file")
	})

	t.Run("unknown gender", func(t *testing.T) {
		_, err := s.Insert(clinic.Patient{
			FullName:    "Rook Vance",
			DateOfBirth: time.Date(1990, 1, 1, 0, 0, 0, 0, time.UTC),
			Gender:      "Unknown",
			Phone:       "+1-555-0902",
		})
		var domain *runtime.DomainViolation
		require.ErrorAs(t, err, &domain)
		assert.Equal(t, "gender", domain.Field)
	})

	t.Run("appointment with missing doctor", func(t *testing.T) {
		_, err := s.Insert(clinic.Appointment{
			PatientID: ids.Amara,
			DoctorID:  404,
			Date:      anchor,
			StartTime: "10:00",
			Status:    clinic.StatusScheduled,
		})
		var ref *runtime.ReferenceViolation
		require.ErrorAs(t, err, &ref)
		assert.Equal(t, clinic.EntityDoctors, ref.Target)
	})

	t.Run("non-positive prescription quantity", func(t *testing.T) {
		_, err := s.Insert(clinic.Prescription{
			AppointmentID: ids.ChenToday,
			MedicationID:  ids.Atorvastatin,
			Dosage:        "20mg",
			Quantity:      0,
		})
		var rng *runtime.RangeViolation
		require.ErrorAs(t, err, &rng)
		assert.Equal(t, "> 0", rng.Constraint)
	})

	t.Run("negative stock", func(t *testing.T) {
		_, err := s.Insert(clinic.Medication{Name: "Ibuprofen 200mg", StockQuantity: -1})
		var rng *runtime.RangeViolation
		require.ErrorAs(t, err, &rng)
		assert.Equal(t, ">= 0", rng.Constraint)
	})

	t.Run("duplicate phone for the same patient", func(t *testing.T) {
		_, err := s.Insert(clinic.PatientPhone{PatientID: ids.Amara, Phone: "+1-555-0301", Type: clinic.PhoneHome})
		var uniq *runtime.UniquenessViolation
		require.ErrorAs(t, err, &uniq)

		_, err = s.Insert(clinic.PatientPhone{PatientID: ids.Bennett, Phone: "+1-555-0301", Type: clinic.PhoneHome})
		require.NoError(t, err, "another patient may list the same number")
	})

	t.Run("duplicate medication on one visit", func(t *testing.T) {
		_, err := s.Insert(clinic.Prescription{
			AppointmentID: ids.BennettPast,
			MedicationID:  ids.Lisinopril,
			Dosage:        "10mg",
			Quantity:      10,
		})
		var uniq *runtime.UniquenessViolation
		require.ErrorAs(t, err, &uniq)
	})
}

func TestSeedIsRepeatable(t *testing.T) {
	a, err := clinic.NewStore()
	require.NoError(t, err)
	idsA, err := clinic.Seed(a, anchor)
	require.NoError(t, err)

	b, err := clinic.NewStore()
	require.NoError(t, err)
	idsB, err := clinic.Seed(b, anchor)
	require.NoError(t, err)

	assert.Equal(t, idsA, idsB, "seed must assign the same identifiers every time")
	for _, entity := range a.Registry().AllNames() {
		assert.Equal(t, count(t, a, entity), count(t, b, entity), entity)
	}
}
