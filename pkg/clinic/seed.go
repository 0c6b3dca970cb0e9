package clinic

import (
	"time"

	"github.com/marshallshelly/caretable/pkg/store"
)

// SeedIDs names the rows the seed dataset creates, so demos and tests can
// refer to them without hard-coding identifiers.
type SeedIDs struct {
	Cardiology  int64
	Pediatrics  int64
	Dermatology int64

	DrChen  int64
	DrOkoro int64

	Amara   int64
	Bennett int64
	Cho     int64

	Atorvastatin int64
	Amoxicillin  int64
	Lisinopril   int64

	ChenToday    int64
	ChenNextWeek int64
	BennettPast  int64
}

// Seed populates a fresh store with a small deterministic clinic: three
// specializations, two doctors, three patients with extra phones, a mix of
// past and upcoming appointments, and prescriptions against a stocked
// formulary. The today argument anchors the appointment dates.
func Seed(s *store.Store, today time.Time) (*SeedIDs, error) {
	day := func(offset int) time.Time {
		y, m, d := today.UTC().Date()
		return time.Date(y, m, d+offset, 0, 0, 0, 0, time.UTC)
	}
	str := func(v string) *string { return &v }
	ids := &SeedIDs{}
	var err error

	if ids.Cardiology, err = s.Insert(Specialization{Name: "Cardiology"}); err != nil {
		return nil, err
	}
	if ids.Pediatrics, err = s.Insert(Specialization{Name: "Pediatrics"}); err != nil {
		return nil, err
	}
	if ids.Dermatology, err = s.Insert(Specialization{Name: "Dermatology"}); err != nil {
		return nil, err
	}

	if ids.DrChen, err = s.Insert(Doctor{
		FullName:                "Dr. Mei Chen",
		LicenseNumber:           "LIC-10021",
		HireDate:                time.Date(2018, 3, 12, 0, 0, 0, 0, time.UTC),
		Email:                   "m.chen@caretable.example",
		Phone:                   "+1-555-0101",
		PrimarySpecializationID: &ids.Cardiology,
	}); err != nil {
		return nil, err
	}
	if ids.DrOkoro, err = s.Insert(Doctor{
		FullName:      "Dr. Ade Okoro",
		LicenseNumber: "LIC-10034",
		HireDate:      time.Date(2021, 9, 1, 0, 0, 0, 0, time.UTC),
		Email:         "a.okoro@caretable.example",
		Phone:         "+1-555-0102",
	}); err != nil {
		return nil, err
	}

	for _, link := range []DoctorSpecialization{
		{DoctorID: ids.DrChen, SpecializationID: ids.Cardiology},
		{DoctorID: ids.DrChen, SpecializationID: ids.Pediatrics},
		{DoctorID: ids.DrOkoro, SpecializationID: ids.Dermatology},
	} {
		if _, err = s.Insert(link); err != nil {
			return nil, err
		}
	}

	if ids.Amara, err = s.Insert(Patient{
		FullName:    "Amara Diallo",
		DateOfBirth: time.Date(1987, 6, 4, 0, 0, 0, 0, time.UTC),
		Gender:      GenderFemale,
		Phone:       "+1-555-0201",
		Email:       str("amara.diallo@example.com"),
		Address:     "14 Juniper Lane",
	}); err != nil {
		return nil, err
	}
	if ids.Bennett, err = s.Insert(Patient{
		FullName:    "Bennett Hale",
		DateOfBirth: time.Date(1962, 11, 23, 0, 0, 0, 0, time.UTC),
		Gender:      GenderMale,
		Phone:       "+1-555-0202",
		Email:       str("b.hale@example.com"),
		Address:     "902 Crestview Road",
	}); err != nil {
		return nil, err
	}
	if ids.Cho, err = s.Insert(Patient{
		FullName:    "Cho Min-seo",
		DateOfBirth: time.Date(1995, 2, 17, 0, 0, 0, 0, time.UTC),
		Gender:      GenderFemale,
		Phone:       "+1-555-0203",
	}); err != nil {
		return nil, err
	}

	for _, phone := range []PatientPhone{
		{PatientID: ids.Amara, Phone: "+1-555-0301", Type: PhoneWork},
		{PatientID: ids.Amara, Phone: "+1-555-0302", Type: PhoneEmergency},
		{PatientID: ids.Bennett, Phone: "+1-555-0303", Type: PhoneHome},
	} {
		if _, err = s.Insert(phone); err != nil {
			return nil, err
		}
	}

	if ids.Atorvastatin, err = s.Insert(Medication{
		Name:            "Atorvastatin 20mg",
		Description:     "Statin for cholesterol management",
		StockQuantity:   50,
		LastRestockDate: day(-30),
	}); err != nil {
		return nil, err
	}
	if ids.Amoxicillin, err = s.Insert(Medication{
		Name:            "Amoxicillin 500mg",
		Description:     "Broad-spectrum antibiotic",
		StockQuantity:   4,
		LastRestockDate: day(-90),
	}); err != nil {
		return nil, err
	}
	if ids.Lisinopril, err = s.Insert(Medication{
		Name:            "Lisinopril 10mg",
		Description:     "ACE inhibitor for hypertension",
		StockQuantity:   120,
		LastRestockDate: day(-7),
	}); err != nil {
		return nil, err
	}

	if ids.ChenToday, err = s.Insert(Appointment{
		PatientID: ids.Amara,
		DoctorID:  ids.DrChen,
		Date:      day(0),
		StartTime: "09:30",
		Status:    StatusScheduled,
		Reason:    "Follow-up on lipid panel",
	}); err != nil {
		return nil, err
	}
	if ids.ChenNextWeek, err = s.Insert(Appointment{
		PatientID: ids.Cho,
		DoctorID:  ids.DrChen,
		Date:      day(7),
		StartTime: "14:00",
		Status:    StatusScheduled,
		Reason:    "Chest pain evaluation",
	}); err != nil {
		return nil, err
	}
	if ids.BennettPast, err = s.Insert(Appointment{
		PatientID: ids.Bennett,
		DoctorID:  ids.DrChen,
		Date:      day(-14),
		StartTime: "11:15",
		Status:    StatusCompleted,
		Reason:    "Hypertension check",
		Notes:     "Blood pressure trending down",
	}); err != nil {
		return nil, err
	}
	if _, err = s.Insert(Appointment{
		PatientID: ids.Bennett,
		DoctorID:  ids.DrOkoro,
		Date:      day(2),
		StartTime: "10:00",
		Status:    StatusCancelledByPatient,
		Reason:    "Rash on forearm",
	}); err != nil {
		return nil, err
	}

	for _, rx := range []Prescription{
		{
			AppointmentID: ids.BennettPast,
			MedicationID:  ids.Lisinopril,
			Dosage:        "10mg once daily",
			Quantity:      30,
			Instructions:  "Take in the morning with water",
		},
		{
			AppointmentID: ids.BennettPast,
			MedicationID:  ids.Atorvastatin,
			Dosage:        "20mg once daily",
			Quantity:      30,
			Instructions:  "Take in the evening",
		},
	} {
		if _, err = s.Insert(rx); err != nil {
			return nil, err
		}
	}

	return ids, nil
}
