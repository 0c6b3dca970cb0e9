// Package clinic defines the clinical-operations data model: patients and
// their contact numbers, clinicians and their qualifications, scheduled
// visits, and the medication orders and inventory tied to those visits.
package clinic

import (
	"time"

	"github.com/marshallshelly/caretable/pkg/schema"
)

// Gender enumerates the declared patient gender values.
type Gender string

const (
	GenderMale   Gender = "Male"
	GenderFemale Gender = "Female"
	GenderOther  Gender = "Other"
)

// PhoneType enumerates the declared contact number categories.
type PhoneType string

const (
	PhoneHome      PhoneType = "Home"
	PhoneMobile    PhoneType = "Mobile"
	PhoneWork      PhoneType = "Work"
	PhoneEmergency PhoneType = "Emergency"
)

// AppointmentStatus enumerates the scheduled-visit lifecycle states.
type AppointmentStatus string

const (
	StatusScheduled           AppointmentStatus = "Scheduled"
	StatusCompleted           AppointmentStatus = "Completed"
	StatusCancelledByPatient  AppointmentStatus = "Cancelled by Patient"
	StatusCancelledByHospital AppointmentStatus = "Cancelled by Hospital"
	StatusNoShow              AppointmentStatus = "No-Show"
)

// Entity names as registered in the schema registry.
const (
	EntityPatients              = "patients"
	EntityPatientPhones         = "patient_phones"
	EntitySpecializations       = "specializations"
	EntityDoctors               = "doctors"
	EntityDoctorSpecializations = "doctor_specializations"
	EntityAppointments          = "appointments"
	EntityMedications           = "medications"
	EntityPrescriptions         = "prescriptions"
)

// Secondary index names.
const (
	IndexPatientsName           = "idx_patients_name"
	IndexDoctorsName            = "idx_doctors_name"
	IndexAppointmentsDoctorDate = "idx_appointments_doctor_date"
	IndexAppointmentsPatient    = "idx_appointments_patient_date"
	IndexMedicationsStock       = "idx_medications_stock"
	IndexPrescriptionsAppt      = "idx_prescriptions_appointment"
)

// Patient is the root of the phone and appointment relationships. Email is
// optional but unique across live patients when present.
type Patient struct {
	ID          int64     `db:"id,primary"`
	FullName    string    `db:"full_name,notNull,index(idx_patients_name)"`
	DateOfBirth time.Time `db:"date_of_birth,notNull"`
	Gender      Gender    `db:"gender,enum(Male|Female|Other),notNull"`
	Phone       string    `db:"phone,notNull"`
	Email       *string   `db:"email,unique"`
	Address     string    `db:"address"`
}

// PatientPhone is an additional contact number for a patient. A patient
// never lists the same number twice.
type PatientPhone struct {
	ID        int64     `db:"id,primary"`
	PatientID int64     `db:"patient_id,fk:patients.id,ondelete:cascade"`
	Phone     string    `db:"phone,notNull"`
	Type      PhoneType `db:"phone_type,enum(Home|Mobile|Work|Emergency),notNull"`
}

// UniqueKeys declares the (patient, phone) pair unique.
func (PatientPhone) UniqueKeys() []schema.UniqueKey {
	return []schema.UniqueKey{
		{Name: "uq_patient_phones_patient_phone", Columns: []string{"patient_id", "phone"}},
	}
}

// Specialization is a pure lookup entity.
type Specialization struct {
	ID   int64  `db:"id,primary"`
	Name string `db:"name,unique,notNull"`
}

// Doctor is a clinician. The primary specialization is a single nullable
// reference, independent of the many-to-many link kept in
// DoctorSpecialization; nothing ties the two together.
type Doctor struct {
	ID                      int64     `db:"id,primary"`
	FullName                string    `db:"full_name,notNull,index(idx_doctors_name)"`
	LicenseNumber           string    `db:"license_number,unique,notNull"`
	HireDate                time.Time `db:"hire_date"`
	Email                   string    `db:"email,unique,notNull"`
	Phone                   string    `db:"phone"`
	PrimarySpecializationID *int64    `db:"primary_specialization_id,fk:specializations.id,ondelete:setnull"`
}

// DoctorSpecialization is the many-to-many junction between doctors and
// specializations. It has no surrogate identifier: the pair itself is the
// identity, and deleting either side removes the row.
type DoctorSpecialization struct {
	DoctorID         int64 `db:"doctor_id,fk:doctors.id,ondelete:cascade"`
	SpecializationID int64 `db:"specialization_id,fk:specializations.id,ondelete:cascade"`
}

// UniqueKeys declares the pair itself as the row identity.
func (DoctorSpecialization) UniqueKeys() []schema.UniqueKey {
	return []schema.UniqueKey{
		{Name: "uq_doctor_specializations_pair", Columns: []string{"doctor_id", "specialization_id"}},
	}
}

// Appointment is a scheduled visit and the aggregate root for
// prescriptions. Date carries the calendar day; StartTime is the
// wall-clock HH:MM within it.
type Appointment struct {
	ID        int64             `db:"id,primary"`
	PatientID int64             `db:"patient_id,fk:patients.id,ondelete:cascade"`
	DoctorID  int64             `db:"doctor_id,fk:doctors.id,ondelete:cascade"`
	Date      time.Time         `db:"date,notNull"`
	StartTime string            `db:"start_time,notNull"`
	Status    AppointmentStatus `db:"status,enum(Scheduled|Completed|Cancelled by Patient|Cancelled by Hospital|No-Show),notNull"`
	Reason    string            `db:"reason"`
	Notes     string            `db:"notes"`
}

// CompositeIndexes declares the orderings the visit queries depend on.
func (Appointment) CompositeIndexes() []schema.Index {
	return []schema.Index{
		{Name: IndexAppointmentsDoctorDate, Columns: []string{"doctor_id", "date", "start_time"}},
		{Name: IndexAppointmentsPatient, Columns: []string{"patient_id", "date"}},
	}
}

// Medication is an inventory lookup entity. Stock never goes negative.
type Medication struct {
	ID              int64     `db:"id,primary"`
	Name            string    `db:"name,unique,notNull"`
	Description     string    `db:"description"`
	StockQuantity   int64     `db:"stock_quantity,min(0),index(idx_medications_stock)"`
	LastRestockDate time.Time `db:"last_restock_date"`
}

// Prescription is a medication order tied to an appointment. An
// appointment lists a given medication at most once, and the prescribed
// quantity is always positive.
type Prescription struct {
	ID            int64  `db:"id,primary"`
	AppointmentID int64  `db:"appointment_id,fk:appointments.id,ondelete:cascade,index(idx_prescriptions_appointment)"`
	MedicationID  int64  `db:"medication_id,fk:medications.id,ondelete:cascade"`
	Dosage        string `db:"dosage"`
	Quantity      int64  `db:"quantity_prescribed,positive"`
	Instructions  string `db:"instructions"`
}

// UniqueKeys declares the (appointment, medication) pair unique.
func (Prescription) UniqueKeys() []schema.UniqueKey {
	return []schema.UniqueKey{
		{Name: "uq_prescriptions_appointment_medication", Columns: []string{"appointment_id", "medication_id"}},
	}
}
