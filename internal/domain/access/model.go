package access

import (
	"time"

	"github.com/google/uuid"
)

// Referral links a patient to a department, opening that department's
// doctors to the patient's record. Rows are written by clinical workflow
// elsewhere; this package only reads them.
type Referral struct {
	ID             uuid.UUID `db:"id" json:"id"`
	OrganizationID uuid.UUID `db:"organization_id" json:"organization_id"`
	PatientID      uuid.UUID `db:"patient_id" json:"patient_id"`
	DepartmentID   uuid.UUID `db:"department_id" json:"department_id"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
}

// Appointment is evidence that a doctor treated a patient. Any historical
// row between the pair counts, regardless of status.
type Appointment struct {
	ID             uuid.UUID `db:"id" json:"id"`
	OrganizationID uuid.UUID `db:"organization_id" json:"organization_id"`
	PatientID      uuid.UUID `db:"patient_id" json:"patient_id"`
	DoctorID       uuid.UUID `db:"doctor_id" json:"doctor_id"`
	Status         string    `db:"status" json:"status"`
	ScheduledAt    time.Time `db:"scheduled_at" json:"scheduled_at"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
}
