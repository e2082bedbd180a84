package access

import (
	"context"

	"github.com/google/uuid"
)

// RecordRepository reads the clinical evidence the gate consults. Both
// queries filter by organization id; cross-tenant rows must never satisfy
// a rule.
type RecordRepository interface {
	HasReferral(ctx context.Context, orgID, patientID, departmentID uuid.UUID) (bool, error)
	HasAppointment(ctx context.Context, orgID, patientID, doctorID uuid.UUID) (bool, error)
}
