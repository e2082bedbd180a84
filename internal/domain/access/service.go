package access

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/hms/hms/internal/domain/identity"
)

// Gate decides whether a doctor may see a patient's record. It is read-only
// and holds no mutable state, so one instance serves all requests.
type Gate struct {
	accounts identity.AccountRepository
	records  RecordRepository
	rules    []rule
	log      zerolog.Logger
}

func NewGate(accounts identity.AccountRepository, records RecordRepository, log zerolog.Logger) *Gate {
	return &Gate{
		accounts: accounts,
		records:  records,
		rules:    accessRules,
		log:      log,
	}
}

// CheckDoctorPatientAccess evaluates the rule chain for the pair within one
// organization. Both accounts must resolve inside that organization before
// any rule runs; a failed lookup is a denial, not an error, so callers
// cannot distinguish "no such patient" from "patient in another tenant".
func (g *Gate) CheckDoctorPatientAccess(ctx context.Context, doctorID, patientID, orgID uuid.UUID) (bool, error) {
	doctor, err := g.accounts.GetByIDInOrganization(ctx, doctorID, orgID)
	if errors.Is(err, identity.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("load doctor: %w", err)
	}

	patient, err := g.accounts.GetByIDInOrganization(ctx, patientID, orgID)
	if errors.Is(err, identity.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("load patient: %w", err)
	}

	s := subjects{Doctor: doctor, Patient: patient, OrgID: orgID}
	for _, r := range g.rules {
		decision, err := r.eval(ctx, s, g.records)
		if err != nil {
			return false, fmt.Errorf("rule %s: %w", r.name, err)
		}
		if decision == Grant {
			g.log.Debug().
				Str("rule", r.name).
				Str("doctor_id", doctorID.String()).
				Str("patient_id", patientID.String()).
				Msg("access granted")
			return true, nil
		}
	}

	g.log.Debug().
		Str("doctor_id", doctorID.String()).
		Str("patient_id", patientID.String()).
		Msg("access denied")
	return false, nil
}
