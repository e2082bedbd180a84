package access

import (
	"context"

	"github.com/google/uuid"

	"github.com/hms/hms/internal/domain/identity"
)

// Decision is a single rule's verdict. Grant short-circuits the chain;
// Continue passes evaluation to the next rule.
type Decision int

const (
	Continue Decision = iota
	Grant
)

// subjects carries the tenant-verified doctor and patient a rule inspects.
// Rules never load accounts themselves; the gate performs the tenant check
// before any rule runs.
type subjects struct {
	Doctor  *identity.Account
	Patient *identity.Account
	OrgID   uuid.UUID
}

type ruleFunc func(ctx context.Context, s subjects, records RecordRepository) (Decision, error)

type rule struct {
	name string
	eval ruleFunc
}

// accessRules is the gate's precedence order. First Grant wins; a chain
// that runs out of rules denies.
var accessRules = []rule{
	{"role_elevation", roleElevation},
	{"department_match", departmentMatch},
	{"referral", referral},
	{"treatment_history", treatmentHistory},
}

// roleElevation grants administrators blanket access within their tenant.
func roleElevation(_ context.Context, s subjects, _ RecordRepository) (Decision, error) {
	if s.Doctor.Role == identity.RoleAdmin || s.Doctor.Role == identity.RoleSuperAdmin {
		return Grant, nil
	}
	return Continue, nil
}

// departmentMatch grants when the doctor's department equals the patient's
// primary department. A nil department on either side never matches.
func departmentMatch(_ context.Context, s subjects, _ RecordRepository) (Decision, error) {
	if s.Doctor.DepartmentID == nil || s.Patient.PrimaryDepartmentID == nil {
		return Continue, nil
	}
	if *s.Doctor.DepartmentID == *s.Patient.PrimaryDepartmentID {
		return Grant, nil
	}
	return Continue, nil
}

// referral grants when the patient was referred to the doctor's department.
func referral(ctx context.Context, s subjects, records RecordRepository) (Decision, error) {
	if s.Doctor.DepartmentID == nil {
		return Continue, nil
	}
	ok, err := records.HasReferral(ctx, s.OrgID, s.Patient.ID, *s.Doctor.DepartmentID)
	if err != nil {
		return Continue, err
	}
	if ok {
		return Grant, nil
	}
	return Continue, nil
}

// treatmentHistory grants when any appointment links the pair, regardless
// of status or age.
func treatmentHistory(ctx context.Context, s subjects, records RecordRepository) (Decision, error) {
	ok, err := records.HasAppointment(ctx, s.OrgID, s.Patient.ID, s.Doctor.ID)
	if err != nil {
		return Continue, err
	}
	if ok {
		return Grant, nil
	}
	return Continue, nil
}
