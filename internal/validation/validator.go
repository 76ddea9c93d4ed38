// Package validation enforces the cross-entity rules of repair requests,
// comments and help requests before they are written.
package validation

import (
	"context"
	"errors"
	"time"

	"github.com/repairdesk/repair-service/internal/domain"
	"github.com/repairdesk/repair-service/internal/store"
	apperrors "github.com/repairdesk/repair-service/pkg/util/errorutil"
)

// Date fields reported by DATE_ORDER_VIOLATION.
const (
	FieldCompletionDate = "completion_date"
	FieldDueDate        = "due_date"
)

// Recorder receives one outcome per validated write.
type Recorder interface {
	RecordValidation(entity, outcome string)
}

// Validator is a pure function of the candidate row, a store view and the clock.
type Validator struct {
	now      func() time.Time
	recorder Recorder
}

// Option configures a Validator.
type Option func(*Validator)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(v *Validator) { v.now = now }
}

// WithRecorder reports outcomes to r.
func WithRecorder(r Recorder) Option {
	return func(v *Validator) { v.recorder = r }
}

// New constructs a Validator using the wall clock.
func New(opts ...Option) *Validator {
	v := &Validator{now: func() time.Time { return time.Now().UTC() }}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Now is the validator's clock reading.
func (v *Validator) Now() time.Time {
	return v.now()
}

// Today is the current calendar date.
func (v *Validator) Today() time.Time {
	return domain.DateOf(v.now())
}

type slotRef struct {
	slot   Slot
	userID *int64
}

// ValidateRepairRequestWrite checks candidate and returns it with
// completion_date defaulted for final statuses and updated_at refreshed.
// existing is the stored row on update and nil on insert.
func (v *Validator) ValidateRepairRequestWrite(ctx context.Context, view store.View, candidate domain.RepairRequest, existing *domain.RepairRequest) (out domain.RepairRequest, err error) {
	defer func() { v.record("repair_request", err) }()

	client := candidate.ClientID
	if err := v.checkSlots(ctx, view, []slotRef{
		{SlotRequestClient, &client},
		{SlotRequestMaster, candidate.MasterID},
	}); err != nil {
		return domain.RepairRequest{}, err
	}

	start := domain.DateOf(candidate.StartDate)
	if candidate.CompletionDate != nil && domain.DateOf(*candidate.CompletionDate).Before(start) {
		return domain.RepairRequest{}, apperrors.NewDateOrderViolation(FieldCompletionDate)
	}
	if candidate.DueDate != nil && domain.DateOf(*candidate.DueDate).Before(start) {
		return domain.RepairRequest{}, apperrors.NewDateOrderViolation(FieldDueDate)
	}

	status, err := view.FindStatus(ctx, candidate.StatusID)
	if errors.Is(err, store.ErrNotFound) {
		return domain.RepairRequest{}, apperrors.NewForeignKeyMissing(string(SlotRequestStatus))
	}
	if err != nil {
		return domain.RepairRequest{}, err
	}
	if status.IsFinal && candidate.CompletionDate == nil {
		today := v.Today()
		// a request started in the future cannot be settled today
		if today.Before(start) {
			return domain.RepairRequest{}, apperrors.NewDateOrderViolation(FieldCompletionDate)
		}
		candidate.CompletionDate = &today
	}

	if existing != nil {
		candidate.ID = existing.ID
		candidate.CreatedAt = existing.CreatedAt
	}
	candidate.UpdatedAt = v.now()
	return candidate, nil
}

// ValidateCommentWrite checks the comment author.
func (v *Validator) ValidateCommentWrite(ctx context.Context, view store.View, candidate domain.RequestComment) (out domain.RequestComment, err error) {
	defer func() { v.record("request_comment", err) }()

	master := candidate.MasterID
	if err := v.checkSlots(ctx, view, []slotRef{{SlotCommentMaster, &master}}); err != nil {
		return domain.RequestComment{}, err
	}
	return candidate, nil
}

// ValidateHelpRequestWrite checks the creator, quality manager and assigned master.
func (v *Validator) ValidateHelpRequestWrite(ctx context.Context, view store.View, candidate domain.HelpRequest) (out domain.HelpRequest, err error) {
	defer func() { v.record("help_request", err) }()

	creator := candidate.CreatedByMasterID
	if err := v.checkSlots(ctx, view, []slotRef{
		{SlotHelpCreator, &creator},
		{SlotHelpQuality, candidate.QualityManagerID},
		{SlotHelpAssigned, candidate.AssignedMasterID},
	}); err != nil {
		return domain.HelpRequest{}, err
	}
	return candidate, nil
}

// checkSlots resolves every present slot before comparing any role, so a
// missing user is reported ahead of a role mismatch.
func (v *Validator) checkSlots(ctx context.Context, view store.View, refs []slotRef) error {
	resolver := NewRoleResolver(view)
	roles := make([]domain.RoleName, len(refs))
	for i, ref := range refs {
		if ref.userID == nil {
			continue
		}
		role, err := resolver.RoleOf(ctx, *ref.userID)
		if errors.Is(err, store.ErrNotFound) {
			return apperrors.NewForeignKeyMissing(string(ref.slot))
		}
		if err != nil {
			return err
		}
		roles[i] = role
	}
	for i, ref := range refs {
		if ref.userID == nil {
			continue
		}
		if !Allowed(ref.slot, roles[i]) {
			return apperrors.NewRoleMismatch(string(ref.slot), requiredNames(ref.slot), string(roles[i]))
		}
	}
	return nil
}

func (v *Validator) record(entity string, err error) {
	if v.recorder == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = apperrors.ToDomainError(err).Code
	}
	v.recorder.RecordValidation(entity, outcome)
}
