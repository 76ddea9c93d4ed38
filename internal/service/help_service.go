package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/repairdesk/repair-service/internal/domain"
	"github.com/repairdesk/repair-service/internal/events"
	"github.com/repairdesk/repair-service/internal/store"
	"github.com/repairdesk/repair-service/internal/validation"
	apperrors "github.com/repairdesk/repair-service/pkg/util/errorutil"
)

// HelpService handles escalations from masters to the quality desk.
type HelpService struct {
	store      store.Store
	validator  *validation.Validator
	dispatcher events.Dispatcher
	logger     *zap.Logger
}

// HelpDependencies bundles collaborators for HelpService.
type HelpDependencies struct {
	Store      store.Store
	Validator  *validation.Validator
	Dispatcher events.Dispatcher
	Logger     *zap.Logger
}

// OpenHelpInput is a master's request for help.
type OpenHelpInput struct {
	RequestID       int64
	MasterID        int64
	Message         string
	ProposedDueDate *time.Time
}

// CloseHelpInput resolves a help request. AssignedMasterID and NewDueDate
// are applied to the repair request as well.
type CloseHelpInput struct {
	HelpID           int64
	QualityManagerID int64
	AssignedMasterID *int64
	NewDueDate       *time.Time
	ResolutionNote   *string
}

// NewHelpService constructs the service.
func NewHelpService(deps HelpDependencies) *HelpService {
	validator := deps.Validator
	if validator == nil {
		validator = validation.New()
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HelpService{store: deps.Store, validator: validator, dispatcher: deps.Dispatcher, logger: logger}
}

// Open files a help request for a request the master is working.
func (s *HelpService) Open(ctx context.Context, input OpenHelpInput) (domain.HelpRequest, error) {
	message := strings.TrimSpace(input.Message)
	var saved domain.HelpRequest
	err := s.store.RunInTransaction(ctx, func(tx store.Tx) error {
		req, err := tx.FindRepairRequest(ctx, input.RequestID)
		if err != nil {
			return notFound("repair request", input.RequestID, err)
		}
		candidate, err := s.validator.ValidateHelpRequestWrite(ctx, tx, domain.HelpRequest{
			RequestID:         input.RequestID,
			CreatedByMasterID: input.MasterID,
			Status:            domain.HelpStatusOpen,
			Message:           message,
			ProposedDueDate:   dateOrNil(input.ProposedDueDate),
		})
		if err != nil {
			return err
		}
		if req.MasterID == nil || *req.MasterID != input.MasterID {
			return apperrors.NewForbidden("help may only be requested for the master's own request")
		}
		if err := ensureNoOpenHelp(ctx, tx, input.RequestID, 0); err != nil {
			return err
		}
		if message == "" {
			return apperrors.NewValidationError("help request message is required", map[string]any{"field": "message"})
		}
		if err := tx.InsertHelpRequest(ctx, &candidate); err != nil {
			return err
		}
		saved = candidate
		return nil
	})
	if err != nil {
		return domain.HelpRequest{}, err
	}
	s.logger.Info("help request opened", zap.Int64("help_id", saved.ID), zap.Int64("request_id", saved.RequestID))
	s.publish(ctx, events.EventHelpRequestOpened, input.MasterID, saved)
	return saved, nil
}

// Close resolves an open help request on behalf of a quality manager.
func (s *HelpService) Close(ctx context.Context, input CloseHelpInput) (domain.HelpRequest, error) {
	var saved domain.HelpRequest
	err := s.store.RunInTransaction(ctx, func(tx store.Tx) error {
		help, err := tx.FindHelpRequest(ctx, input.HelpID)
		if err != nil {
			return notFound("help request", input.HelpID, err)
		}
		if help.Status != domain.HelpStatusOpen {
			return apperrors.NewConflict("help request is already closed", map[string]any{"id": help.ID})
		}
		req, err := tx.FindRepairRequest(ctx, help.RequestID)
		if err != nil {
			return notFound("repair request", help.RequestID, err)
		}

		closedAt := s.validator.Now()
		qm := input.QualityManagerID
		help.QualityManagerID = &qm
		help.Status = domain.HelpStatusClosed
		help.ClosedAt = &closedAt
		help.ResolutionNote = trimmedOrNil(input.ResolutionNote)
		if input.AssignedMasterID != nil {
			assigned := *input.AssignedMasterID
			help.AssignedMasterID = &assigned
		}
		help, err = s.validator.ValidateHelpRequestWrite(ctx, tx, help)
		if err != nil {
			return err
		}

		if input.AssignedMasterID != nil || input.NewDueDate != nil {
			existing := req
			if input.AssignedMasterID != nil {
				assigned := *input.AssignedMasterID
				req.MasterID = &assigned
			}
			if input.NewDueDate != nil {
				req.DueDate = dateOrNil(input.NewDueDate)
			}
			normalized, err := s.validator.ValidateRepairRequestWrite(ctx, tx, req, &existing)
			if err != nil {
				return err
			}
			if err := tx.UpdateRepairRequest(ctx, &normalized); err != nil {
				return err
			}
		}
		if err := tx.UpdateHelpRequest(ctx, &help); err != nil {
			return err
		}
		saved = help
		return nil
	})
	if err != nil {
		return domain.HelpRequest{}, err
	}
	s.logger.Info("help request closed", zap.Int64("help_id", saved.ID), zap.Int64("quality_manager_id", input.QualityManagerID))
	s.publish(ctx, events.EventHelpRequestClosed, input.QualityManagerID, saved)
	return saved, nil
}

// Reopen returns a closed help request to the open state. There is no
// transition guard, but a request still carries at most one open help request.
func (s *HelpService) Reopen(ctx context.Context, actorID, helpID int64) (domain.HelpRequest, error) {
	var saved domain.HelpRequest
	err := s.store.RunInTransaction(ctx, func(tx store.Tx) error {
		help, err := tx.FindHelpRequest(ctx, helpID)
		if err != nil {
			return notFound("help request", helpID, err)
		}
		if help.Status == domain.HelpStatusOpen {
			saved = help
			return nil
		}
		if err := ensureNoOpenHelp(ctx, tx, help.RequestID, help.ID); err != nil {
			return err
		}
		help.Status = domain.HelpStatusOpen
		help.ClosedAt = nil
		if err := tx.UpdateHelpRequest(ctx, &help); err != nil {
			return err
		}
		saved = help
		return nil
	})
	if err != nil {
		return domain.HelpRequest{}, err
	}
	s.publish(ctx, events.EventHelpRequestReopened, actorID, saved)
	return saved, nil
}

// List returns every help request ordered by id.
func (s *HelpService) List(ctx context.Context) ([]domain.HelpRequest, error) {
	var out []domain.HelpRequest
	err := s.store.View(ctx, func(v store.View) error {
		var err error
		out, err = v.ListHelpRequests(ctx)
		return err
	})
	return out, err
}

func ensureNoOpenHelp(ctx context.Context, tx store.Tx, requestID, except int64) error {
	open, err := tx.FindOpenHelpRequest(ctx, requestID)
	switch {
	case errors.Is(err, store.ErrNotFound):
		return nil
	case err != nil:
		return err
	case open.ID == except:
		return nil
	}
	return apperrors.NewConflict("request already has an open help request", map[string]any{
		"request_id": requestID,
		"help_id":    open.ID,
	})
}

func (s *HelpService) publish(ctx context.Context, eventType events.EventType, actorID int64, help domain.HelpRequest) {
	publishEvent(ctx, s.dispatcher, events.Event{
		Type:      eventType,
		RequestID: help.RequestID,
		ActorID:   actor(actorID),
		Payload: events.HelpRequestPayload{
			HelpRequestID:    help.ID,
			CreatedByID:      help.CreatedByMasterID,
			QualityManagerID: help.QualityManagerID,
			AssignedMasterID: help.AssignedMasterID,
			Status:           string(help.Status),
		},
	})
}
