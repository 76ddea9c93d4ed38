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

// RequestService coordinates repair request workflows. Every mutation runs
// validation and the write in one store transaction.
type RequestService struct {
	store      store.Store
	validator  *validation.Validator
	dispatcher events.Dispatcher
	logger     *zap.Logger
}

// RequestDependencies bundles collaborators for RequestService.
type RequestDependencies struct {
	Store      store.Store
	Validator  *validation.Validator
	Dispatcher events.Dispatcher
	Logger     *zap.Logger
}

// RequestInput describes a request create or update. A nil StatusID means
// "Новая заявка" on create and "keep" on update; a nil IssueTypeID derives the
// issue type from ProblemDescription.
type RequestInput struct {
	StartDate          time.Time
	EquipmentTypeID    int64
	EquipmentModelName string
	IssueTypeID        *int64
	ProblemDescription string
	StatusID           *int64
	CompletionDate     *time.Time
	DueDate            *time.Time
	RepairParts        *string
	MasterID           *int64
	ClientID           int64
}

// RequestDetails is a request with its comments and spare parts.
type RequestDetails struct {
	Request    domain.RepairRequest      `json:"request"`
	Comments   []domain.RequestComment   `json:"comments"`
	SpareParts []domain.RequestSparePart `json:"spare_parts"`
	HelpOpen   bool                      `json:"help_open"`
}

// NewRequestService constructs the service.
func NewRequestService(deps RequestDependencies) *RequestService {
	validator := deps.Validator
	if validator == nil {
		validator = validation.New()
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RequestService{
		store:      deps.Store,
		validator:  validator,
		dispatcher: deps.Dispatcher,
		logger:     logger,
	}
}

// Create files a new repair request.
func (s *RequestService) Create(ctx context.Context, actorID int64, input RequestInput) (domain.RepairRequest, error) {
	var saved domain.RepairRequest
	err := s.store.RunInTransaction(ctx, func(tx store.Tx) error {
		candidate, err := s.buildCandidate(ctx, tx, input, nil)
		if err != nil {
			return err
		}
		normalized, err := s.validator.ValidateRepairRequestWrite(ctx, tx, candidate, nil)
		if err != nil {
			return err
		}
		if err := tx.InsertRepairRequest(ctx, &normalized); err != nil {
			return err
		}
		saved = normalized
		return nil
	})
	if err != nil {
		return domain.RepairRequest{}, err
	}
	s.logger.Info("repair request created", zap.Int64("request_id", saved.ID), zap.Int64("client_id", saved.ClientID))
	s.publishRequestEvent(ctx, events.EventRequestCreated, actorID, saved)
	return saved, nil
}

// Update replaces the fields of request id that editor's role may change.
// Desk roles edit everything but the client, which only managers and
// operators set. Masters edit their own requests and may not move a final
// status back to work. Clients edit the description of their own open
// requests.
func (s *RequestService) Update(ctx context.Context, editor Editor, id int64, input RequestInput) (domain.RepairRequest, error) {
	var saved domain.RepairRequest
	err := s.store.RunInTransaction(ctx, func(tx store.Tx) error {
		existing, err := tx.FindRepairRequest(ctx, id)
		if err != nil {
			return notFound("repair request", id, err)
		}
		if input, err = restrictUpdate(ctx, tx, editor, existing, input); err != nil {
			return err
		}
		candidate, err := s.buildCandidate(ctx, tx, input, &existing)
		if err != nil {
			return err
		}
		normalized, err := s.validator.ValidateRepairRequestWrite(ctx, tx, candidate, &existing)
		if err != nil {
			return err
		}
		if err := tx.UpdateRepairRequest(ctx, &normalized); err != nil {
			return err
		}
		saved = normalized
		return nil
	})
	if err != nil {
		return domain.RepairRequest{}, err
	}
	s.publishRequestEvent(ctx, events.EventRequestUpdated, editor.ID, saved)
	return saved, nil
}

// Delete removes a request together with its comments, parts and help requests.
func (s *RequestService) Delete(ctx context.Context, actorID, id int64) error {
	err := s.store.RunInTransaction(ctx, func(tx store.Tx) error {
		return notFound("repair request", id, tx.DeleteRepairRequest(ctx, id))
	})
	if err != nil {
		return err
	}
	s.logger.Info("repair request deleted", zap.Int64("request_id", id))
	publishEvent(ctx, s.dispatcher, events.Event{Type: events.EventRequestDeleted, RequestID: id, ActorID: actor(actorID)})
	return nil
}

// Get returns request id with its comments and spare parts.
func (s *RequestService) Get(ctx context.Context, id int64) (RequestDetails, error) {
	var out RequestDetails
	err := s.store.View(ctx, func(v store.View) error {
		req, err := v.FindRepairRequest(ctx, id)
		if err != nil {
			return notFound("repair request", id, err)
		}
		out.Request = req
		if out.Comments, err = v.ListCommentsByRequest(ctx, id); err != nil {
			return err
		}
		parts, err := v.ListRequestSpareParts(ctx)
		if err != nil {
			return err
		}
		out.SpareParts = make([]domain.RequestSparePart, 0)
		for _, p := range parts {
			if p.RequestID == id {
				out.SpareParts = append(out.SpareParts, p)
			}
		}
		_, err = v.FindOpenHelpRequest(ctx, id)
		switch {
		case err == nil:
			out.HelpOpen = true
		case !errors.Is(err, store.ErrNotFound):
			return err
		}
		return nil
	})
	return out, err
}

// List returns every request ordered by id.
func (s *RequestService) List(ctx context.Context) ([]domain.RepairRequest, error) {
	var out []domain.RepairRequest
	err := s.store.View(ctx, func(v store.View) error {
		var err error
		out, err = v.ListRepairRequests(ctx)
		return err
	})
	return out, err
}

// AddComment records a note by the master working the request.
func (s *RequestService) AddComment(ctx context.Context, requestID, masterID int64, message string) (domain.RequestComment, error) {
	message = strings.TrimSpace(message)
	var saved domain.RequestComment
	err := s.store.RunInTransaction(ctx, func(tx store.Tx) error {
		req, err := tx.FindRepairRequest(ctx, requestID)
		if err != nil {
			return notFound("repair request", requestID, err)
		}
		candidate, err := s.validator.ValidateCommentWrite(ctx, tx, domain.RequestComment{
			RequestID: requestID,
			MasterID:  masterID,
			Message:   message,
		})
		if err != nil {
			return err
		}
		if req.MasterID == nil || *req.MasterID != masterID {
			return apperrors.NewForbidden("only the assigned master may comment on the request")
		}
		if message == "" {
			return apperrors.NewValidationError("comment message is required", map[string]any{"field": "message"})
		}
		if err := tx.InsertComment(ctx, &candidate); err != nil {
			return err
		}
		saved = candidate
		return nil
	})
	if err != nil {
		return domain.RequestComment{}, err
	}
	publishEvent(ctx, s.dispatcher, events.Event{
		Type:      events.EventCommentAdded,
		RequestID: requestID,
		ActorID:   actor(masterID),
		Payload: events.CommentAddedPayload{
			CommentID:   saved.ID,
			MasterID:    masterID,
			BodyPreview: stringPreview(saved.Message, 80),
		},
	})
	return saved, nil
}

// AddSparePart links a spare part, creating the catalogue entry when needed.
func (s *RequestService) AddSparePart(ctx context.Context, actorID, requestID int64, partName string, quantity int, note *string) (domain.RequestSparePart, error) {
	var saved domain.RequestSparePart
	err := s.store.RunInTransaction(ctx, func(tx store.Tx) error {
		if _, err := tx.FindRepairRequest(ctx, requestID); err != nil {
			return notFound("repair request", requestID, err)
		}
		part, err := GetOrCreateSparePart(ctx, tx, partName)
		if err != nil {
			return err
		}
		link := domain.RequestSparePart{
			RequestID:   requestID,
			SparePartID: part.ID,
			Quantity:    quantity,
			Note:        trimmedOrNil(note),
		}
		if err := tx.InsertRequestSparePart(ctx, &link); err != nil {
			return err
		}
		saved = link
		return s.touch(ctx, tx, requestID)
	})
	if err != nil {
		return domain.RequestSparePart{}, err
	}
	publishEvent(ctx, s.dispatcher, events.Event{
		Type:      events.EventSparePartsChanged,
		RequestID: requestID,
		ActorID:   actor(actorID),
		Payload:   events.SparePartsChangedPayload{SparePartID: saved.SparePartID},
	})
	return saved, nil
}

// RemoveSparePart unlinks a spare part row from its request.
func (s *RequestService) RemoveSparePart(ctx context.Context, actorID, requestID, linkID int64) error {
	var removed domain.RequestSparePart
	err := s.store.RunInTransaction(ctx, func(tx store.Tx) error {
		links, err := tx.ListRequestSpareParts(ctx)
		if err != nil {
			return err
		}
		for _, l := range links {
			if l.ID == linkID && l.RequestID == requestID {
				removed = l
				if err := tx.DeleteRequestSparePart(ctx, linkID); err != nil {
					return err
				}
				return s.touch(ctx, tx, requestID)
			}
		}
		return apperrors.NewNotFound("request spare part", map[string]any{"id": linkID, "request_id": requestID})
	})
	if err != nil {
		return err
	}
	publishEvent(ctx, s.dispatcher, events.Event{
		Type:      events.EventSparePartsChanged,
		RequestID: requestID,
		ActorID:   actor(actorID),
		Payload:   events.SparePartsChangedPayload{SparePartID: removed.SparePartID, Removed: true},
	})
	return nil
}

// touch refreshes updated_at after a child row changed.
func (s *RequestService) touch(ctx context.Context, tx store.Tx, requestID int64) error {
	req, err := tx.FindRepairRequest(ctx, requestID)
	if err != nil {
		return notFound("repair request", requestID, err)
	}
	req.UpdatedAt = s.validator.Now()
	return tx.UpdateRepairRequest(ctx, &req)
}

// buildCandidate resolves reference data and merges input over existing.
func (s *RequestService) buildCandidate(ctx context.Context, tx store.Tx, input RequestInput, existing *domain.RepairRequest) (domain.RepairRequest, error) {
	var candidate domain.RepairRequest
	if existing != nil {
		candidate = *existing
	}

	model, err := GetOrCreateEquipmentModel(ctx, tx, input.EquipmentTypeID, input.EquipmentModelName)
	if err != nil {
		return domain.RepairRequest{}, err
	}
	issueID, err := s.resolveIssueType(ctx, tx, input)
	if err != nil {
		return domain.RepairRequest{}, err
	}
	statusID, err := s.resolveStatus(ctx, tx, input, existing)
	if err != nil {
		return domain.RepairRequest{}, err
	}

	candidate.StartDate = domain.DateOf(input.StartDate)
	if input.StartDate.IsZero() {
		if existing != nil {
			candidate.StartDate = existing.StartDate
		} else {
			candidate.StartDate = s.validator.Today()
		}
	}
	candidate.EquipmentModelID = model.ID
	candidate.IssueTypeID = issueID
	candidate.ProblemDescription = strings.TrimSpace(input.ProblemDescription)
	candidate.StatusID = statusID
	candidate.CompletionDate = dateOrNil(input.CompletionDate)
	candidate.DueDate = dateOrNil(input.DueDate)
	candidate.RepairPartsLegacy = trimmedOrNil(input.RepairParts)
	candidate.MasterID = input.MasterID
	candidate.ClientID = input.ClientID
	return candidate, nil
}

func (s *RequestService) resolveIssueType(ctx context.Context, tx store.Tx, input RequestInput) (int64, error) {
	if input.IssueTypeID != nil {
		it, err := tx.FindIssueType(ctx, *input.IssueTypeID)
		if errors.Is(err, store.ErrNotFound) {
			return 0, apperrors.NewForeignKeyMissing("repair_request.issue_type_id")
		}
		if err != nil {
			return 0, err
		}
		return it.ID, nil
	}
	it, err := GetOrCreateIssueType(ctx, tx, input.ProblemDescription)
	if err != nil {
		return 0, err
	}
	return it.ID, nil
}

func (s *RequestService) resolveStatus(ctx context.Context, tx store.Tx, input RequestInput, existing *domain.RepairRequest) (int64, error) {
	if input.StatusID != nil {
		return *input.StatusID, nil
	}
	if existing != nil {
		return existing.StatusID, nil
	}
	st, err := tx.FindStatusByName(ctx, domain.StatusNew)
	if errors.Is(err, store.ErrNotFound) {
		return 0, apperrors.NewForeignKeyMissing(string(validation.SlotRequestStatus))
	}
	if err != nil {
		return 0, err
	}
	return st.ID, nil
}

func (s *RequestService) publishRequestEvent(ctx context.Context, eventType events.EventType, actorID int64, req domain.RepairRequest) {
	payload := events.RequestChangedPayload{StatusID: req.StatusID, MasterID: req.MasterID}
	if req.CompletionDate != nil {
		payload.CompletionDate = req.CompletionDate.Format(time.DateOnly)
	}
	publishEvent(ctx, s.dispatcher, events.Event{
		Type:      eventType,
		RequestID: req.ID,
		ActorID:   actor(actorID),
		Payload:   payload,
	})
}

func dateOrNil(t *time.Time) *time.Time {
	if t == nil || t.IsZero() {
		return nil
	}
	d := domain.DateOf(*t)
	return &d
}
