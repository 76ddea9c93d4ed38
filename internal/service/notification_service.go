package service

import (
	"context"
	"strconv"
	"strings"

	"github.com/skip2/go-qrcode"
	"go.uber.org/zap"

	"github.com/repairdesk/repair-service/internal/config"
	"github.com/repairdesk/repair-service/internal/events"
	apperrors "github.com/repairdesk/repair-service/pkg/util/errorutil"
)

// NotificationService handles emitting notifications for domain events.
type NotificationService struct {
	dispatcher events.Dispatcher
	logger     *zap.Logger
	cfg        config.NotificationConfig
	surveyURL  string
}

// NewNotificationService creates the service.
func NewNotificationService(dispatcher events.Dispatcher, logger *zap.Logger, cfg config.NotificationConfig, quality config.QualityConfig) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationService{
		dispatcher: dispatcher,
		logger:     logger,
		cfg:        cfg,
		surveyURL:  quality.SurveyURL,
	}
}

// SurveyURL links the quality survey to request id.
func SurveyURL(base string, requestID int64) string {
	if requestID == 0 {
		return base
	}
	separator := "?"
	if strings.Contains(base, "?") {
		separator = "&"
	}
	return base + separator + "request_id=" + strconv.FormatInt(requestID, 10)
}

// SurveyQRCode renders the survey link of request id as a size x size PNG.
func SurveyQRCode(base string, requestID int64, size int) ([]byte, error) {
	if strings.TrimSpace(base) == "" {
		return nil, apperrors.NewNotFound("quality survey", map[string]any{"request_id": requestID})
	}
	png, err := qrcode.Encode(SurveyURL(base, requestID), qrcode.Medium, size)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	return png, nil
}

// SurveyURL returns the configured survey link for request id.
func (n *NotificationService) SurveyURL(requestID int64) string {
	return SurveyURL(n.surveyURL, requestID)
}

// RegisterHandlers subscribes to events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	n.dispatcher.Subscribe(events.EventRequestCreated, n.handleRequestChanged)
	n.dispatcher.Subscribe(events.EventRequestUpdated, n.handleRequestChanged)
	n.dispatcher.Subscribe(events.EventCommentAdded, n.handleCommentAdded)
	n.dispatcher.Subscribe(events.EventHelpRequestOpened, n.handleHelpRequest)
	n.dispatcher.Subscribe(events.EventHelpRequestClosed, n.handleHelpRequest)
}

func (n *NotificationService) handleRequestChanged(ctx context.Context, event events.Event) error {
	n.logger.Info("RepairRequestChanged",
		zap.String("event_type", string(event.Type)),
		zap.Int64("request_id", event.RequestID),
		zap.Any("payload", event.Payload))
	n.sendWebhookNotificationStub(ctx, event)
	if payload, ok := event.Payload.(events.RequestChangedPayload); ok && payload.CompletionDate != "" {
		n.sendEmailNotificationStub(ctx, event, zap.String("survey_url", n.SurveyURL(event.RequestID)))
	}
	return nil
}

func (n *NotificationService) handleCommentAdded(ctx context.Context, event events.Event) error {
	n.logger.Info("RequestCommentAdded", zap.Int64("request_id", event.RequestID), zap.Any("payload", event.Payload))
	n.sendWebhookNotificationStub(ctx, event)
	return nil
}

func (n *NotificationService) handleHelpRequest(ctx context.Context, event events.Event) error {
	n.logger.Info("HelpRequestChanged",
		zap.String("event_type", string(event.Type)),
		zap.Int64("request_id", event.RequestID),
		zap.Any("payload", event.Payload))
	n.sendEmailNotificationStub(ctx, event)
	n.sendWebhookNotificationStub(ctx, event)
	return nil
}

func (n *NotificationService) sendEmailNotificationStub(_ context.Context, event events.Event, fields ...zap.Field) {
	if strings.TrimSpace(n.cfg.EmailFrom) == "" {
		return
	}
	n.logger.Debug("sendEmailNotificationStub", append([]zap.Field{
		zap.String("from", n.cfg.EmailFrom),
		zap.Int64("request_id", event.RequestID),
		zap.String("event_type", string(event.Type)),
	}, fields...)...)
}

func (n *NotificationService) sendWebhookNotificationStub(_ context.Context, event events.Event) {
	if strings.TrimSpace(n.cfg.WebhookURL) == "" {
		return
	}
	n.logger.Debug("sendWebhookNotificationStub",
		zap.String("url", n.cfg.WebhookURL),
		zap.Int64("request_id", event.RequestID),
		zap.String("event_type", string(event.Type)))
}
