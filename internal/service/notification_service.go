package service

import (
	"context"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/unipass-api/internal/models"
	appErrors "github.com/noah-isme/unipass-api/pkg/errors"
	"github.com/noah-isme/unipass-api/pkg/jobs"
	applog "github.com/noah-isme/unipass-api/pkg/logger"
	"github.com/noah-isme/unipass-api/pkg/validation"
)

// NotificationJobType tags queue jobs produced by NotificationService.
const NotificationJobType = "pass_notification"

type passResolver interface {
	Resolve(ctx context.Context, universityID string, filter models.PassFilter) ([]models.Pass, error)
}

type jobDispatcher interface {
	Enqueue(ctx context.Context, job jobs.Job) error
}

type walletNotifier interface {
	NotifyGoogle(ctx context.Context, pass models.Pass, content models.NotificationContent) error
	NotifyApple(ctx context.Context, pass models.Pass) error
}

type notificationCounter interface {
	IncrementNotification(ctx context.Context, passID string, at time.Time) error
}

// NotificationJob is the queue payload of one pass/platform delivery.
type NotificationJob struct {
	Pass     models.Pass
	Platform models.WalletPlatform
	Type     models.NotificationType
}

// NotificationService fans notification requests out onto the job queue.
type NotificationService struct {
	passes    passResolver
	queue     jobDispatcher
	validator *validator.Validate
	logger    *zap.Logger
}

// NewNotificationService constructs the dispatcher.
func NewNotificationService(passes passResolver, queue jobDispatcher, validate *validator.Validate, logger *zap.Logger) *NotificationService {
	if validate == nil {
		validate = validation.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationService{passes: passes, queue: queue, validator: validate, logger: logger}
}

// Types lists the notification catalogue.
func (s *NotificationService) Types() []models.NotificationTypeInfo {
	out := make([]models.NotificationTypeInfo, 0, len(models.NotificationTypes))
	for _, t := range models.NotificationTypes {
		out = append(out, models.NotificationTypeInfo{Type: t, Label: t.Label(), Content: t.Content()})
	}
	return out
}

// Send resolves the passes matching req.Filter and enqueues one job per linked
// wallet. Passes without a wallet on a requested platform are counted as skipped.
func (s *NotificationService) Send(ctx context.Context, universityID string, req models.SendNotificationRequest) (*models.NotificationDispatch, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Invalid(err, "invalid notification payload")
	}
	if !req.Type.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown notification type %q", req.Type))
	}
	platforms := req.Platforms
	if len(platforms) == 0 {
		platforms = []models.WalletPlatform{models.PlatformApple, models.PlatformGoogle}
	}

	passes, err := s.passes.Resolve(ctx, universityID, req.Filter)
	if err != nil {
		return nil, err
	}

	dispatch := &models.NotificationDispatch{Type: req.Type, EnqueuedAt: time.Now().UTC()}
	for _, pass := range passes {
		for _, platform := range platforms {
			if !linkedTo(pass, platform) {
				dispatch.Skipped++
				continue
			}
			job := jobs.Job{
				ID:      uuid.NewString(),
				Type:    NotificationJobType,
				Payload: NotificationJob{Pass: pass, Platform: platform, Type: req.Type},
			}
			if err := s.queue.Enqueue(ctx, job); err != nil {
				applog.For(ctx, s.logger).Error("failed to enqueue notification", zap.String("pass_id", pass.ID), zap.Error(err))
				return dispatch, appErrors.Wrap(err, appErrors.ErrUnavailable.Code, appErrors.ErrUnavailable.Status, "notification queue unavailable")
			}
			dispatch.Queued++
		}
	}
	applog.For(ctx, s.logger).Info("notification dispatched",
		zap.String("university_id", universityID),
		zap.String("type", string(req.Type)),
		zap.Int("queued", dispatch.Queued),
		zap.Int("skipped", dispatch.Skipped))
	return dispatch, nil
}

func linkedTo(pass models.Pass, platform models.WalletPlatform) bool {
	switch platform {
	case models.PlatformGoogle:
		return pass.GoogleWalletObjectID != nil && *pass.GoogleWalletObjectID != ""
	case models.PlatformApple:
		return pass.AppleWalletSerialNumber != nil && *pass.AppleWalletSerialNumber != ""
	}
	return false
}

type queryInvalidator interface {
	Invalidate(ctx context.Context, pattern string) error
}

// NotificationWorker delivers queued notifications through the wallet managers.
type NotificationWorker struct {
	wallet  walletNotifier
	counter notificationCounter
	cache   queryInvalidator
	metrics *MetricsService
	logger  *zap.Logger
	now     func() time.Time
}

// NewNotificationWorker constructs a worker. cache may be nil.
func NewNotificationWorker(wallet walletNotifier, counter notificationCounter, cache queryInvalidator, metrics *MetricsService, logger *zap.Logger) *NotificationWorker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationWorker{
		wallet:  wallet,
		counter: counter,
		cache:   cache,
		metrics: metrics,
		logger:  logger,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Handle processes a queue job. The counter only moves after a successful
// send, and a moved counter drops the cached query pages of the university.
func (w *NotificationWorker) Handle(ctx context.Context, job jobs.Job) error {
	payload, ok := job.Payload.(NotificationJob)
	if !ok {
		return fmt.Errorf("unexpected payload %T for job %s", job.Payload, job.ID)
	}

	var err error
	switch payload.Platform {
	case models.PlatformGoogle:
		err = w.wallet.NotifyGoogle(ctx, payload.Pass, payload.Type.Content())
	case models.PlatformApple:
		err = w.wallet.NotifyApple(ctx, payload.Pass)
	default:
		err = fmt.Errorf("unsupported platform %q", payload.Platform)
	}
	if err != nil {
		return err
	}

	w.metrics.RecordNotification(payload.Platform, true)
	if err := w.counter.IncrementNotification(ctx, payload.Pass.ID, w.now()); err != nil {
		w.logger.Warn("failed to bump notification counter", zap.String("pass_id", payload.Pass.ID), zap.Error(err))
		return nil
	}
	if w.cache != nil {
		if err := w.cache.Invalidate(ctx, passQueryPattern(payload.Pass.UniversityID)); err != nil {
			w.logger.Warn("failed to invalidate pass query cache", zap.String("university_id", payload.Pass.UniversityID), zap.Error(err))
		}
	}
	return nil
}

// HandleFailure is the queue failure hook; failed sends are never retried.
func (w *NotificationWorker) HandleFailure(job jobs.Job, err error) {
	fields := []zap.Field{zap.String("job_id", job.ID), zap.Error(err)}
	if payload, ok := job.Payload.(NotificationJob); ok {
		w.metrics.RecordNotification(payload.Platform, false)
		fields = append(fields, zap.String("pass_id", payload.Pass.ID), zap.String("platform", string(payload.Platform)))
	}
	w.logger.Error("notification delivery failed", fields...)
}
