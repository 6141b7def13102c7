package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx/types"
	"go.uber.org/zap"

	"github.com/noah-isme/vtc-admin-api/internal/models"
	"github.com/noah-isme/vtc-admin-api/internal/repository"
	appErrors "github.com/noah-isme/vtc-admin-api/pkg/errors"
	"github.com/noah-isme/vtc-admin-api/pkg/jobs"
	"github.com/noah-isme/vtc-admin-api/pkg/listquery"
)

// JobStudentCreated is the queue job type for new-student fan-out.
const JobStudentCreated = "student.created"

const defaultNotificationBatch = 2

// notificationNamespace seeds deterministic notification ids so a retried
// fan-out writes the same id for the same user and student.
var notificationNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("vtc-admin-api/notifications"))

type staffDirectory interface {
	ListAfter(ctx context.Context, afterID string, limit int) ([]models.User, error)
}

type notificationStore interface {
	Insert(ctx context.Context, n *models.Notification) (bool, error)
	ListForUser(ctx context.Context, userID string, q listquery.Query) ([]models.Notification, int, error)
	MarkRead(ctx context.Context, id, userID string, at time.Time) error
}

type jobEnqueuer interface {
	Enqueue(job jobs.Job) error
}

// NotificationConfig tunes the fan-out.
type NotificationConfig struct {
	BatchSize int
}

// NotificationService notifies every staff user about new students and
// serves the staff inbox.
type NotificationService struct {
	users   staffDirectory
	store   notificationStore
	queue   jobEnqueuer
	metrics *MetricsService
	logger  *zap.Logger
	cfg     NotificationConfig
	now     func() time.Time
}

// NewNotificationService constructs a NotificationService.
func NewNotificationService(users staffDirectory, store notificationStore, metrics *MetricsService, logger *zap.Logger, cfg NotificationConfig) *NotificationService {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = defaultNotificationBatch
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationService{users: users, store: store, metrics: metrics, logger: logger, cfg: cfg, now: time.Now}
}

// UseQueue makes StudentCreated hand fan-out to a background queue.
func (s *NotificationService) UseQueue(queue jobEnqueuer) {
	s.queue = queue
}

// StudentCreated triggers the fan-out for a new student. Failures are
// logged and never reach the caller.
func (s *NotificationService) StudentCreated(ctx context.Context, student models.Student) {
	if s.queue != nil {
		err := s.queue.Enqueue(jobs.Job{ID: student.ID, Type: JobStudentCreated, Payload: student})
		if err == nil {
			return
		}
		s.logger.Warn("enqueue student notification failed, dispatching inline", zap.String("student_id", student.ID), zap.Error(err))
	}
	if _, err := s.Dispatch(ctx, student); err != nil {
		s.logger.Warn("student notification dispatch failed", zap.String("student_id", student.ID), zap.Error(err))
	}
}

// HandleJob processes queued student.created jobs.
func (s *NotificationService) HandleJob(ctx context.Context, job jobs.Job) error {
	if job.Type != JobStudentCreated {
		return fmt.Errorf("unsupported job type %q", job.Type)
	}
	student, ok := job.Payload.(models.Student)
	if !ok {
		return fmt.Errorf("job %s: unexpected payload %T", job.ID, job.Payload)
	}
	_, err := s.Dispatch(ctx, student)
	return err
}

// Dispatch walks all staff users in batches and writes one notification per
// user. It returns how many notifications were newly written; users already
// notified about the student are skipped.
func (s *NotificationService) Dispatch(ctx context.Context, student models.Student) (int, error) {
	data, err := json.Marshal(models.NewStudentData{
		StudentID:    student.ID,
		StudentName:  student.Name,
		StudentEmail: student.Email,
		DepartmentID: student.DepartmentID,
		Message:      fmt.Sprintf("New student %s has registered.", student.Name),
	})
	if err != nil {
		return 0, fmt.Errorf("encode notification data: %w", err)
	}

	written := 0
	cursor := ""
	for {
		batch, err := s.users.ListAfter(ctx, cursor, s.cfg.BatchSize)
		if err != nil {
			return written, fmt.Errorf("load staff batch after %q: %w", cursor, err)
		}
		for _, user := range batch {
			inserted, err := s.store.Insert(ctx, &models.Notification{
				ID:        NotificationID(user.ID, student.ID),
				UserID:    user.ID,
				Type:      models.NotificationNewStudent,
				StudentID: student.ID,
				Data:      types.JSONText(data),
				CreatedAt: s.now().UTC(),
			})
			if err != nil {
				s.metrics.RecordNotification("failed")
				return written, fmt.Errorf("notify user %s: %w", user.ID, err)
			}
			if inserted {
				written++
				s.metrics.RecordNotification("sent")
			} else {
				s.metrics.RecordNotification("duplicate")
			}
		}
		if len(batch) < s.cfg.BatchSize {
			break
		}
		cursor = batch[len(batch)-1].ID
	}
	s.logger.Debug("student notifications dispatched", zap.String("student_id", student.ID), zap.Int("written", written))
	return written, nil
}

// List returns a page of the user's notifications, newest first.
func (s *NotificationService) List(ctx context.Context, userID string, page int) (listquery.Page[models.Notification], error) {
	q := repository.NotificationListing.Prepare(listquery.Params{Page: page})
	items, total, err := s.store.ListForUser(ctx, userID, q)
	if err != nil {
		return listquery.Page[models.Notification]{}, internalError(err, "failed to list notifications")
	}
	return listquery.NewPage(q, items, total), nil
}

// MarkRead marks one of the user's notifications as read.
func (s *NotificationService) MarkRead(ctx context.Context, id, userID string) error {
	if !validID(id) {
		return appErrors.Clone(appErrors.ErrNotFound, "notification not found")
	}
	if err := s.store.MarkRead(ctx, id, userID, s.now().UTC()); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "notification not found")
		}
		return internalError(err, "failed to mark notification read")
	}
	return nil
}

// NotificationID derives the stable notification id for a user and student.
func NotificationID(userID, studentID string) string {
	return uuid.NewSHA1(notificationNamespace, []byte(userID+"|"+studentID)).String()
}
