package repository

import (
	"context"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/vtc-admin-api/internal/models"
	"github.com/noah-isme/vtc-admin-api/pkg/listquery"
)

// NotificationListing orders a user's inbox newest first.
var NotificationListing = listquery.Definition{
	DefaultOrder: []string{"created_at DESC", "id DESC"},
	PerPage:      listquery.DefaultPerPage,
}

// NotificationRepository stores staff inbox entries.
type NotificationRepository struct {
	db *sqlx.DB
}

// NewNotificationRepository constructs a NotificationRepository.
func NewNotificationRepository(db *sqlx.DB) *NotificationRepository {
	return &NotificationRepository{db: db}
}

// Insert stores a notification unless one with the same id already exists.
// It reports whether a row was written.
func (r *NotificationRepository) Insert(ctx context.Context, n *models.Notification) (bool, error) {
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO notifications (id, user_id, type, student_id, data, created_at)
        VALUES (:id, :user_id, :type, :student_id, :data, :created_at)
        ON CONFLICT (id) DO NOTHING`
	res, err := r.db.NamedExecContext(ctx, query, n)
	if err != nil {
		return false, fmt.Errorf("insert notification: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("insert notification rows affected: %w", err)
	}
	return affected > 0, nil
}

// ListForUser returns one page of a user's notifications and their total.
func (r *NotificationRepository) ListForUser(ctx context.Context, userID string, q listquery.Query) ([]models.Notification, int, error) {
	base := psql.Select("id", "user_id", "type", "student_id", "data", "read_at", "created_at").
		From("notifications").
		Where(sq.Eq{"user_id": userID})
	query, args, err := q.Apply(base).ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build notification list: %w", err)
	}
	items := []models.Notification{}
	if err := r.db.SelectContext(ctx, &items, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list notifications: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM notifications WHERE user_id = $1`, userID); err != nil {
		return nil, 0, fmt.Errorf("count notifications: %w", err)
	}
	return items, total, nil
}

// MarkRead stamps read_at on a user's notification. Already read entries keep
// their original timestamp. Returns sql.ErrNoRows when the notification is
// not the user's.
func (r *NotificationRepository) MarkRead(ctx context.Context, id, userID string, at time.Time) error {
	const query = `UPDATE notifications SET read_at = COALESCE(read_at, $3) WHERE id = $1 AND user_id = $2`
	res, err := r.db.ExecContext(ctx, query, id, userID, at)
	if err != nil {
		return fmt.Errorf("mark notification read: %w", err)
	}
	return requireAffected(res, "mark notification read")
}
