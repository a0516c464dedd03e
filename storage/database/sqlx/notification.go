package sqlxrepos

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/elimusoft/elimu/core"
	"github.com/elimusoft/elimu/core/notification"
)

type notificationRow struct {
	ID             int       `db:"id"`
	RecipientID    int       `db:"recipient_id"`
	AnnouncementID null.Int  `db:"announcement_id"`
	Title          string    `db:"title"`
	Message        string    `db:"message"`
	Link           string    `db:"link"`
	IsRead         bool      `db:"is_read"`
	Removed        bool      `db:"removed"`
	CreatedAt      time.Time `db:"created_at"`
}

func (r notificationRow) toNotification() notification.Notification {
	return notification.Notification{
		ID:             r.ID,
		RecipientID:    r.RecipientID,
		AnnouncementID: r.AnnouncementID,
		Title:          r.Title,
		Message:        r.Message,
		Link:           r.Link,
		IsRead:         r.IsRead,
		Removed:        r.Removed,
		CreatedAt:      r.CreatedAt,
	}
}

type notificationRepository struct {
	db *sqlx.DB
}

var _ notification.Repository = (*notificationRepository)(nil) // interface compliance check

func NewNotificationRepository(db *sqlx.DB) notification.Repository {
	return &notificationRepository{db: db}
}

func (repo *notificationRepository) CreateNotification(ctx context.Context, notif notification.Notification) (notification.Notification, error) {
	q := `
		INSERT INTO notification (recipient_id, announcement_id, title, message, link, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`
	err := repo.db.QueryRowContext(ctx, q,
		notif.RecipientID, notif.AnnouncementID, notif.Title, notif.Message, notif.Link, notif.CreatedAt,
	).Scan(&notif.ID)
	if err != nil {
		return notification.Notification{}, errors.Wrap(err, "inserting notification")
	}
	return notif, nil
}

func (repo *notificationRepository) CreateNotifications(ctx context.Context, notifs []notification.Notification) error {
	if len(notifs) == 0 {
		return nil
	}
	return core.AtomicTx(ctx, repo.db, func(tx *sqlx.Tx) error {
		q := `
			INSERT INTO notification (recipient_id, announcement_id, title, message, link, created_at)
			VALUES ($1, $2, $3, $4, $5, $6)`
		for _, notif := range notifs {
			_, err := tx.ExecContext(ctx, q,
				notif.RecipientID, notif.AnnouncementID, notif.Title, notif.Message, notif.Link, notif.CreatedAt,
			)
			if err != nil {
				return errors.Wrap(err, "inserting notification batch")
			}
		}
		return nil
	})
}

func (repo *notificationRepository) GetNotification(ctx context.Context, id int) (notification.Notification, error) {
	var row notificationRow
	q := `
		SELECT id, recipient_id, announcement_id, title, message, link, is_read, removed, created_at
		FROM notification WHERE id = $1`
	if err := repo.db.GetContext(ctx, &row, q, id); err != nil {
		if err == sql.ErrNoRows {
			return notification.Notification{}, notification.ErrNotFound
		}
		return notification.Notification{}, errors.Wrap(err, "getting notification")
	}
	return row.toNotification(), nil
}

func (repo *notificationRepository) QueryNotificationsByRecipient(ctx context.Context, recipientID int) ([]notification.Notification, error) {
	q := `
		SELECT id, recipient_id, announcement_id, title, message, link, is_read, removed, created_at
		FROM notification
		WHERE recipient_id = $1 AND NOT removed
		ORDER BY created_at DESC`
	var rows []notificationRow
	if err := repo.db.SelectContext(ctx, &rows, q, recipientID); err != nil {
		return nil, errors.Wrap(err, "querying notifications")
	}
	notifs := make([]notification.Notification, 0, len(rows))
	for _, r := range rows {
		notifs = append(notifs, r.toNotification())
	}
	return notifs, nil
}

func (repo *notificationRepository) CountUnread(ctx context.Context, recipientID int) (int, error) {
	var count int
	q := `SELECT COUNT(*) FROM notification WHERE recipient_id = $1 AND NOT is_read AND NOT removed`
	if err := repo.db.GetContext(ctx, &count, q, recipientID); err != nil {
		return 0, errors.Wrap(err, "counting unread notifications")
	}
	return count, nil
}

func (repo *notificationRepository) MarkNotificationRead(ctx context.Context, id int) error {
	res, err := repo.db.ExecContext(ctx, `UPDATE notification SET is_read = TRUE WHERE id = $1`, id)
	if err != nil {
		return errors.Wrap(err, "marking notification read")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return notification.ErrNotFound
	}
	return nil
}

func (repo *notificationRepository) RemoveNotification(ctx context.Context, id int) error {
	res, err := repo.db.ExecContext(ctx, `UPDATE notification SET removed = TRUE WHERE id = $1`, id)
	if err != nil {
		return errors.Wrap(err, "removing notification")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return notification.ErrNotFound
	}
	return nil
}
