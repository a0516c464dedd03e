package dummydb

import (
	"context"
	"sort"

	"github.com/elimusoft/elimu/core/notification"
)

type notificationRepository struct {
	db *notificationTable
}

var _ notification.Repository = (*notificationRepository)(nil) // interface compliance check

func NewNotificationRepository(db *DB) notification.Repository {
	return &notificationRepository{db: db.notification}
}

func (repo *notificationRepository) CreateNotification(ctx context.Context, notif notification.Notification) (notification.Notification, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	repo.db.seq++
	notif.ID = repo.db.seq
	repo.db.table[notif.ID] = &notif
	return notif, nil
}

func (repo *notificationRepository) CreateNotifications(ctx context.Context, notifs []notification.Notification) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	for _, notif := range notifs {
		repo.db.seq++
		notif.ID = repo.db.seq
		n := notif
		repo.db.table[n.ID] = &n
	}
	return nil
}

func (repo *notificationRepository) GetNotification(ctx context.Context, id int) (notification.Notification, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if notif, ok := repo.db.table[id]; ok {
		return *notif, nil
	}
	return notification.Notification{}, notification.ErrNotFound
}

func (repo *notificationRepository) QueryNotificationsByRecipient(ctx context.Context, recipientID int) ([]notification.Notification, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	var notifs []notification.Notification
	for _, notif := range repo.db.table {
		if notif.RecipientID == recipientID && !notif.Removed {
			notifs = append(notifs, *notif)
		}
	}
	sort.Slice(notifs, func(i, j int) bool { return notifs[i].ID > notifs[j].ID }) // newest first
	return notifs, nil
}

func (repo *notificationRepository) CountUnread(ctx context.Context, recipientID int) (int, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	var count int
	for _, notif := range repo.db.table {
		if notif.RecipientID == recipientID && !notif.IsRead && !notif.Removed {
			count++
		}
	}
	return count, nil
}

func (repo *notificationRepository) MarkNotificationRead(ctx context.Context, id int) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	notif, ok := repo.db.table[id]
	if !ok {
		return notification.ErrNotFound
	}
	notif.IsRead = true
	return nil
}

func (repo *notificationRepository) RemoveNotification(ctx context.Context, id int) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	notif, ok := repo.db.table[id]
	if !ok {
		return notification.ErrNotFound
	}
	notif.Removed = true
	return nil
}
