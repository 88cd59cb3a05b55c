package services

import (
	"github.com/localnerve/gestionale/internal/models"
	"github.com/localnerve/gestionale/internal/types"
	"gorm.io/gorm"
)

const notificationLimit = 50

// ListNotifications returns the user's notifications, newest first
func ListNotifications(db *gorm.DB, userID uint64, unreadOnly bool, page Page) ([]models.Notification, error) {
	query := db.Where("user_id = ?", userID)
	if unreadOnly {
		query = query.Where("is_read = ?", false)
	}

	notifications := []models.Notification{}
	if err := query.Order("created_at DESC").Order("id DESC").
		Scopes(page.scope(notificationLimit)).
		Find(&notifications).Error; err != nil {
		return nil, storeError(err, "notification")
	}
	return notifications, nil
}

// UnreadCount counts the user's unread notifications
func UnreadCount(db *gorm.DB, userID uint64) (int64, error) {
	var count int64
	if err := db.Model(&models.Notification{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Count(&count).Error; err != nil {
		return 0, storeError(err, "notification")
	}
	return count, nil
}

// findNotification scopes the lookup to the owner, so foreign ids read as missing
func findNotification(db *gorm.DB, notificationID, userID uint64) (*models.Notification, error) {
	var n models.Notification
	if err := db.Where("user_id = ?", userID).First(&n, notificationID).Error; err != nil {
		return nil, storeError(err, "notification")
	}
	return &n, nil
}

// MarkRead sets the read flag of one notification
func MarkRead(db *gorm.DB, notificationID, userID uint64, isRead bool) (*models.Notification, error) {
	n, err := findNotification(db, notificationID, userID)
	if err != nil {
		return nil, err
	}
	if err := db.Model(n).Update("is_read", isRead).Error; err != nil {
		return nil, storeError(err, "notification")
	}
	return n, nil
}

// MarkAllRead marks every unread notification of the user as read
func MarkAllRead(db *gorm.DB, userID uint64) (int64, error) {
	res := db.Model(&models.Notification{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Update("is_read", true)
	if res.Error != nil {
		return 0, storeError(res.Error, "notification")
	}
	return res.RowsAffected, nil
}

// DeleteNotification removes one of the user's notifications
func DeleteNotification(db *gorm.DB, notificationID, userID uint64) error {
	res := db.Where("user_id = ?", userID).Delete(&models.Notification{}, notificationID)
	if res.Error != nil {
		return storeError(res.Error, "notification")
	}
	if res.RowsAffected == 0 {
		return types.NotFound("notification")
	}
	return nil
}
