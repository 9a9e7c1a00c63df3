package repositories

import (
	"context"

	"github.com/kashsbd/awlam-backend/internal/models"
	"gorm.io/gorm"
)

// PushReceiptRepository persists push dispatch outcomes in PostgreSQL.
type PushReceiptRepository interface {
	Create(ctx context.Context, receipt *models.PushReceipt) error
	ListByNotification(ctx context.Context, notificationID string) ([]models.PushReceipt, error)
}

type postgresPushReceiptRepository struct {
	db *gorm.DB
}

func NewPostgresPushReceiptRepository(db *gorm.DB) PushReceiptRepository {
	return &postgresPushReceiptRepository{db: db}
}

func (r *postgresPushReceiptRepository) Create(ctx context.Context, receipt *models.PushReceipt) error {
	return r.db.WithContext(ctx).Create(receipt).Error
}

func (r *postgresPushReceiptRepository) ListByNotification(ctx context.Context, notificationID string) ([]models.PushReceipt, error) {
	var receipts []models.PushReceipt
	err := r.db.WithContext(ctx).
		Where("notification_id = ?", notificationID).
		Order("created_at DESC").
		Find(&receipts).Error
	return receipts, err
}
