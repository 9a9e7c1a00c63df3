package push

import (
	"context"
	"time"

	"github.com/kashsbd/awlam-backend/internal/logger"
	"github.com/kashsbd/awlam-backend/internal/models"
	"go.uber.org/zap"
)

// ReceiptStore persists dispatch outcomes.
type ReceiptStore interface {
	Create(ctx context.Context, receipt *models.PushReceipt) error
}

type recordingGateway struct {
	next  Gateway
	store ReceiptStore
}

// WithReceipts records a receipt for every dispatch made through gw.
// Receipt failures are logged and never change the dispatch result.
func WithReceipts(gw Gateway, store ReceiptStore) Gateway {
	return &recordingGateway{next: gw, store: store}
}

func (g *recordingGateway) Send(ctx context.Context, registrations []string, msg Message) (*Result, error) {
	result, err := g.next.Send(ctx, registrations, msg)

	receipt := &models.PushReceipt{
		NotificationID: msg.NotificationID,
		Kind:           msg.Kind,
		Recipients:     len(registrations),
		CreatedAt:      time.Now(),
	}
	if result != nil {
		receipt.SuccessCount = result.SuccessCount
		receipt.FailureCount = result.FailureCount
	}
	if err != nil {
		receipt.Error = err.Error()
	}

	if rerr := g.store.Create(ctx, receipt); rerr != nil {
		logger.Log.Warn("failed to record push receipt",
			zap.String("notification_id", msg.NotificationID),
			zap.Error(rerr),
		)
	}
	return result, err
}
