package push

import (
	"context"
	"fmt"

	"firebase.google.com/go/v4/messaging"
	"github.com/kashsbd/awlam-backend/internal/logger"
	"go.uber.org/zap"
)

// maxMulticastTokens is the FCM limit on tokens per multicast call.
const maxMulticastTokens = 500

// MulticastSender is the subset of *messaging.Client used by FCM.
type MulticastSender interface {
	SendEachForMulticast(ctx context.Context, message *messaging.MulticastMessage) (*messaging.BatchResponse, error)
}

// FCM is a Gateway backed by Firebase Cloud Messaging. Registration ids are
// FCM device tokens.
type FCM struct {
	client MulticastSender
}

func NewFCM(client MulticastSender) *FCM {
	return &FCM{client: client}
}

// Send dispatches msg in batches of at most 500 tokens. A failed batch stops
// the dispatch and its error is returned with the counts gathered so far.
func (f *FCM) Send(ctx context.Context, registrations []string, msg Message) (*Result, error) {
	result := &Result{}
	for start := 0; start < len(registrations); start += maxMulticastTokens {
		end := start + maxMulticastTokens
		if end > len(registrations) {
			end = len(registrations)
		}

		resp, err := f.client.SendEachForMulticast(ctx, buildMulticast(registrations[start:end], msg))
		if err != nil {
			return result, fmt.Errorf("fcm multicast: %w", err)
		}
		result.SuccessCount += resp.SuccessCount
		result.FailureCount += resp.FailureCount

		for i, r := range resp.Responses {
			if r.Error != nil {
				logger.Log.Debug("fcm token rejected",
					zap.String("token", registrations[start+i]),
					zap.Error(r.Error),
				)
			}
		}
	}
	return result, nil
}

func buildMulticast(tokens []string, msg Message) *messaging.MulticastMessage {
	return &messaging.MulticastMessage{
		Tokens: tokens,
		Data:   msg.Data,
		Notification: &messaging.Notification{
			Title:    msg.Title,
			Body:     msg.Body,
			ImageURL: msg.ImageURL,
		},
		Android: &messaging.AndroidConfig{
			Priority: "high",
			Notification: &messaging.AndroidNotification{
				Icon:     msg.IconURL,
				ImageURL: msg.ImageURL,
			},
		},
		APNS: &messaging.APNSConfig{
			Headers: map[string]string{"apns-priority": "10"},
			FCMOptions: &messaging.APNSFCMOptions{
				ImageURL: msg.ImageURL,
			},
		},
		Webpush: &messaging.WebpushConfig{
			Notification: &messaging.WebpushNotification{
				Title: msg.Title,
				Body:  msg.Body,
				Icon:  msg.IconURL,
				Image: msg.ImageURL,
			},
		},
	}
}
