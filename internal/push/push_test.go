package push

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"firebase.google.com/go/v4/messaging"
	"github.com/kashsbd/awlam-backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockSender struct {
	mock.Mock
}

func (m *MockSender) SendEachForMulticast(ctx context.Context, message *messaging.MulticastMessage) (*messaging.BatchResponse, error) {
	args := m.Called(ctx, message)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*messaging.BatchResponse), args.Error(1)
}

type MockReceiptStore struct {
	mock.Mock
}

func (m *MockReceiptStore) Create(ctx context.Context, receipt *models.PushReceipt) error {
	return m.Called(ctx, receipt).Error(0)
}

type MockGateway struct {
	mock.Mock
}

func (m *MockGateway) Send(ctx context.Context, registrations []string, msg Message) (*Result, error) {
	args := m.Called(ctx, registrations, msg)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Result), args.Error(1)
}

func tokens(n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = fmt.Sprintf("token-%d", i)
	}
	return out
}

func TestFCMBuildsHighPriorityMessage(t *testing.T) {
	sender := new(MockSender)
	sender.On("SendEachForMulticast", mock.Anything, mock.MatchedBy(func(m *messaging.MulticastMessage) bool {
		return m.Notification.Title == "Awlam" &&
			m.Notification.Body == "Alice liked your citizen post." &&
			m.Notification.ImageURL == "http://img" &&
			m.Android.Priority == "high" &&
			m.Android.Notification.Icon == "http://icon" &&
			len(m.Tokens) == 2
	})).Return(&messaging.BatchResponse{SuccessCount: 1, FailureCount: 1}, nil)

	res, err := NewFCM(sender).Send(context.Background(), []string{"a", "b"}, Message{
		Title:    "Awlam",
		Body:     "Alice liked your citizen post.",
		IconURL:  "http://icon",
		ImageURL: "http://img",
	})

	require.NoError(t, err)
	assert.Equal(t, 1, res.SuccessCount)
	assert.Equal(t, 1, res.FailureCount)
	sender.AssertExpectations(t)
}

func TestFCMBatchesLargeRecipientSets(t *testing.T) {
	sender := new(MockSender)
	sender.On("SendEachForMulticast", mock.Anything, mock.MatchedBy(func(m *messaging.MulticastMessage) bool {
		return len(m.Tokens) == maxMulticastTokens
	})).Return(&messaging.BatchResponse{SuccessCount: maxMulticastTokens}, nil).Once()
	sender.On("SendEachForMulticast", mock.Anything, mock.MatchedBy(func(m *messaging.MulticastMessage) bool {
		return len(m.Tokens) == 20
	})).Return(&messaging.BatchResponse{SuccessCount: 20}, nil).Once()

	res, err := NewFCM(sender).Send(context.Background(), tokens(maxMulticastTokens+20), Message{})

	require.NoError(t, err)
	assert.Equal(t, maxMulticastTokens+20, res.SuccessCount)
	sender.AssertNumberOfCalls(t, "SendEachForMulticast", 2)
}

func TestFCMPropagatesError(t *testing.T) {
	sender := new(MockSender)
	sender.On("SendEachForMulticast", mock.Anything, mock.Anything).Return(nil, errors.New("unavailable"))

	_, err := NewFCM(sender).Send(context.Background(), []string{"a"}, Message{})

	assert.ErrorContains(t, err, "unavailable")
}

func TestWithReceiptsRecordsOutcome(t *testing.T) {
	gw := new(MockGateway)
	store := new(MockReceiptStore)
	msg := Message{NotificationID: "n1", Kind: "LIKE-POST"}

	gw.On("Send", mock.Anything, []string{"a", "b"}, msg).Return(&Result{SuccessCount: 2}, nil)
	store.On("Create", mock.Anything, mock.MatchedBy(func(r *models.PushReceipt) bool {
		return r.NotificationID == "n1" && r.Kind == "LIKE-POST" && r.Recipients == 2 && r.SuccessCount == 2 && r.Error == ""
	})).Return(nil)

	res, err := WithReceipts(gw, store).Send(context.Background(), []string{"a", "b"}, msg)

	require.NoError(t, err)
	assert.Equal(t, 2, res.SuccessCount)
	store.AssertExpectations(t)
}

func TestWithReceiptsKeepsGatewayErrorWhenStoreFails(t *testing.T) {
	gw := new(MockGateway)
	store := new(MockReceiptStore)

	gw.On("Send", mock.Anything, mock.Anything, mock.Anything).Return(nil, errors.New("timeout"))
	store.On("Create", mock.Anything, mock.MatchedBy(func(r *models.PushReceipt) bool {
		return r.Error == "timeout"
	})).Return(errors.New("db down"))

	_, err := WithReceipts(gw, store).Send(context.Background(), []string{"a"}, Message{})

	assert.EqualError(t, err, "timeout")
	store.AssertExpectations(t)
}
