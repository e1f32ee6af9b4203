package events

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/sendback/service-dashboard/internal/domain/returns"
)

func TestNewReturnInitiatedEvent(t *testing.T) {
	req := &returns.ReturnRequest{OrderID: 1, ItemIDs: []int64{1, 2}, Method: returns.MethodMail}
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.FixedZone("X", 3600))

	event := NewReturnInitiatedEvent(req, &returns.InitiateResult{Next: "/order/1/mail"}, now)
	req.ItemIDs[0] = 99

	assert.NotEqual(t, uuid.Nil, event.EventID)
	assert.Equal(t, int64(1), event.OrderID)
	assert.Equal(t, []int64{1, 2}, event.ItemIDs)
	assert.Equal(t, "mail", event.Method)
	assert.Equal(t, "/order/1/mail", event.Next)
	assert.Equal(t, time.UTC, event.Timestamp.Location())
}

func TestPublisherWithoutConnectionDropsEvents(t *testing.T) {
	p := NewPublisher(nil, nil)
	req := &returns.ReturnRequest{OrderID: 1, ItemIDs: []int64{1}, Method: returns.MethodDropoff}

	assert.NoError(t, p.PublishReturnInitiated(NewReturnInitiatedEvent(req, &returns.InitiateResult{Next: "/n"}, time.Now())))
	assert.NotPanics(t, func() {
		p.ReturnInitiated(context.Background(), req, &returns.InitiateResult{Next: "/n"})
	})
}
