package worker

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flicky/storefront-api/internal/model"
)

type fakeHistory struct {
	invalidated []uuid.UUID
	err         error
}

func (f *fakeHistory) InvalidateHistory(_ context.Context, userID uuid.UUID) error {
	if f.err != nil {
		return f.err
	}
	f.invalidated = append(f.invalidated, userID)
	return nil
}

func newTestWorker(h HistoryInvalidator) *OrderWorker {
	return NewOrderWorker(nil, h, nil, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func orderBody(t *testing.T, msg model.OrderMessage) []byte {
	t.Helper()
	body, err := json.Marshal(msg)
	require.NoError(t, err)
	return body
}

func TestOrderWorker_Handle(t *testing.T) {
	history := &fakeHistory{}
	w := newTestWorker(history)
	userID := uuid.New()

	got := w.handle(context.Background(), orderBody(t, model.OrderMessage{
		OrderID: uuid.New(), UserID: userID, Total: decimal.NewFromInt(250),
	}))

	assert.Equal(t, outcomeAck, got)
	assert.Equal(t, []uuid.UUID{userID}, history.invalidated)
}

func TestOrderWorker_Handle_Malformed(t *testing.T) {
	history := &fakeHistory{}
	w := newTestWorker(history)

	assert.Equal(t, outcomeReject, w.handle(context.Background(), []byte("{not json")))
	assert.Equal(t, outcomeReject, w.handle(context.Background(), []byte(`{"total":"1"}`)))
	assert.Empty(t, history.invalidated)
}

func TestOrderWorker_Handle_InvalidateFails(t *testing.T) {
	w := newTestWorker(&fakeHistory{err: errors.New("redis down")})

	got := w.handle(context.Background(), orderBody(t, model.OrderMessage{OrderID: uuid.New(), UserID: uuid.New()}))
	assert.Equal(t, outcomeReject, got)
}
