package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"

	"github.com/decantory/backend-decantory/internal/pricing"
)

// TaskOrderConfirmation is the asynq task type for order confirmation mail.
const TaskOrderConfirmation = "order:confirmation"

// OrderConfirmationPayload is the task body enqueued after an order commits.
type OrderConfirmationPayload struct {
	OrderID  string `json:"orderId"`
	Email    string `json:"email"`
	Total    int64  `json:"total"`
	Currency string `json:"currency"`
}

// Enqueuer schedules notification tasks. A nil Client disables enqueueing,
// which keeps checkout usable in environments without a worker.
type Enqueuer struct {
	Client *asynq.Client
	Logger zerolog.Logger
}

// OrderConfirmation enqueues a confirmation for the given order. Enqueue
// failures are logged and swallowed: the order is already committed and must
// not be failed retroactively over a notification.
func (e Enqueuer) OrderConfirmation(ctx context.Context, p OrderConfirmationPayload) {
	if e.Client == nil {
		return
	}
	body, err := json.Marshal(p)
	if err != nil {
		e.Logger.Error().Err(err).Str("order_id", p.OrderID).Msg("marshal confirmation payload")
		return
	}
	task := asynq.NewTask(TaskOrderConfirmation, body, asynq.MaxRetry(5))
	if _, err := e.Client.EnqueueContext(ctx, task); err != nil {
		e.Logger.Error().Err(err).Str("order_id", p.OrderID).Msg("enqueue order confirmation")
	}
}

// Sender delivers a confirmation message to the customer.
type Sender interface {
	SendOrderConfirmation(ctx context.Context, p OrderConfirmationPayload) error
}

// LogSender writes the confirmation to the log instead of delivering it.
// Stands in until a mail provider is wired up.
type LogSender struct {
	Logger zerolog.Logger
}

func (s LogSender) SendOrderConfirmation(_ context.Context, p OrderConfirmationPayload) error {
	s.Logger.Info().
		Str("order_id", p.OrderID).
		Str("email", p.Email).
		Str("total", pricing.FormatMajor(p.Total)).
		Str("currency", p.Currency).
		Msg("order confirmation sent")
	return nil
}

// Worker handles notification tasks on the asynq server side.
type Worker struct {
	Sender Sender
	Logger zerolog.Logger
}

// Register attaches the worker's handlers to the mux.
func (w Worker) Register(mux *asynq.ServeMux) {
	mux.HandleFunc(TaskOrderConfirmation, w.HandleOrderConfirmation)
}

// HandleOrderConfirmation delivers one confirmation task. A malformed payload
// is dropped rather than retried.
func (w Worker) HandleOrderConfirmation(ctx context.Context, t *asynq.Task) error {
	var p OrderConfirmationPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		w.Logger.Error().Err(err).Msg("malformed confirmation payload")
		return fmt.Errorf("unmarshal payload: %v: %w", err, asynq.SkipRetry)
	}
	if w.Sender == nil {
		return errors.New("notify: sender not configured")
	}
	if err := w.Sender.SendOrderConfirmation(ctx, p); err != nil {
		w.Logger.Warn().Err(err).Str("order_id", p.OrderID).Msg("confirmation delivery failed")
		return err
	}
	return nil
}
