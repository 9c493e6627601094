package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"docqa-assistant/internal/model"
	"docqa-assistant/internal/platform/rabbitmq"
)

// TurnStore persists one archived turn.
type TurnStore interface {
	Create(ctx context.Context, turn *model.ArchivedTurn) error
}

// TurnArchiveWorker consumes archived turns from the queue and writes them
// to the database.
type TurnArchiveWorker struct {
	conn      *amqp.Connection
	store     TurnStore
	queueName string
	logger    *zap.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewTurnArchiveWorker(conn *amqp.Connection, store TurnStore, queueName string, logger *zap.Logger) *TurnArchiveWorker {
	return &TurnArchiveWorker{
		conn:      conn,
		store:     store,
		queueName: queueName,
		logger:    logger,
	}
}

func (w *TurnArchiveWorker) Start(ctx context.Context) error {
	if w.cancel != nil {
		return nil
	}

	workerCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel

	ch, err := w.conn.Channel()
	if err != nil {
		cancel()
		return fmt.Errorf("open worker channel failed: %w", err)
	}
	if err := rabbitmq.DeclareQueue(ch, w.queueName); err != nil {
		_ = ch.Close()
		cancel()
		return err
	}

	deliveries, err := ch.Consume(
		w.queueName,
		"",
		false,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		_ = ch.Close()
		cancel()
		return fmt.Errorf("consume queue failed: %w", err)
	}

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		defer ch.Close()

		for {
			select {
			case <-workerCtx.Done():
				return
			case d, ok := <-deliveries:
				if !ok {
					return
				}
				if err := w.Handle(workerCtx, d.Body); err != nil {
					w.logger.Warn("archive turn failed", zap.String("queue", w.queueName), zap.Error(err))
					_ = d.Nack(false, false)
					continue
				}
				_ = d.Ack(false)
			}
		}
	}()

	w.logger.Info("turn archive worker started", zap.String("queue", w.queueName))
	return nil
}

// Handle decodes and stores one delivery body.
func (w *TurnArchiveWorker) Handle(ctx context.Context, body []byte) error {
	var turn model.ArchivedTurn
	if err := json.Unmarshal(body, &turn); err != nil {
		return fmt.Errorf("decode turn failed: %w", err)
	}
	if turn.SessionID == "" || turn.Role == "" {
		return fmt.Errorf("turn is missing session or role")
	}
	turn.ID = 0
	return w.store.Create(ctx, &turn)
}

func (w *TurnArchiveWorker) Close() {
	if w.cancel != nil {
		w.cancel()
	}
	w.wg.Wait()
}
