package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"

	"cropcare/internal/model"
	rabbitmqClient "cropcare/internal/platform/rabbitmq"
)

// RecordStore is the write side of the analysis record repository.
type RecordStore interface {
	Create(record *model.AnalysisRecord) error
}

type AnalysisRecordWorker struct {
	conn      *amqp.Connection
	store     RecordStore
	queueName string
	logger    *slog.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewAnalysisRecordWorker(conn *amqp.Connection, store RecordStore, queueName string, logger *slog.Logger) *AnalysisRecordWorker {
	if logger == nil {
		logger = slog.Default()
	}
	return &AnalysisRecordWorker{
		conn:      conn,
		store:     store,
		queueName: queueName,
		logger:    logger.With("worker", "analysis_record"),
	}
}

func (w *AnalysisRecordWorker) Start(ctx context.Context) error {
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

	if err := rabbitmqClient.DeclareQueue(ch, w.queueName); err != nil {
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
				if err := w.handle(d.Body); err != nil {
					w.logger.Error("persist analysis record failed", "error", err)
					_ = d.Nack(false, false)
					continue
				}
				_ = d.Ack(false)
			}
		}
	}()

	return nil
}

func (w *AnalysisRecordWorker) Close() {
	if w.cancel != nil {
		w.cancel()
	}
	w.wg.Wait()
}

func (w *AnalysisRecordWorker) handle(body []byte) error {
	var record model.AnalysisRecord
	if err := json.Unmarshal(body, &record); err != nil {
		return fmt.Errorf("decode analysis record failed: %w", err)
	}
	// Rows are keyed by the consumer's database.
	record.ID = 0
	return w.store.Create(&record)
}
