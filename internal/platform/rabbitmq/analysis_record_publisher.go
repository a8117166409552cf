package rabbitmq

import (
	"context"
	"encoding/json"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"

	"cropcare/internal/model"
)

type AnalysisRecordPublisher struct {
	conn      *amqp.Connection
	queueName string
}

func NewAnalysisRecordPublisher(conn *amqp.Connection, queueName string) *AnalysisRecordPublisher {
	return &AnalysisRecordPublisher{
		conn:      conn,
		queueName: queueName,
	}
}

func (p *AnalysisRecordPublisher) Publish(ctx context.Context, record model.AnalysisRecord) error {
	ch, err := p.conn.Channel()
	if err != nil {
		return fmt.Errorf("open rabbitmq channel failed: %w", err)
	}
	defer ch.Close()

	if err := DeclareQueue(ch, p.queueName); err != nil {
		return err
	}

	payload, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("marshal analysis record failed: %w", err)
	}

	if err := ch.PublishWithContext(
		ctx,
		"",
		p.queueName,
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			Body:         payload,
			DeliveryMode: amqp.Persistent,
		},
	); err != nil {
		return fmt.Errorf("publish analysis record failed: %w", err)
	}
	return nil
}
