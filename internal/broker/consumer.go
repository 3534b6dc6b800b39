package broker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/Mena-E/transafe-7d-inspections-sub000/internal/apperrors"
	"github.com/Mena-E/transafe-7d-inspections-sub000/internal/models"
)

const inspectionQueue = "transafe.clock.inspections"

// ClockDriver is the part of the clock controller the consumer needs
type ClockDriver interface {
	OnInspectionSubmitted(ctx context.Context, driverID string, kind models.InspectionType, workDate string, now int64, inspectionID string) (*models.ClockTransition, error)
}

// InspectionConsumer applies clock transitions for inspections submitted in an external system
type InspectionConsumer struct {
	mq    *RabbitMQ
	clock ClockDriver
	loc   *time.Location
}

func NewInspectionConsumer(mq *RabbitMQ, clock ClockDriver, loc *time.Location) *InspectionConsumer {
	return &InspectionConsumer{mq: mq, clock: clock, loc: loc}
}

// Run declares and binds the queue, then consumes until ctx is cancelled
func (c *InspectionConsumer) Run(ctx context.Context) error {
	ch, err := c.mq.channel()
	if err != nil {
		return fmt.Errorf("failed to open consumer channel: %w", err)
	}

	if _, err := ch.QueueDeclare(inspectionQueue, true, false, false, false, nil); err != nil {
		ch.Close()
		return fmt.Errorf("failed to declare queue: %w", err)
	}
	if err := ch.QueueBind(inspectionQueue, models.EventInspectionSubmitted, Exchange, false, nil); err != nil {
		ch.Close()
		return fmt.Errorf("failed to bind queue: %w", err)
	}
	if err := ch.Qos(10, 0, false); err != nil {
		ch.Close()
		return fmt.Errorf("failed to set qos: %w", err)
	}

	deliveries, err := ch.ConsumeWithContext(ctx, inspectionQueue, "", false, false, false, false, nil)
	if err != nil {
		ch.Close()
		return fmt.Errorf("failed to consume: %w", err)
	}

	log.Printf("📡 Consuming %s from %s", models.EventInspectionSubmitted, inspectionQueue)

	go func() {
		defer ch.Close()
		for {
			select {
			case msg, ok := <-deliveries:
				if !ok {
					return
				}
				c.deliver(ctx, msg)
			case <-ctx.Done():
				return
			}
		}
	}()

	return nil
}

func (c *InspectionConsumer) deliver(ctx context.Context, msg amqp.Delivery) {
	err := c.Handle(ctx, msg.Body)
	switch {
	case err == nil:
		msg.Ack(false)
	case isPermanent(err):
		log.Printf("❌ Dropping inspection message: %v", err)
		msg.Nack(false, false)
	default:
		log.Printf("⚠️  Inspection message failed, requeueing: %v", err)
		msg.Nack(false, true)
	}
}

// Handle applies one inspection.submitted message
func (c *InspectionConsumer) Handle(ctx context.Context, body []byte) error {
	var m models.InspectionSubmittedMessage
	if err := json.Unmarshal(body, &m); err != nil {
		return apperrors.Validation("malformed message: %v", err)
	}
	if m.DriverID == "" {
		return apperrors.Validation("driver_id is required")
	}

	submitted := time.Now()
	if m.SubmittedAt > 0 {
		submitted = time.Unix(m.SubmittedAt, 0)
	}
	workDate := models.WorkDateFor(submitted, c.loc)

	// The external inspection is not a row here, so the interval carries no inspection reference
	tr, err := c.clock.OnInspectionSubmitted(ctx, m.DriverID, m.InspectionType, workDate, submitted.Unix(), "")
	if err != nil {
		return err
	}
	if tr != nil && tr.Changed {
		log.Printf("📨 External inspection %q moved driver %s to %s", m.InspectionID, m.DriverID, tr.To)
	}
	return nil
}

// isPermanent reports errors that will fail the same way on redelivery
func isPermanent(err error) bool {
	return errors.Is(err, apperrors.ErrValidation) || errors.Is(err, apperrors.ErrNotFound)
}
