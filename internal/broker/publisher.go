package broker

import (
	"context"
	"log"

	"github.com/Mena-E/transafe-7d-inspections-sub000/internal/models"
	"github.com/Mena-E/transafe-7d-inspections-sub000/internal/services"
)

var _ services.Events = (*EventPublisher)(nil)

type publisher interface {
	Publish(ctx context.Context, routingKey string, v any) error
}

// EventPublisher forwards committed state changes to the events exchange
type EventPublisher struct {
	mq publisher
}

func NewEventPublisher(mq *RabbitMQ) *EventPublisher {
	return &EventPublisher{mq: mq}
}

func (p *EventPublisher) ClockTransitioned(ctx context.Context, tr models.ClockTransition) {
	p.publish(ctx, models.EventClockTransition, tr)
}

func (p *EventPublisher) AttendanceRecorded(ctx context.Context, rec models.AttendanceRecord) {
	p.publish(ctx, models.EventAttendanceRecorded, rec)
}

func (p *EventPublisher) RouteCompleted(ctx context.Context, c models.RouteCompletion) {
	p.publish(ctx, models.EventRouteCompleted, c)
}

func (p *EventPublisher) publish(ctx context.Context, key string, v any) {
	if err := p.mq.Publish(ctx, key, v); err != nil {
		log.Printf("⚠️  Failed to publish %s: %v", key, err)
	}
}
