package services

import (
	"context"
	"fmt"
	"log"
	"strconv"

	"github.com/Mena-E/transafe-7d-inspections-sub000/internal/models"
)

// Events receives state changes after they are committed. Implementations are best-effort:
// they log their own failures and never fail the operation that produced the event.
type Events interface {
	ClockTransitioned(ctx context.Context, tr models.ClockTransition)
	AttendanceRecorded(ctx context.Context, rec models.AttendanceRecord)
	RouteCompleted(ctx context.Context, c models.RouteCompletion)
}

// NopEvents discards everything
type NopEvents struct{}

func (NopEvents) ClockTransitioned(context.Context, models.ClockTransition)   {}
func (NopEvents) AttendanceRecorded(context.Context, models.AttendanceRecord) {}
func (NopEvents) RouteCompleted(context.Context, models.RouteCompletion)      {}

// MultiEvents fans each event out to every sink in order
type MultiEvents []Events

func (m MultiEvents) ClockTransitioned(ctx context.Context, tr models.ClockTransition) {
	for _, e := range m {
		e.ClockTransitioned(ctx, tr)
	}
}

func (m MultiEvents) AttendanceRecorded(ctx context.Context, rec models.AttendanceRecord) {
	for _, e := range m {
		e.AttendanceRecorded(ctx, rec)
	}
}

func (m MultiEvents) RouteCompleted(ctx context.Context, c models.RouteCompletion) {
	for _, e := range m {
		e.RouteCompleted(ctx, c)
	}
}

// Multicaster sends one push message to many devices
type Multicaster interface {
	SendMulticast(ctx context.Context, tokens []string, title, body string, data map[string]string) (stale []string, err error)
}

type TokenStore interface {
	GetTokensByRole(ctx context.Context, role string) ([]string, error)
	DeleteFCMTokens(ctx context.Context, tokens []string) error
}

// PushEvents notifies admin devices when a route is completed
type PushEvents struct {
	NopEvents
	sender Multicaster
	tokens TokenStore
}

func NewPushEvents(sender Multicaster, tokens TokenStore) *PushEvents {
	return &PushEvents{sender: sender, tokens: tokens}
}

func (p *PushEvents) RouteCompleted(ctx context.Context, c models.RouteCompletion) {
	tokens, err := p.tokens.GetTokensByRole(ctx, models.RoleAdmin)
	if err != nil {
		log.Printf("⚠️  Push: failed to load admin tokens: %v", err)
		return
	}
	if len(tokens) == 0 {
		return
	}

	body := fmt.Sprintf("%d of %d students confirmed.", c.ConfirmedStudents, c.TotalStudents)
	data := map[string]string{
		"type":               models.EventRouteCompleted,
		"route_id":           c.RouteID,
		"driver_id":          c.DriverID,
		"work_date":          c.WorkDate,
		"confirmed_students": strconv.Itoa(c.ConfirmedStudents),
		"total_students":     strconv.Itoa(c.TotalStudents),
	}

	stale, err := p.sender.SendMulticast(ctx, tokens, "Route completed", body, data)
	if err != nil {
		log.Printf("⚠️  Push: route completion notice failed: %v", err)
	}
	if len(stale) == 0 {
		return
	}
	if err := p.tokens.DeleteFCMTokens(ctx, stale); err != nil {
		log.Printf("⚠️  Push: failed to prune %d stale tokens: %v", len(stale), err)
	}
}
