package websocket

import (
	"context"

	"github.com/Mena-E/transafe-7d-inspections-sub000/internal/models"
	"github.com/Mena-E/transafe-7d-inspections-sub000/internal/services"
)

var _ services.Events = (*HubEvents)(nil)

// HubEvents pushes committed state changes to connected dashboards. Clock
// changes also go to the driver so a second device stays in sync.
type HubEvents struct {
	hub *Hub
}

func NewHubEvents(hub *Hub) *HubEvents {
	return &HubEvents{hub: hub}
}

func (e *HubEvents) ClockTransitioned(_ context.Context, tr models.ClockTransition) {
	msg := Envelope{Type: models.EventClockTransition, Data: tr}
	e.hub.BroadcastToRole(models.RoleAdmin, msg)
	e.hub.BroadcastToUser(tr.DriverID, msg)
}

func (e *HubEvents) AttendanceRecorded(_ context.Context, rec models.AttendanceRecord) {
	e.hub.BroadcastToRole(models.RoleAdmin, Envelope{Type: models.EventAttendanceRecorded, Data: rec})
}

func (e *HubEvents) RouteCompleted(_ context.Context, c models.RouteCompletion) {
	e.hub.BroadcastToRole(models.RoleAdmin, Envelope{Type: models.EventRouteCompleted, Data: c})
}
