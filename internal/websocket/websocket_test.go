package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/Mena-E/transafe-7d-inspections-sub000/internal/middleware"
	"github.com/Mena-E/transafe-7d-inspections-sub000/internal/models"
)

const testSecret = "ws-secret"

type fakeLocations struct {
	mu   sync.Mutex
	seen []models.DriverLocation
}

func (f *fakeLocations) Update(_ context.Context, loc *models.DriverLocation) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seen = append(f.seen, *loc)
	return nil
}

func (f *fakeLocations) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.seen)
}

func startHub(t *testing.T, locations LocationUpdater) *Hub {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	hub := NewHub(locations)
	go hub.Run(ctx)
	return hub
}

// offlineClient is a registered client without a socket; tests read its send queue directly
func offlineClient(t *testing.T, hub *Hub, userID, role string) *Client {
	t.Helper()
	c := &Client{UserID: userID, UserRole: role, hub: hub, send: make(chan []byte, 16)}
	if !hub.Register(c) {
		t.Fatalf("hub stopped")
	}
	waitFor(t, func() bool { return hub.IsUserConnected(userID) })
	return c
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("condition not met in time")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func receive(t *testing.T, c *Client) Envelope {
	t.Helper()
	select {
	case data, ok := <-c.send:
		if !ok {
			t.Fatalf("send channel closed")
		}
		var env Envelope
		if err := json.Unmarshal(data, &env); err != nil {
			t.Fatalf("bad frame %s: %v", data, err)
		}
		return env
	case <-time.After(time.Second):
		t.Fatalf("no message for %s", c.UserID)
	}
	return Envelope{}
}

func assertQuiet(t *testing.T, c *Client) {
	t.Helper()
	select {
	case data := <-c.send:
		t.Fatalf("%s should not receive %s", c.UserID, data)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestBroadcastToRole(t *testing.T) {
	hub := startHub(t, nil)
	admin := offlineClient(t, hub, "a1", models.RoleAdmin)
	driver := offlineClient(t, hub, "d1", models.RoleDriver)

	hub.BroadcastToRole(models.RoleAdmin, Envelope{Type: "hello"})

	if env := receive(t, admin); env.Type != "hello" {
		t.Fatalf("type = %q, want hello", env.Type)
	}
	assertQuiet(t, driver)
}

func TestReconnectReplacesPreviousClient(t *testing.T) {
	hub := startHub(t, nil)
	first := offlineClient(t, hub, "d1", models.RoleDriver)
	second := &Client{UserID: "d1", UserRole: models.RoleDriver, hub: hub, send: make(chan []byte, 16)}
	hub.Register(second)

	select {
	case _, ok := <-first.send:
		if ok {
			t.Fatalf("expected the old client's queue to be closed")
		}
	case <-time.After(time.Second):
		t.Fatalf("old client was not closed")
	}

	// the stale socket unregistering must not drop the new one
	hub.Unregister(first)
	hub.BroadcastToUser("d1", Envelope{Type: "still-here"})
	if env := receive(t, second); env.Type != "still-here" {
		t.Fatalf("type = %q", env.Type)
	}
}

func TestLocationUpdateIsStoredAndRelayed(t *testing.T) {
	locations := &fakeLocations{}
	hub := startHub(t, locations)
	admin := offlineClient(t, hub, "a1", models.RoleAdmin)
	driver := offlineClient(t, hub, "d1", models.RoleDriver)

	driver.handleMessage([]byte(`{"type":"location_update","data":{"latitude":37.33,"longitude":-121.88,"speed":8.5,"timestamp":1725868800}}`))

	if locations.count() != 1 {
		t.Fatalf("expected 1 stored location, got %d", locations.count())
	}
	if got := locations.seen[0]; got.DriverID != "d1" || got.Latitude != 37.33 || got.Speed == nil || *got.Speed != 8.5 {
		t.Fatalf("stored %+v", got)
	}
	if env := receive(t, admin); env.Type != "driver_location_update" {
		t.Fatalf("type = %q, want driver_location_update", env.Type)
	}

	// admins do not report positions, and frames without coordinates are dropped
	admin.handleMessage([]byte(`{"type":"location_update","data":{"latitude":1,"longitude":1}}`))
	driver.handleMessage([]byte(`{"type":"location_update","data":{"speed":3}}`))
	driver.handleMessage([]byte(`not json`))
	if locations.count() != 1 {
		t.Fatalf("expected no further writes, got %d", locations.count())
	}
}

func TestHubEvents(t *testing.T) {
	hub := startHub(t, nil)
	admin := offlineClient(t, hub, "a1", models.RoleAdmin)
	driver := offlineClient(t, hub, "d1", models.RoleDriver)
	other := offlineClient(t, hub, "d2", models.RoleDriver)
	events := NewHubEvents(hub)
	ctx := context.Background()

	events.ClockTransitioned(ctx, models.ClockTransition{DriverID: "d1", To: models.ClockStateIn, Changed: true})
	if env := receive(t, admin); env.Type != models.EventClockTransition {
		t.Fatalf("admin got %q", env.Type)
	}
	if env := receive(t, driver); env.Type != models.EventClockTransition {
		t.Fatalf("driver got %q", env.Type)
	}
	assertQuiet(t, other)

	events.RouteCompleted(ctx, models.RouteCompletion{RouteID: "r1"})
	if env := receive(t, admin); env.Type != models.EventRouteCompleted {
		t.Fatalf("admin got %q", env.Type)
	}
	assertQuiet(t, driver)
}

func dial(t *testing.T, srv *httptest.Server, token string) (*websocket.Conn, *http.Response, error) {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	if token != "" {
		url += "?token=" + token
	}
	return websocket.DefaultDialer.Dial(url, nil)
}

func TestHandleWebSocket(t *testing.T) {
	locations := &fakeLocations{}
	hub := startHub(t, locations)
	srv := httptest.NewServer(HandleWebSocket(hub, testSecret))
	defer srv.Close()

	if _, resp, err := dial(t, srv, ""); err == nil || resp == nil || resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("connection without a token should be refused with 401")
	}

	adminToken, _ := middleware.IssueToken(testSecret, middleware.UserClaims{UserID: "a1", Role: models.RoleAdmin}, time.Now())
	driverToken, _ := middleware.IssueToken(testSecret, middleware.UserClaims{UserID: "d1", Role: models.RoleDriver}, time.Now())

	adminConn, _, err := dial(t, srv, adminToken)
	if err != nil {
		t.Fatalf("admin dial: %v", err)
	}
	defer adminConn.Close()
	driverConn, _, err := dial(t, srv, driverToken)
	if err != nil {
		t.Fatalf("driver dial: %v", err)
	}
	defer driverConn.Close()

	waitFor(t, func() bool { return hub.GetClientCount() == 2 })

	frame := `{"type":"location_update","data":{"latitude":40.1,"longitude":-75.2,"timestamp":1}}`
	if err := driverConn.WriteMessage(websocket.TextMessage, []byte(frame)); err != nil {
		t.Fatalf("write: %v", err)
	}

	adminConn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := adminConn.ReadMessage()
	if err != nil {
		t.Fatalf("admin read: %v", err)
	}
	var env struct {
		Type string                `json:"type"`
		Data models.DriverLocation `json:"data"`
	}
	if err := json.Unmarshal(data, &env); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if env.Type != "driver_location_update" || env.Data.DriverID != "d1" || env.Data.Latitude != 40.1 {
		t.Fatalf("unexpected frame %s", data)
	}

	driverConn.Close()
	waitFor(t, func() bool { return !hub.IsUserConnected("d1") })
}
