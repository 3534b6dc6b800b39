package handlers

import (
	"context"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/Mena-E/transafe-7d-inspections-sub000/internal/models"
	"github.com/Mena-E/transafe-7d-inspections-sub000/internal/services"
)

type TimecardSummarizer interface {
	Summarize(ctx context.Context, driverIDs []string, from, to string, now int64) ([]models.DriverTimecard, error)
}

// WeekConfig picks the default timecard window when the caller gives none
type WeekConfig struct {
	Location    *time.Location
	StartsOn    time.Weekday
	DisplayDays int
}

// window returns start/end from the query, defaulting to the current week
func (c WeekConfig) window(r *http.Request, t time.Time) (string, string) {
	from, to := services.WeekWindow(t, c.Location, c.StartsOn, c.DisplayDays)
	if s := r.URL.Query().Get("start"); s != "" {
		from = s
	}
	if e := r.URL.Query().Get("end"); e != "" {
		to = e
	}
	return from, to
}

// GetTimecards returns per-day totals for the roster or for ?driver_ids=a,b
func GetTimecards(agg TimecardSummarizer, week WeekConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log.Printf("📥 REQUEST: GET /api/manager/timecards")

		t := now()
		from, to := week.window(r, t)
		driverIDs := parseIDs(r.URL.Query()["driver_ids"])

		cards, err := agg.Summarize(r.Context(), driverIDs, from, to, t.Unix())
		if err != nil {
			respondServiceError(w, err, "Failed to load timecards")
			return
		}

		log.Printf("📤 RESPONSE: 200 - %d timecards for %s..%s", len(cards), from, to)
		respondData(w, http.StatusOK, map[string]interface{}{
			"start":     from,
			"end":       to,
			"timecards": cards,
		})
	}
}

// GetMyTimecard is the driver's own view of the same summary
func GetMyTimecard(agg TimecardSummarizer, week WeekConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userClaims, ok := currentUser(w, r)
		if !ok {
			return
		}

		t := now()
		from, to := week.window(r, t)

		cards, err := agg.Summarize(r.Context(), []string{userClaims.UserID}, from, to, t.Unix())
		if err != nil {
			respondServiceError(w, err, "Failed to load timecard")
			return
		}
		if len(cards) == 0 {
			respondData(w, http.StatusOK, nil)
			return
		}
		respondData(w, http.StatusOK, cards[0])
	}
}

// parseIDs accepts both ?driver_ids=a,b and repeated ?driver_ids=a&driver_ids=b
func parseIDs(values []string) []string {
	var ids []string
	for _, v := range values {
		for _, id := range strings.Split(v, ",") {
			if id = strings.TrimSpace(id); id != "" {
				ids = append(ids, id)
			}
		}
	}
	return ids
}
