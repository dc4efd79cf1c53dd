package api

import (
	"io"
	"net/http"
	"time"

	"github.com/bytedance/sonic"
	"github.com/goodtune/watchdog/internal/usage"
	"github.com/rs/zerolog"
)

// EntryView is one ranked entry as presented to clients.
type EntryView struct {
	Rank             int    `json:"rank"`
	LogID            int64  `json:"log_id"`
	WindowName       string `json:"window_name"`
	ExecutableName   string `json:"executable_name"`
	TimeSpentSeconds int64  `json:"time_spent_seconds"`
	TimeSpent        string `json:"time_spent"`
	Color            string `json:"color"`
}

// SnapshotView is a ranked snapshot with display fields resolved.
type SnapshotView struct {
	Date         string      `json:"date"`
	Limit        int         `json:"limit"`
	TotalSeconds int64       `json:"total_seconds"`
	Entries      []EntryView `json:"entries"`
}

// NewSnapshotView formats snapshot, coloring each position from palette.
func NewSnapshotView(snapshot usage.RankedSnapshot, palette usage.Palette) SnapshotView {
	view := SnapshotView{
		Date:         usage.FormatDate(snapshot.Date),
		Limit:        snapshot.Limit,
		TotalSeconds: snapshot.TotalSeconds(),
		Entries:      make([]EntryView, 0, len(snapshot.Entries)),
	}
	for i, e := range snapshot.Entries {
		view.Entries = append(view.Entries, EntryView{
			Rank:             i + 1,
			LogID:            e.LogID,
			WindowName:       e.WindowName,
			ExecutableName:   e.ExecutableName,
			TimeSpentSeconds: e.TimeSpentSeconds,
			TimeSpent:        usage.FormatDuration(e.TimeSpentSeconds),
			Color:            string(palette.At(i)),
		})
	}
	return view
}

// Subscription is the part of a refresh subscription the API exposes
type Subscription interface {
	Current() usage.RankedSnapshot
	SetDate(date time.Time)
}

// SnapshotHandler serves the current snapshot and accepts date changes.
type SnapshotHandler struct {
	sub     Subscription
	palette usage.Palette
	clock   usage.Clock
	logger  zerolog.Logger
}

// NewSnapshotHandler creates a new snapshot handler.
func NewSnapshotHandler(sub Subscription, palette usage.Palette, logger zerolog.Logger) *SnapshotHandler {
	return &SnapshotHandler{
		sub:     sub,
		palette: palette,
		clock:   usage.RealClock{},
		logger:  logger.With().Str("handler", "snapshot").Logger(),
	}
}

// Router is satisfied by *http.ServeMux and the metrics server.
type Router interface {
	HandleFunc(pattern string, handler func(http.ResponseWriter, *http.Request))
}

// Register mounts the handler's routes.
func (h *SnapshotHandler) Register(mux Router) {
	mux.HandleFunc("GET /api/snapshot", h.GetSnapshot)
	mux.HandleFunc("POST /api/date", h.SetDate)
}

// GetSnapshot returns the last published snapshot.
func (h *SnapshotHandler) GetSnapshot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, NewSnapshotView(h.sub.Current(), h.palette))
}

// SetDateRequest selects the date to follow. An empty date means today.
type SetDateRequest struct {
	Date string `json:"date"`
}

// SetDate switches the subscription to another date.
func (h *SnapshotHandler) SetDate(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, 4096))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Failed to read request body")
		return
	}

	var req SetDateRequest
	if len(body) > 0 {
		if err := sonic.Unmarshal(body, &req); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid JSON body")
			return
		}
	}

	date := h.clock.Now()
	if req.Date != "" {
		date, err = usage.ParseDate(req.Date)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Date must be YYYY-MM-DD")
			return
		}
	}

	h.sub.SetDate(date)
	h.logger.Info().Str("date", usage.FormatDate(date)).Msg("Date changed via API")

	writeJSON(w, http.StatusAccepted, map[string]interface{}{
		"date": usage.FormatDate(date),
	})
}
