package stats

import (
	"net/http"
	"time"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"

	"github.com/ndunkgo99/Viyey-worker/internal/response"
)

// Handler serves the aggregate over HTTP.
type Handler struct {
	counter *Counter
	mock    bool
	logger  log.Logger
}

// NewHandler creates a summary Handler. When mock is true the handler answers
// with the static viewer statistics used by the dashboard before real tracking exists.
func NewHandler(counter *Counter, mock bool, logger log.Logger) *Handler {
	return &Handler{counter: counter, mock: mock, logger: logger}
}

type summaryBody struct {
	TotalFiles  int64  `json:"totalFiles"  example:"1"`
	TotalSize   int64  `json:"totalSize"   example:"1000"`
	LastUpdated string `json:"lastUpdated" example:"2026-10-19T08:30:00Z"`
}

type viewerStats struct {
	OnlineViewers  int `json:"onlineViewers"`
	ViewsToday     int `json:"viewsToday"`
	ViewsYesterday int `json:"viewsYesterday"`
	ViewsThisWeek  int `json:"viewsThisWeek"`
	ViewsLastWeek  int `json:"viewsLastWeek"`
	ViewsThisYear  int `json:"viewsThisYear"`
	TotalViews     int `json:"totalViews"`
	TotalVideos    int `json:"totalVideos"`
	LikesToday     int `json:"likesToday"`
	TotalLikes     int `json:"totalLikes"`
}

var mockViewerStats = viewerStats{
	ViewsToday:     5,
	ViewsYesterday: 3,
	ViewsThisWeek:  42,
	ViewsLastWeek:  87,
	ViewsThisYear:  1245,
	TotalViews:     2890,
	TotalVideos:    12,
}

// Summary godoc
//
//	@Summary		Read the aggregate
//	@Description	Returns total file count, total bytes and the time of the last adjustment ("N/A" before the first one). In the mock profile it returns static viewer statistics instead.
//	@Tags			stats
//	@Produce		json
//	@Success		200	{object}	summaryBody
//	@Failure		500	{object}	response.Envelope
//	@Router			/summary [get]
func (h *Handler) Summary(w http.ResponseWriter, r *http.Request) {
	if h.mock {
		response.OK(w, mockViewerStats)
		return
	}

	agg, err := h.counter.Read(r.Context())
	if err != nil {
		level.Error(h.logger).Log("msg", "read aggregate failed", "err", err)
		response.InternalError(w, err.Error())
		return
	}

	body := summaryBody{
		TotalFiles:  agg.TotalFiles,
		TotalSize:   agg.TotalSize,
		LastUpdated: "N/A",
	}
	if agg.LastUpdated != nil {
		body.LastUpdated = agg.LastUpdated.UTC().Format(time.RFC3339)
	}
	response.OK(w, body)
}
