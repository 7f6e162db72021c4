package handler

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"nukefarm/internal/models"
	"nukefarm/internal/repository"
)

// EventsHandler serves read-only catalog queries over the indexed events and
// their stored analyses.
type EventsHandler struct {
	Repo   repository.Repository
	Logger *zap.Logger
}

func (h *EventsHandler) Register(r *gin.Engine) {
	group := r.Group("/api/events")
	group.GET("", h.listEvents)
	group.GET("/:id", h.getEvent)
	group.GET("/:id/analyses", h.listAnalyses)
}

var eventOrderColumns = map[string]string{
	"end_date":   "end_date",
	"liquidity":  "liquidity",
	"volume":     "volume",
	"score":      "predictability_score",
	"first_seen": "first_indexed_at",
	"last_seen":  "last_seen_at",
}

func (h *EventsHandler) listEvents(c *gin.Context) {
	limit := intQuery(c, "limit", 50)
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	params := repository.ListEventsParams{
		Limit:    limit,
		Offset:   intQuery(c, "offset", 0),
		Active:   boolQueryPtr(c, "active"),
		Closed:   boolQueryPtr(c, "closed"),
		Analyzed: boolQueryPtr(c, "analyzed"),
		Scored:   boolQueryPtr(c, "scored"),
		MinScore: intQueryPtr(c, "min_score"),
		OrderBy:  parseOrder(c.Query("order"), eventOrderColumns),
		Asc:      boolQueryPtr(c, "asc"),
	}
	rows, err := h.Repo.ListEvents(c.Request.Context(), params)
	if err != nil {
		h.Logger.Warn("list events failed", zap.Error(err))
		Error(c, http.StatusInternalServerError, "failed to list events", nil)
		return
	}
	total, err := h.Repo.CountEvents(c.Request.Context(), params)
	if err != nil {
		h.Logger.Warn("count events failed", zap.Error(err))
		Error(c, http.StatusInternalServerError, "failed to count events", nil)
		return
	}
	items := make([]gin.H, 0, len(rows))
	for _, row := range rows {
		items = append(items, eventItem(row))
	}
	Ok(c, items, paginationMeta(params.Limit, params.Offset, total))
}

func (h *EventsHandler) getEvent(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))
	row, err := h.Repo.GetEventByID(c.Request.Context(), id)
	if err != nil {
		h.Logger.Warn("get event failed", zap.String("event_id", id), zap.Error(err))
		Error(c, http.StatusInternalServerError, "failed to load event", nil)
		return
	}
	if row == nil {
		Error(c, http.StatusNotFound, "event not found", nil)
		return
	}
	Ok(c, eventItem(*row), nil)
}

func (h *EventsHandler) listAnalyses(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))
	rows, err := h.Repo.ListAnalysesByEventID(c.Request.Context(), id)
	if err != nil {
		h.Logger.Warn("list analyses failed", zap.String("event_id", id), zap.Error(err))
		Error(c, http.StatusInternalServerError, "failed to list analyses", nil)
		return
	}
	items := make([]gin.H, 0, len(rows))
	for _, row := range rows {
		items = append(items, gin.H{
			"id":        row.ID,
			"eventId":   row.EventID,
			"marketId":  row.MarketID,
			"analysis":  json.RawMessage(row.AnalysisData),
			"createdAt": row.CreatedAt,
		})
	}
	Ok(c, items, map[string]any{"total": len(items)})
}

func eventItem(row models.IndexedEvent) gin.H {
	item := gin.H{
		"id":             row.ID,
		"slug":           row.Slug,
		"active":         row.Active,
		"closed":         row.Closed,
		"event":          json.RawMessage(row.EventData),
		"firstIndexedAt": row.FirstIndexedAt,
		"lastSeenAt":     row.LastSeenAt,
	}
	if row.EndDate != nil {
		item["endDate"] = row.EndDate
	}
	if row.Liquidity != nil {
		item["liquidity"] = row.Liquidity
	}
	if row.Volume != nil {
		item["volume"] = row.Volume
	}
	if row.PredictabilityScore != nil {
		item["predictabilityScore"] = *row.PredictabilityScore
	}
	if row.LastScoredAt != nil {
		item["lastScoredAt"] = row.LastScoredAt
	}
	if row.IsAnalyzed != nil {
		item["isAnalyzed"] = *row.IsAnalyzed
	}
	if row.AnalyzedAt != nil {
		item["analyzedAt"] = row.AnalyzedAt
	}
	return item
}

func intQuery(c *gin.Context, key string, def int) int {
	if val := c.Query(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return def
}

func intQueryPtr(c *gin.Context, key string) *int {
	if val := c.Query(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return &i
		}
	}
	return nil
}

func boolQueryPtr(c *gin.Context, key string) *bool {
	if val := c.Query(key); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			return &b
		}
	}
	return nil
}

func parseOrder(value string, allow map[string]string) string {
	key := strings.TrimSpace(strings.ToLower(value))
	if key == "" {
		return ""
	}
	if mapped, ok := allow[key]; ok {
		return mapped
	}
	return ""
}
