package handler

import (
	"mimir/internal/infraction"
)

// SubmitInfractionResponse carries the identifier of the record a
// submission resolved to, whether freshly created or an existing
// duplicate.
type SubmitInfractionResponse struct {
	InfractionID string `json:"infractionId"`
}

// SubmitNonInfractionResponse is the response for POST /v1/non-infractions.
type SubmitNonInfractionResponse struct {
	RecordID string `json:"recordId"`
}

// CountResponse is the response for GET /v1/infraction_count.
type CountResponse struct {
	Count int64 `json:"count"`
}

// HistoryResponse is the response for GET /v1/history.
type HistoryResponse struct {
	Infractions []infraction.View `json:"infractions"`
	Pagination  Pagination        `json:"pagination"`
}

// HealthResponse is the response for GET /health.
type HealthResponse struct {
	Status string `json:"status"`
}

func viewsOf(records []infraction.Record) []infraction.View {
	views := make([]infraction.View, 0, len(records))
	for _, rec := range records {
		views = append(views, rec.View())
	}
	return views
}
