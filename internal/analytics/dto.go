package analytics

import "time"

const (
	DefaultDays  = 7
	MaxDays      = 90
	DefaultLimit = 10
	MaxLimit     = 50
	maxQueryLen  = 200
)

// RecordInput is one search performed by a user.
type RecordInput struct {
	Query       string `json:"query" validate:"required,notblank,max=200"`
	ResultCount int    `json:"result_count" validate:"gte=0"`
}

// QueryCount is one grouped query in a rollup.
type QueryCount struct {
	Query      string  `json:"query"`
	Count      int64   `json:"count"`
	AvgResults float64 `json:"avg_results"`
}

// Report summarizes search behaviour over a window.
type Report struct {
	Days              int          `json:"days"`
	Since             time.Time    `json:"since"`
	TotalSearches     int64        `json:"total_searches"`
	ZeroResultCount   int64        `json:"zero_result_searches"`
	TopQueries        []QueryCount `json:"top_queries"`
	ZeroResultQueries []QueryCount `json:"zero_result_queries"`
}
