package audit

import (
	"encoding/json"
	"time"
)

// TimelineFilters narrows the audit timeline. Zero values mean no filter.
type TimelineFilters struct {
	From     time.Time
	To       time.Time
	ActorID  int64
	Entity   string
	EntityID string
	Action   string
	Page     int
	PageSize int
}

// TimelineRow is one audit record.
type TimelineRow struct {
	At            time.Time       `json:"at"`
	ActorID       int64           `json:"actor_id,omitempty"`
	Action        string          `json:"action"`
	Entity        string          `json:"entity"`
	EntityID      string          `json:"entity_id"`
	CorrelationID string          `json:"correlation_id"`
	Meta          json.RawMessage `json:"meta,omitempty"`
}

// PagingInfo carries next/prev page numbers without a total count.
type PagingInfo struct {
	Page     int  `json:"page"`
	PageSize int  `json:"per_page"`
	HasNext  bool `json:"has_next"`
	PrevPage int  `json:"prev_page,omitempty"`
	NextPage int  `json:"next_page,omitempty"`
}

// Result wraps a timeline page.
type Result struct {
	Rows   []TimelineRow `json:"rows"`
	Paging PagingInfo    `json:"paging"`
}
