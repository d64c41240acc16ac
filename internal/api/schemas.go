package api

import (
	"github.com/letrongminh/vigenair/internal/render"
	"github.com/letrongminh/vigenair/internal/timeline"
)

type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
	UptimeS int64  `json:"uptime_s"`
}

type ProcessStats struct {
	RSSBytes   uint64  `json:"rss_bytes"`
	CPUPercent float64 `json:"cpu_percent"`
}

type StatusResponse struct {
	State      string        `json:"state"`
	SessionID  string        `json:"session_id,omitempty"`
	Segments   int           `json:"segments"`
	Variants   int           `json:"variants"`
	Playing    bool          `json:"playing"`
	QueueDepth int           `json:"queue_depth"`
	UptimeS    int64         `json:"uptime_s"`
	Process    *ProcessStats `json:"process,omitempty"`
}

type LoadAnalysisResponse struct {
	SessionID string `json:"session_id"`
	Segments  int    `json:"segments"`
	Variants  int    `json:"variants"`
}

type SegmentsResponse struct {
	Segments []timeline.Segment `json:"segments"`
}

type VariantsResponse struct {
	Variants []timeline.Variant `json:"variants"`
}

type SelectionRequest struct {
	IDs []int `json:"ids"`
}

type ReorderRequest struct {
	Order []int `json:"order"`
}

type PositionRequest struct {
	PositionS float64 `json:"position_s"`
}

type DragRequest struct {
	TimeS  float64 `json:"time_s"`
	DeltaX float64 `json:"delta_x"`
}

type EnqueueRequest struct {
	Settings render.RenderSettings `json:"settings"`
}

type EnqueueResponse struct {
	Enqueued bool             `json:"enqueued"`
	Item     render.QueueItem `json:"item"`
}

type QueueResponse struct {
	Items []render.QueueItem `json:"items"`
}

type CombosResponse struct {
	Combos []render.RenderedVariant `json:"combos"`
}

type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}
