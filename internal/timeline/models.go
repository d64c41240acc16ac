// Package timeline holds the segment registry: the ordered collection of
// detected video segments with their session-local selection and played
// state, plus the variants that map onto them.
package timeline

import (
	"encoding/json"
	"fmt"
)

// Segment is a time-bounded slice of the source video. ID is 0-based and
// stable; in an unedited timeline it equals the segment's array position.
// Selected and Played are session-local UI state, never persisted with the
// segment's source data.
type Segment struct {
	ID            int     `json:"id"`
	StartS        float64 `json:"start_s"`
	EndS          float64 `json:"end_s"`
	Selected      bool    `json:"selected"`
	Played        bool    `json:"played"`
	ScreenshotURI string  `json:"screenshot_uri,omitempty"`
}

// Duration returns the segment length in seconds.
func (s Segment) Duration() float64 {
	return s.EndS - s.StartS
}

// Contains reports whether t lies within the segment's time bounds.
func (s Segment) Contains(t float64) bool {
	return t >= s.StartS && t <= s.EndS
}

// Variant is a named candidate edit: an ordered subset of segment ids plus
// metadata. Scenes are 1-based, matching the upstream analysis format.
// Variants are read-only once generated.
type Variant struct {
	Title       string  `json:"title"`
	Description string  `json:"description,omitempty"`
	Score       float64 `json:"score,omitempty"`
	Reasoning   string  `json:"reasoning,omitempty"`
	Scenes      []int   `json:"scenes"`
}

// RawSegment is the wire shape of one analyzed segment as produced by the
// external analysis collaborator.
type RawSegment struct {
	AVSegmentID   int     `json:"av_segment_id"`
	StartS        float64 `json:"start_s"`
	EndS          float64 `json:"end_s"`
	ScreenshotURI string  `json:"screenshot_uri,omitempty"`
}

// ParseSegments decodes the raw segment list. Shape mismatches fail here,
// before any state is touched.
func ParseSegments(data []byte) ([]RawSegment, error) {
	var raw []RawSegment
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse segments: %w", err)
	}
	if len(raw) == 0 {
		return nil, fmt.Errorf("segment list is empty")
	}
	return raw, nil
}

// ParseVariants decodes the raw variant list. Scene ids are validated against
// the segment count by Registry.SetVariants.
func ParseVariants(data []byte) ([]Variant, error) {
	var variants []Variant
	if err := json.Unmarshal(data, &variants); err != nil {
		return nil, fmt.Errorf("failed to parse variants: %w", err)
	}
	for i, v := range variants {
		if v.Title == "" {
			return nil, fmt.Errorf("variant %d has no title", i)
		}
		if len(v.Scenes) == 0 {
			return nil, fmt.Errorf("variant %q has no scenes", v.Title)
		}
	}
	return variants, nil
}
