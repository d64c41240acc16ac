// Package render maps variant selections into render-queue items and
// reshapes rendered-combo payloads for display. The mapping functions are
// pure; persistence lives in the repository.
package render

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/letrongminh/vigenair/internal/timeline"
)

// RenderSettings are the user-chosen options carried into the render request.
type RenderSettings struct {
	AspectRatio         string `json:"aspect_ratio,omitempty"`
	IndividualSegments  bool   `json:"individual_segments,omitempty"`
	FadeOut             bool   `json:"fade_out,omitempty"`
	GenerateImageAssets bool   `json:"generate_image_assets,omitempty"`
	GenerateTextAssets  bool   `json:"generate_text_assets,omitempty"`
}

// QueueSegment is one selected segment as persisted in a queue item. The id
// is 1-based, matching the analysis format.
type QueueSegment struct {
	AVSegmentID   int     `json:"av_segment_id"`
	StartS        float64 `json:"start_s"`
	EndS          float64 `json:"end_s"`
	ScreenshotURI string  `json:"screenshot_uri,omitempty"`
}

// QueueItem is an immutable snapshot of a variant's final selected segments
// and render settings.
type QueueItem struct {
	ID            string         `json:"id"`
	VariantIndex  int            `json:"variant_index"`
	VariantTitle  string         `json:"variant_title"`
	Segments      []QueueSegment `json:"segments"`
	DurationS     float64        `json:"duration_s"`
	Settings      RenderSettings `json:"settings"`
	UserSelection bool           `json:"user_selection"`
	CreatedAt     time.Time      `json:"created_at"`
}

// fingerprintView is the deterministic payload two items are compared on.
// The random id and creation time are excluded; struct field order makes the
// JSON canonical.
type fingerprintView struct {
	VariantIndex  int            `json:"variant_index"`
	VariantTitle  string         `json:"variant_title"`
	Segments      []QueueSegment `json:"segments"`
	DurationS     float64        `json:"duration_s"`
	Settings      RenderSettings `json:"settings"`
	UserSelection bool           `json:"user_selection"`
}

// Fingerprint returns the canonical JSON two queue items are deduplicated on.
func (i QueueItem) Fingerprint() string {
	b, err := json.Marshal(fingerprintView{
		VariantIndex:  i.VariantIndex,
		VariantTitle:  i.VariantTitle,
		Segments:      i.Segments,
		DurationS:     i.DurationS,
		Settings:      i.Settings,
		UserSelection: i.UserSelection,
	})
	if err != nil {
		// Marshaling plain structs cannot fail; keep dedup conservative.
		return ""
	}
	return string(b)
}

// NewQueueItem snapshots the selected segments of a variant into a render
// request: selected segments mapped to 1-based ids with their timing,
// durations summed, and a flag recording whether the selection differs from
// the variant's original scenes.
func NewQueueItem(v timeline.Variant, variantIndex int, segments []timeline.Segment, settings RenderSettings) QueueItem {
	item := QueueItem{
		ID:           uuid.NewString(),
		VariantIndex: variantIndex,
		VariantTitle: v.Title,
		Settings:     settings,
		CreatedAt:    time.Now().UTC(),
	}

	var selectedIDs []int
	for _, s := range segments {
		if !s.Selected {
			continue
		}
		item.Segments = append(item.Segments, QueueSegment{
			AVSegmentID:   s.ID + 1,
			StartS:        s.StartS,
			EndS:          s.EndS,
			ScreenshotURI: s.ScreenshotURI,
		})
		item.DurationS += s.EndS - s.StartS
		selectedIDs = append(selectedIDs, s.ID+1)
	}

	item.UserSelection = !sameIDSet(selectedIDs, v.Scenes)
	return item
}

func sameIDSet(a, b []int) bool {
	as := append([]int(nil), a...)
	bs := append([]int(nil), b...)
	sort.Ints(as)
	sort.Ints(bs)
	if len(as) != len(bs) {
		return false
	}
	for i := range as {
		if as[i] != bs[i] {
			return false
		}
	}
	return true
}

// RawComboSegment is one rendered segment keyed by its 1-based id in the
// combo payload. Image and text assets are present only when the render
// generated them.
type RawComboSegment struct {
	StartS        float64 `json:"start_s"`
	EndS          float64 `json:"end_s"`
	ScreenshotURI string  `json:"screenshot_uri,omitempty"`
	ImageURI      string  `json:"image_uri,omitempty"`
	Text          string  `json:"text,omitempty"`
}

// RawCombo is the wire shape of one rendered variant combination.
type RawCombo struct {
	Title    string                     `json:"title"`
	VideoURI string                     `json:"video_uri,omitempty"`
	Segments map[string]RawComboSegment `json:"segments"`
}

// ComboSegment is a rendered segment in display order.
type ComboSegment struct {
	AVSegmentID   int     `json:"av_segment_id"`
	StartS        float64 `json:"start_s"`
	EndS          float64 `json:"end_s"`
	ScreenshotURI string  `json:"screenshot_uri,omitempty"`
	ImageURI      string  `json:"image_uri,omitempty"`
	Text          string  `json:"text,omitempty"`
}

// RenderedVariant is a combo reshaped into a segment-ordered view ready for
// display.
type RenderedVariant struct {
	Title       string         `json:"title"`
	VideoURI    string         `json:"video_uri,omitempty"`
	Segments    []ComboSegment `json:"segments"`
	SegmentList string         `json:"segment_list"`
}

// ParseRenderedCombo reshapes a keyed-by-id combo into a segment-ordered view
// plus a human-readable comma list of segment ids.
func ParseRenderedCombo(raw RawCombo) (RenderedVariant, error) {
	ids := make([]int, 0, len(raw.Segments))
	for key := range raw.Segments {
		id, err := strconv.Atoi(key)
		if err != nil || id < 1 {
			return RenderedVariant{}, fmt.Errorf("combo %q has invalid segment key %q", raw.Title, key)
		}
		ids = append(ids, id)
	}
	sort.Ints(ids)

	rv := RenderedVariant{
		Title:    raw.Title,
		VideoURI: raw.VideoURI,
		Segments: make([]ComboSegment, 0, len(ids)),
	}
	parts := make([]string, 0, len(ids))
	for _, id := range ids {
		rs := raw.Segments[strconv.Itoa(id)]
		rv.Segments = append(rv.Segments, ComboSegment{
			AVSegmentID:   id,
			StartS:        rs.StartS,
			EndS:          rs.EndS,
			ScreenshotURI: rs.ScreenshotURI,
			ImageURI:      rs.ImageURI,
			Text:          rs.Text,
		})
		parts = append(parts, strconv.Itoa(id))
	}
	rv.SegmentList = strings.Join(parts, ", ")
	return rv, nil
}

// ParseRenderedCombos decodes and reshapes a rendered-combo list. Malformed
// payloads fail the whole load; there is no partial recovery.
func ParseRenderedCombos(data []byte) ([]RenderedVariant, error) {
	var raw []RawCombo
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse rendered combos: %w", err)
	}

	out := make([]RenderedVariant, 0, len(raw))
	for _, rc := range raw {
		rv, err := ParseRenderedCombo(rc)
		if err != nil {
			return nil, err
		}
		out = append(out, rv)
	}
	return out, nil
}
