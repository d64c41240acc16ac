package timeline

import (
	"fmt"
	"sort"
)

// Registry owns all mutable segment state. The sequencer and the framing
// editor mutate segments only through it, never through their own copies.
// A deep "original" snapshot is kept so ad-hoc edits made during an editing
// session can be reverted when the active variant changes.
//
// Registry is not safe for concurrent use; the owning session serializes
// access.
type Registry struct {
	segments []*Segment
	original []Segment
	variants []Variant
	active   int
}

func NewRegistry() *Registry {
	return &Registry{active: -1}
}

// Load initializes the registry from raw analysis segments. All selection and
// played state starts cleared. Segments must be sorted by start time and
// non-overlapping; anything else is a load failure, not a partial state.
func (r *Registry) Load(raw []RawSegment) error {
	segments := make([]*Segment, len(raw))
	for i, rs := range raw {
		if rs.EndS <= rs.StartS {
			return fmt.Errorf("segment %d: end %.3f not after start %.3f", i, rs.EndS, rs.StartS)
		}
		if i > 0 && rs.StartS < raw[i-1].EndS {
			return fmt.Errorf("segment %d overlaps previous (start %.3f < end %.3f)", i, rs.StartS, raw[i-1].EndS)
		}
		segments[i] = &Segment{
			ID:            i,
			StartS:        rs.StartS,
			EndS:          rs.EndS,
			ScreenshotURI: rs.ScreenshotURI,
		}
	}

	r.segments = segments
	r.original = make([]Segment, len(segments))
	for i, s := range segments {
		r.original[i] = *s
	}
	r.active = -1
	return nil
}

// SetVariants registers the generated variants, validating every scene id
// against the loaded segment count.
func (r *Registry) SetVariants(variants []Variant) error {
	for _, v := range variants {
		for _, scene := range v.Scenes {
			if scene < 1 || scene > len(r.segments) {
				return fmt.Errorf("variant %q references unknown segment %d", v.Title, scene)
			}
		}
	}
	r.variants = variants
	return nil
}

func (r *Registry) Variants() []Variant {
	return r.variants
}

// ActiveVariant returns the currently selected variant, if any.
func (r *Registry) ActiveVariant() (Variant, bool) {
	if r.active < 0 || r.active >= len(r.variants) {
		return Variant{}, false
	}
	return r.variants[r.active], true
}

// ActiveVariantIndex returns the active variant index, or -1.
func (r *Registry) ActiveVariantIndex() int {
	if r.active < 0 || r.active >= len(r.variants) {
		return -1
	}
	return r.active
}

// SelectVariant maps the variant's scenes onto segment selection and clears
// all played flags for a fresh pass.
func (r *Registry) SelectVariant(index int) error {
	if index < 0 || index >= len(r.variants) {
		return fmt.Errorf("variant index %d out of range", index)
	}
	r.active = index
	r.ApplySelection(nil)
	r.ResetPlayed()
	return nil
}

// Len returns the number of segments.
func (r *Registry) Len() int {
	return len(r.segments)
}

// Segments returns a copy of the live segment list in timeline order.
func (r *Registry) Segments() []Segment {
	out := make([]Segment, len(r.segments))
	for i, s := range r.segments {
		out[i] = *s
	}
	return out
}

// Segment returns a copy of the segment with the given 0-based id.
func (r *Registry) Segment(id int) (Segment, bool) {
	for _, s := range r.segments {
		if s.ID == id {
			return *s, true
		}
	}
	return Segment{}, false
}

// SegmentAt returns the segment whose time bounds contain t.
func (r *Registry) SegmentAt(t float64) (Segment, bool) {
	for _, s := range r.segments {
		if s.Contains(t) {
			return *s, true
		}
	}
	return Segment{}, false
}

// ApplySelection clears all selection flags and marks the given 1-based ids
// selected. With nil ids it falls back to the active variant's scenes. With
// neither, it is a silent no-op: the caller must guarantee one or the other.
func (r *Registry) ApplySelection(ids []int) {
	if ids == nil {
		v, ok := r.ActiveVariant()
		if !ok {
			return
		}
		ids = v.Scenes
	}

	for _, s := range r.segments {
		s.Selected = false
	}
	for _, id := range ids {
		if s := r.byID(id - 1); s != nil {
			s.Selected = true
		}
	}
}

// RestoreOriginal deep-copies the original snapshot back into the live list
// and re-applies the active variant's selection. It only acts when the live
// structure actually differs from the original, so played flags are not
// cleared by redundant resets.
func (r *Registry) RestoreOriginal() {
	if !r.Modified() {
		return
	}

	segments := make([]*Segment, len(r.original))
	for i := range r.original {
		s := r.original[i]
		segments[i] = &s
	}
	r.segments = segments
	r.ApplySelection(nil)
}

// Modified reports whether the live segment structure (order, timing,
// screenshot) differs from the original snapshot. Selection and played flags
// are session state and deliberately excluded from the comparison.
func (r *Registry) Modified() bool {
	if len(r.segments) != len(r.original) {
		return true
	}
	for i, s := range r.segments {
		o := r.original[i]
		if s.ID != o.ID || s.StartS != o.StartS || s.EndS != o.EndS || s.ScreenshotURI != o.ScreenshotURI {
			return true
		}
	}
	return false
}

// Reorder permutes the live segment list to the given order of 1-based ids.
// Every loaded segment must appear exactly once.
func (r *Registry) Reorder(order []int) error {
	if len(order) != len(r.segments) {
		return fmt.Errorf("reorder needs %d segment ids, got %d", len(r.segments), len(order))
	}
	seen := make(map[int]bool, len(order))
	segments := make([]*Segment, 0, len(order))
	for _, id := range order {
		s := r.byID(id - 1)
		if s == nil {
			return fmt.Errorf("unknown segment id %d", id)
		}
		if seen[id] {
			return fmt.Errorf("duplicate segment id %d", id)
		}
		seen[id] = true
		segments = append(segments, s)
	}
	r.segments = segments
	return nil
}

// MarkPlayed flips the played flag of the segment with the given 0-based id.
func (r *Registry) MarkPlayed(id int) {
	if s := r.byID(id); s != nil {
		s.Played = true
	}
}

// ResetPlayed clears every played flag.
func (r *Registry) ResetPlayed() {
	for _, s := range r.segments {
		s.Played = false
	}
}

// NextPlayable returns the first selected, unplayed segment in ascending id
// order.
func (r *Registry) NextPlayable() (Segment, bool) {
	var best *Segment
	for _, s := range r.segments {
		if s.Selected && !s.Played && (best == nil || s.ID < best.ID) {
			best = s
		}
	}
	if best == nil {
		return Segment{}, false
	}
	return *best, true
}

// LastSelected returns the selected segment with the highest id.
func (r *Registry) LastSelected() (Segment, bool) {
	var best *Segment
	for _, s := range r.segments {
		if s.Selected && (best == nil || s.ID > best.ID) {
			best = s
		}
	}
	if best == nil {
		return Segment{}, false
	}
	return *best, true
}

// SelectedIDs returns the 0-based ids of all selected segments, ascending.
func (r *Registry) SelectedIDs() []int {
	var ids []int
	for _, s := range r.segments {
		if s.Selected {
			ids = append(ids, s.ID)
		}
	}
	sort.Ints(ids)
	return ids
}

// AllSelectedPlayed reports whether every selected segment has been played.
// False when nothing is selected.
func (r *Registry) AllSelectedPlayed() bool {
	any := false
	for _, s := range r.segments {
		if s.Selected {
			any = true
			if !s.Played {
				return false
			}
		}
	}
	return any
}

func (r *Registry) byID(id int) *Segment {
	for _, s := range r.segments {
		if s.ID == id {
			return s
		}
	}
	return nil
}
