// Package framing implements crop-region adjustment: locating the active
// crop frame for a timestamp, finding the contiguous run of frames holding
// the same position, and rewriting that run when a drag is committed.
package framing

import (
	"errors"
	"log/slog"

	"github.com/letrongminh/vigenair/internal/annotation"
)

// ErrNoActiveFrame is returned when drag initiation is refused because the
// timestamp lies past the entity's last frame: there is no defined crop
// position to edit.
var ErrNoActiveFrame = errors.New("no active frame at timestamp")

// LocateActiveFrame returns the index of the first frame (in time order)
// whose time is >= t. At end-of-media there is no later frame and the second
// return is false; callers hold the last-known position rather than erroring.
func LocateActiveFrame(e *annotation.Entity, t float64) (int, bool) {
	for i := range e.Frames {
		if e.Frames[i].Time >= t {
			return i, true
		}
	}
	return 0, false
}

// HoldRange scans backward and forward from index while frames share the
// given x position, returning the maximal contiguous run [start, end).
// The crop rectangle is piecewise-constant, so a drag edit applies uniformly
// to the whole constant-position run, not a single sample.
func HoldRange(e *annotation.Entity, index int, x float64) (int, int) {
	start := index
	for start > 0 && e.Frames[start-1].X == x {
		start--
	}
	end := index
	for end < len(e.Frames) && e.Frames[end].X == x {
		end++
	}
	return start, end
}

// CommitDrag adds deltaX to the x position of every frame in [start, end)
// whose x still equals refX. The re-check guards against the run having been
// mutated between drag start and commit; all other frame fields are
// unchanged.
func CommitDrag(e *annotation.Entity, start, end int, refX, deltaX float64) {
	if start < 0 {
		start = 0
	}
	if end > len(e.Frames) {
		end = len(e.Frames)
	}
	for i := start; i < end; i++ {
		if e.Frames[i].X == refX {
			e.Frames[i].X += deltaX
		}
	}
}

// Rect is the denormalized overlay rectangle for a 2D drawing surface.
type Rect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Drag is an in-flight crop adjustment: the hold run captured at drag start.
type Drag struct {
	entity *annotation.Entity
	start  int
	end    int
	refX   float64
}

// Frame returns the reference frame the drag started on.
func (d *Drag) Frame() annotation.Frame {
	return d.entity.Frames[d.start]
}

// Editor mediates drag interactions against a session's crop-area entity.
// Only the x position shifts in the supported drag interaction.
type Editor struct {
	logger *slog.Logger
}

func NewEditor(logger *slog.Logger) *Editor {
	return &Editor{logger: logger}
}

// BeginDrag captures the hold run containing the active frame at t. Refused
// with ErrNoActiveFrame when the timestamp is past the last frame.
func (ed *Editor) BeginDrag(e *annotation.Entity, t float64) (*Drag, error) {
	idx, ok := LocateActiveFrame(e, t)
	if !ok {
		return nil, ErrNoActiveFrame
	}

	refX := e.Frames[idx].X
	start, end := HoldRange(e, idx, refX)
	if ed.logger != nil {
		ed.logger.Debug("drag started", "entity", e.Name, "frame", idx, "hold_start", start, "hold_end", end)
	}
	return &Drag{entity: e, start: start, end: end, refX: refX}, nil
}

// Commit applies the drag's horizontal delta to the captured run.
func (ed *Editor) Commit(d *Drag, deltaX float64) {
	CommitDrag(d.entity, d.start, d.end, d.refX, deltaX)
	if ed.logger != nil {
		ed.logger.Debug("drag committed", "entity", d.entity.Name, "delta_x", deltaX,
			"frames", d.end-d.start)
	}
}

// OverlayRect computes where the tracking overlay sits at timestamp t. The
// second return is false when the entity is inactive at t or has no frame to
// show, in which case no overlay renders this tick.
func OverlayRect(e *annotation.Entity, t float64) (Rect, bool) {
	if !e.Active(t) {
		return Rect{}, false
	}
	idx, ok := LocateActiveFrame(e, t)
	if !ok {
		return Rect{}, false
	}
	f := e.Frames[idx]
	return Rect{X: f.X, Y: f.Y, Width: f.Width, Height: f.Height}, true
}
