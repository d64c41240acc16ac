// Package sequencer drives variant preview playback: on every tick it reads
// the current playback position and decides whether the current segment keeps
// playing, gets skipped, or the pass is complete.
package sequencer

import (
	"log/slog"

	"github.com/letrongminh/vigenair/internal/timeline"
)

// Clock is the external media-playback primitive: something that reports a
// current timestamp and accepts seek commands. Seeks are fire-and-forget; the
// next tick simply observes the new position.
type Clock interface {
	Position() float64
	Seek(t float64)
	Duration() float64
}

// TickResult is what one tick decided.
type TickResult struct {
	// CurrentID is the id of the segment containing the playback position,
	// or -1 when the position is outside every segment.
	CurrentID int `json:"current_id"`
	// ShouldSkip is true when the current segment is being skipped; callers
	// use it to suppress the current-segment indicator update on skip ticks.
	ShouldSkip bool `json:"should_skip"`
	// Seeked reports whether this tick issued a seek, and SeekTo where.
	Seeked bool    `json:"seeked"`
	SeekTo float64 `json:"seek_to,omitempty"`
}

// Sequencer decides, per tick, whether to keep playing, jump, or finish.
// Selected segments play in ascending id order regardless of where on the
// timeline the user currently is; unselected segments are skipped; a full
// pass ends with a single seek to end-of-media rather than looping.
//
// Not safe for concurrent use; the owning session serializes ticks.
type Sequencer struct {
	reg    *timeline.Registry
	clock  Clock
	logger *slog.Logger

	// lastPlayedID tracks the most recently consumed segment, which the
	// out-of-order rule compares against.
	lastPlayedID int
	seekedToEnd  bool
}

func New(reg *timeline.Registry, clock Clock, logger *slog.Logger) *Sequencer {
	return &Sequencer{
		reg:          reg,
		clock:        clock,
		logger:       logger,
		lastPlayedID: -1,
	}
}

// Tick runs one decision step. It is inert while no segments are loaded or no
// variant is active, and when the playback position is outside every segment.
func (s *Sequencer) Tick() TickResult {
	res := TickResult{CurrentID: -1}

	if s.reg.Len() == 0 {
		return res
	}
	if _, ok := s.reg.ActiveVariant(); !ok {
		return res
	}

	t := s.clock.Position()
	cur, ok := s.reg.SegmentAt(t)
	if !ok {
		return res
	}
	res.CurrentID = cur.ID

	next, hasNext := s.reg.NextPlayable()
	last, hasLast := s.reg.LastSelected()

	isPlayingNext := hasNext && next.ID == cur.ID
	notNextButSelectedUnplayed := cur.Selected && !cur.Played && hasNext && next.ID != cur.ID
	allPlayed := s.reg.AllSelectedPlayed() && hasLast && t >= last.EndS
	alreadyPlayedOutOfOrder := cur.Played && cur.ID != s.lastPlayedID && hasNext && next.ID != cur.ID

	res.ShouldSkip = !cur.Selected || alreadyPlayedOutOfOrder

	switch {
	case isPlayingNext:
		s.reg.MarkPlayed(cur.ID)
		s.lastPlayedID = cur.ID
	case notNextButSelectedUnplayed || alreadyPlayedOutOfOrder || !cur.Selected:
		if hasNext {
			s.clock.Seek(next.StartS)
			res.Seeked = true
			res.SeekTo = next.StartS
			if s.logger != nil {
				s.logger.Debug("skipping to next playable segment", "from", cur.ID, "to", next.ID)
			}
		} else {
			s.seekToEnd(&res)
		}
	case allPlayed:
		s.seekToEnd(&res)
	}

	return res
}

// seekToEnd seeks to end-of-media at most once per pass; the latch is cleared
// only by ResetPreview.
func (s *Sequencer) seekToEnd(res *TickResult) {
	if s.seekedToEnd {
		return
	}
	s.seekedToEnd = true

	end := s.clock.Duration()
	s.clock.Seek(end)
	res.Seeked = true
	res.SeekTo = end
	if s.logger != nil {
		s.logger.Debug("preview pass complete, seeking to end of media")
	}
}

// ResetPreview prepares a new or resumed pass. Called when a variant is
// chosen or playback ended. With a selected-but-unplayed segment remaining
// that differs from the variant's first scene, playback resumes there;
// otherwise all played flags clear for a fresh pass starting at the variant's
// first scene.
func (s *Sequencer) ResetPreview() {
	s.seekedToEnd = false
	s.lastPlayedID = -1

	v, ok := s.reg.ActiveVariant()
	if !ok || len(v.Scenes) == 0 {
		return
	}
	firstSceneID := v.Scenes[0] - 1

	if next, ok := s.reg.NextPlayable(); ok {
		if next.ID != firstSceneID {
			s.clock.Seek(next.StartS)
		}
		return
	}

	s.reg.ResetPlayed()
	if first, ok := s.reg.Segment(firstSceneID); ok {
		s.clock.Seek(first.StartS)
	}
}
