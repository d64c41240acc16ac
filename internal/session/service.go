// Package session owns one editing session: the segment registry, the
// annotation store, the playback sequencer and the framing editor, populated
// all-or-nothing from analysis data and mutated only under the session lock.
package session

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/letrongminh/vigenair/internal/annotation"
	"github.com/letrongminh/vigenair/internal/framing"
	"github.com/letrongminh/vigenair/internal/preview"
	"github.com/letrongminh/vigenair/internal/render"
	"github.com/letrongminh/vigenair/internal/sequencer"
	"github.com/letrongminh/vigenair/internal/timeline"
)

// AnalysisInput is everything the external analysis collaborator supplies
// for one video. Annotations are optional; segments and variants are not.
type AnalysisInput struct {
	Segments    json.RawMessage `json:"segments"`
	Variants    json.RawMessage `json:"variants"`
	Annotations json.RawMessage `json:"annotations,omitempty"`
	DurationS   float64         `json:"duration_s"`
	RenderW     int             `json:"render_width"`
	RenderH     int             `json:"render_height"`
}

// PlaybackState is the per-poll view the front end renders from.
type PlaybackState struct {
	CurrentID   int           `json:"current_id"`
	Playing     bool          `json:"playing"`
	PositionS   float64       `json:"position_s"`
	SeekTo      *float64      `json:"seek_to,omitempty"`
	ShowOverlay bool          `json:"show_overlay"`
	Overlay     *framing.Rect `json:"overlay,omitempty"`
}

// Session is a loaded editing session. All mutation happens under mu: ticks,
// variant changes and drag commits are serialized, matching the cooperative
// single-threaded model of the front end.
type Session struct {
	ID string

	mu       sync.Mutex
	registry *timeline.Registry
	store    *annotation.Store
	clock    *ReportedClock
	seq      *sequencer.Sequencer
	editor   *framing.Editor
	player   *sequencer.Player
	logger   *slog.Logger

	// currentID is the indicator the UI highlights; skip ticks leave it
	// untouched.
	currentID int
}

// Service manages the active session.
type Service struct {
	mu           sync.Mutex
	active       *Session
	tickInterval time.Duration
	logger       *slog.Logger
}

func NewService(tickInterval time.Duration, logger *slog.Logger) *Service {
	return &Service{tickInterval: tickInterval, logger: logger}
}

// LoadAnalysis parses and validates all analysis payloads before any state is
// committed: a failure in any payload leaves the previous session intact.
func (s *Service) LoadAnalysis(ctx context.Context, in AnalysisInput) (*Session, error) {
	if in.DurationS <= 0 {
		return nil, fmt.Errorf("media duration must be positive")
	}

	var (
		rawSegments []timeline.RawSegment
		variants    []timeline.Variant
		rawEntities []annotation.RawEntity
	)

	g, _ := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		rawSegments, err = timeline.ParseSegments(in.Segments)
		return err
	})
	g.Go(func() error {
		var err error
		variants, err = timeline.ParseVariants(in.Variants)
		return err
	})
	g.Go(func() error {
		if len(in.Annotations) == 0 {
			return nil
		}
		var err error
		rawEntities, err = annotation.ParseEntities(in.Annotations)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	registry := timeline.NewRegistry()
	if err := registry.Load(rawSegments); err != nil {
		return nil, err
	}
	if err := registry.SetVariants(variants); err != nil {
		return nil, err
	}

	store := annotation.NewStore()
	if len(rawEntities) > 0 {
		if err := store.Load(rawEntities, in.RenderW, in.RenderH); err != nil {
			return nil, err
		}
	}

	clock := NewReportedClock(in.DurationS)
	sess := &Session{
		ID:        uuid.NewString(),
		registry:  registry,
		store:     store,
		clock:     clock,
		editor:    framing.NewEditor(s.logger),
		logger:    s.logger,
		currentID: -1,
	}
	sess.seq = sequencer.New(registry, clock, s.logger)
	sess.player = sequencer.NewPlayer(sess.tick, s.tickInterval, s.logger)

	s.mu.Lock()
	if s.active != nil {
		s.active.Pause()
	}
	s.active = sess
	s.mu.Unlock()

	if s.logger != nil {
		s.logger.Info("analysis loaded",
			"session_id", sess.ID,
			"segments", registry.Len(),
			"variants", len(variants),
			"entities", len(store.Entities()),
		)
	}
	return sess, nil
}

// Active returns the current session, if one is loaded.
func (s *Service) Active() (*Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active, s.active != nil
}

func (sess *Session) tick() {
	sess.mu.Lock()
	defer sess.mu.Unlock()

	res := sess.seq.Tick()
	if !res.ShouldSkip && res.CurrentID >= 0 {
		sess.currentID = res.CurrentID
	}
}

// SelectVariant activates a variant: selection mapped from its scenes, played
// flags cleared, preview reset to the variant's first scene.
func (sess *Session) SelectVariant(index int) error {
	sess.mu.Lock()
	defer sess.mu.Unlock()

	if err := sess.registry.SelectVariant(index); err != nil {
		return err
	}
	sess.currentID = -1
	sess.seq.ResetPreview()
	return nil
}

// ApplySelection overrides the selected set with explicit 1-based ids.
func (sess *Session) ApplySelection(ids []int) {
	sess.mu.Lock()
	defer sess.mu.Unlock()
	sess.registry.ApplySelection(ids)
}

// RestoreOriginal discards ad-hoc edits, keeping session flags when nothing
// was actually edited.
func (sess *Session) RestoreOriginal() {
	sess.mu.Lock()
	defer sess.mu.Unlock()
	sess.registry.RestoreOriginal()
}

// Reorder permutes the live timeline to the given 1-based id order.
func (sess *Session) Reorder(order []int) error {
	sess.mu.Lock()
	defer sess.mu.Unlock()
	return sess.registry.Reorder(order)
}

// Segments returns the live segment list.
func (sess *Session) Segments() []timeline.Segment {
	sess.mu.Lock()
	defer sess.mu.Unlock()
	return sess.registry.Segments()
}

// Variants returns the generated variants.
func (sess *Session) Variants() []timeline.Variant {
	sess.mu.Lock()
	defer sess.mu.Unlock()
	return sess.registry.Variants()
}

// Play starts the preview tick loop.
func (sess *Session) Play(ctx context.Context) {
	sess.player.Play(ctx)
}

// Pause stops the tick loop; no tick mutates played state on a frozen frame.
func (sess *Session) Pause() {
	sess.player.Pause()
}

// IsPlaying reports whether the tick loop runs.
func (sess *Session) IsPlaying() bool {
	return sess.player.IsPlaying()
}

// ResetPreview prepares a fresh or resumed pass.
func (sess *Session) ResetPreview() {
	sess.mu.Lock()
	defer sess.mu.Unlock()
	sess.currentID = -1
	sess.seq.ResetPreview()
}

// ReportPosition feeds the media element's position into the clock.
func (sess *Session) ReportPosition(pos float64) {
	sess.clock.Report(pos)
}

// State snapshots what the front end needs this poll: the highlight
// indicator, any pending seek, and the overlay geometry when the crop area
// has a defined position at the current timestamp.
func (sess *Session) State() PlaybackState {
	sess.mu.Lock()
	defer sess.mu.Unlock()

	st := PlaybackState{
		CurrentID: sess.currentID,
		Playing:   sess.player.IsPlaying(),
		PositionS: sess.clock.Position(),
	}
	if t, ok := sess.clock.TakeSeek(); ok {
		st.SeekTo = &t
	}
	if crop, ok := sess.store.CropArea(); ok {
		if rect, ok := framing.OverlayRect(crop, st.PositionS); ok {
			st.ShowOverlay = true
			st.Overlay = &rect
		}
	}
	return st
}

// CommitDrag applies a horizontal crop adjustment at the given timestamp:
// the whole constant-position run containing the active frame shifts by
// deltaX. Refused when there is no crop area or no active frame.
func (sess *Session) CommitDrag(t, deltaX float64) error {
	sess.mu.Lock()
	defer sess.mu.Unlock()

	crop, ok := sess.store.CropArea()
	if !ok {
		return framing.ErrNoActiveFrame
	}
	drag, err := sess.editor.BeginDrag(crop, t)
	if err != nil {
		return err
	}
	sess.editor.Commit(drag, deltaX)
	return nil
}

// BuildQueueItem snapshots the active variant's current selection into a
// render-queue item.
func (sess *Session) BuildQueueItem(settings render.RenderSettings) (render.QueueItem, error) {
	sess.mu.Lock()
	defer sess.mu.Unlock()

	v, ok := sess.registry.ActiveVariant()
	if !ok {
		return render.QueueItem{}, fmt.Errorf("no active variant")
	}
	item := render.NewQueueItem(v, sess.registry.ActiveVariantIndex(), sess.registry.Segments(), settings)
	if len(item.Segments) == 0 {
		return render.QueueItem{}, fmt.Errorf("no segments selected")
	}
	return item, nil
}

// PreviewPlaylist serializes the current selection as an HLS playlist.
func (sess *Session) PreviewPlaylist() (string, error) {
	sess.mu.Lock()
	defer sess.mu.Unlock()
	return preview.Playlist(sess.registry.Segments())
}
