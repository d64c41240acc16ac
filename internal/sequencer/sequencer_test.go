package sequencer

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/letrongminh/vigenair/internal/timeline"
)

type fakeClock struct {
	pos   float64
	dur   float64
	seeks []float64
}

func (c *fakeClock) Position() float64 { return c.pos }
func (c *fakeClock) Duration() float64 { return c.dur }
func (c *fakeClock) Seek(t float64) {
	c.seeks = append(c.seeks, t)
	c.pos = t
}

func newFixture(t *testing.T, scenes []int) (*timeline.Registry, *fakeClock, *Sequencer) {
	t.Helper()
	reg := timeline.NewRegistry()
	err := reg.Load([]timeline.RawSegment{
		{StartS: 0, EndS: 5},
		{StartS: 5, EndS: 10},
		{StartS: 10, EndS: 15},
	})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if err := reg.SetVariants([]timeline.Variant{{Title: "Cut", Scenes: scenes}}); err != nil {
		t.Fatalf("SetVariants() error = %v", err)
	}
	if err := reg.SelectVariant(0); err != nil {
		t.Fatalf("SelectVariant() error = %v", err)
	}

	clock := &fakeClock{dur: 20}
	return reg, clock, New(reg, clock, nil)
}

func TestTick_InertWithoutVariant(t *testing.T) {
	reg := timeline.NewRegistry()
	reg.Load([]timeline.RawSegment{{StartS: 0, EndS: 5}})
	clock := &fakeClock{dur: 5}
	seq := New(reg, clock, nil)

	res := seq.Tick()
	if res.CurrentID != -1 || res.Seeked || res.ShouldSkip {
		t.Errorf("Tick() without active variant = %+v, want inert result", res)
	}
	if len(clock.seeks) != 0 {
		t.Errorf("Tick() without active variant issued %d seeks", len(clock.seeks))
	}
}

func TestTick_OutsideEverySegment(t *testing.T) {
	_, clock, seq := newFixture(t, []int{1, 3})
	clock.pos = 19

	res := seq.Tick()
	if res.CurrentID != -1 || res.Seeked {
		t.Errorf("Tick() past last segment = %+v, want no-op", res)
	}
}

func TestTick_MarksCurrentPlayed(t *testing.T) {
	reg, clock, seq := newFixture(t, []int{1, 3})
	clock.pos = 0

	res := seq.Tick()
	if res.CurrentID != 0 {
		t.Errorf("CurrentID = %d, want 0", res.CurrentID)
	}
	if res.ShouldSkip {
		t.Error("ShouldSkip = true for the next playable segment")
	}
	if s, _ := reg.Segment(0); !s.Played {
		t.Error("segment 0 not marked played")
	}
	if len(clock.seeks) != 0 {
		t.Errorf("unexpected seeks: %v", clock.seeks)
	}
}

func TestTick_SkipsUnselectedSegment(t *testing.T) {
	_, clock, seq := newFixture(t, []int{1, 3})
	clock.pos = 0
	seq.Tick() // consume segment 0

	clock.pos = 6 // inside segment 1, unselected
	res := seq.Tick()

	if !res.ShouldSkip {
		t.Error("ShouldSkip = false on unselected segment")
	}
	if !res.Seeked || res.SeekTo != 10 {
		t.Errorf("Tick() = %+v, want seek to 10", res)
	}
	if clock.pos != 10 {
		t.Errorf("clock position = %v, want 10", clock.pos)
	}
}

func TestTick_SeeksAheadForOutOfOrderSelection(t *testing.T) {
	// Playback sits inside the later selected segment while an earlier one
	// is still unplayed; the sequencer jumps back.
	_, clock, seq := newFixture(t, []int{1, 3})
	clock.pos = 12 // inside segment 2: selected, unplayed, but not next

	res := seq.Tick()
	if res.ShouldSkip {
		t.Error("ShouldSkip should be false for a selected unplayed segment")
	}
	if !res.Seeked || res.SeekTo != 0 {
		t.Errorf("Tick() = %+v, want seek to 0", res)
	}
}

func TestTick_FullPassSeeksEndOnce(t *testing.T) {
	reg, clock, seq := newFixture(t, []int{1, 3})

	clock.pos = 0
	seq.Tick()
	clock.pos = 12
	seq.Tick()
	if !reg.AllSelectedPlayed() {
		t.Fatal("expected both selected segments played")
	}

	clock.pos = 15 // at last selected segment's end
	res := seq.Tick()
	if !res.Seeked || res.SeekTo != 20 {
		t.Errorf("Tick() = %+v, want seek to duration 20", res)
	}

	// Repeat ticks at the same spot must not seek again without a reset.
	clock.pos = 15
	for i := 0; i < 3; i++ {
		if res := seq.Tick(); res.Seeked {
			t.Fatalf("tick %d after completion seeked again: %+v", i, res)
		}
	}
	if got := len(clock.seeks); got != 1 {
		t.Errorf("total end-of-media seeks = %d, want 1", got)
	}
}

func TestTick_ReplaysEarlierSegmentAfterLaterPlayed(t *testing.T) {
	// Pins the literal out-of-order rule: a played segment that is not the
	// most recently played entry is skipped while a different segment is
	// still playable.
	_, clock, seq := newFixture(t, []int{1, 2, 3})

	clock.pos = 0
	seq.Tick() // play 0
	clock.pos = 5.5
	seq.Tick() // play 1

	clock.pos = 2 // user scrubbed back into played segment 0
	res := seq.Tick()
	if !res.ShouldSkip {
		t.Error("ShouldSkip = false for out-of-order played segment")
	}
	if !res.Seeked || res.SeekTo != 10 {
		t.Errorf("Tick() = %+v, want seek to segment 2 at 10", res)
	}
}

func TestTick_MostRecentlyPlayedKeepsPlaying(t *testing.T) {
	_, clock, seq := newFixture(t, []int{1, 3})

	clock.pos = 0
	seq.Tick() // play 0, now the most recently played entry

	clock.pos = 3 // still inside segment 0
	res := seq.Tick()
	if res.ShouldSkip {
		t.Error("ShouldSkip = true mid-playback of the most recently played segment")
	}
	if res.Seeked {
		t.Errorf("unexpected seek mid-playback: %+v", res)
	}
}

func TestResetPreview_FreshPass(t *testing.T) {
	reg, clock, seq := newFixture(t, []int{2, 3})

	clock.pos = 7
	seq.Tick() // play 1
	clock.pos = 12
	seq.Tick() // play 2
	clock.pos = 15
	seq.Tick() // end of pass

	seq.ResetPreview()

	for _, id := range []int{1, 2} {
		if s, _ := reg.Segment(id); s.Played {
			t.Errorf("segment %d still played after ResetPreview()", id)
		}
	}
	if clock.pos != 5 {
		t.Errorf("clock position = %v after ResetPreview(), want first scene start 5", clock.pos)
	}
}

func TestResetPreview_ResumesMidPass(t *testing.T) {
	_, clock, seq := newFixture(t, []int{1, 3})

	clock.pos = 0
	seq.Tick() // play 0; segment 2 still unplayed

	clock.pos = 7
	seq.ResetPreview()

	if clock.pos != 10 {
		t.Errorf("clock position = %v, want resume at 10", clock.pos)
	}
}

func TestResetPreview_ReleasesEndLatch(t *testing.T) {
	reg, clock, seq := newFixture(t, []int{1})

	clock.pos = 0
	seq.Tick()
	clock.pos = 5
	seq.Tick() // seeks to end
	if len(clock.seeks) != 1 {
		t.Fatalf("expected one end seek, got %v", clock.seeks)
	}

	seq.ResetPreview()
	if s, _ := reg.Segment(0); s.Played {
		t.Fatal("played flag not cleared by ResetPreview()")
	}

	clock.pos = 0
	seq.Tick()
	clock.pos = 5
	res := seq.Tick()
	if !res.Seeked {
		t.Error("second pass did not seek to end after reset")
	}
}

func TestTick_SkipsGapBetweenSelectedScenes(t *testing.T) {
	// Segments [0,5) [5,10) [10,15), variant scenes [1,3]:
	// tick at t=0 consumes segment 0; tick at t=6 skips to 10.
	reg, clock, seq := newFixture(t, []int{1, 3})

	want := []bool{true, false, true}
	for i, s := range reg.Segments() {
		if s.Selected != want[i] {
			t.Fatalf("segment %d Selected = %v, want %v", i, s.Selected, want[i])
		}
	}

	clock.pos = 0
	res := seq.Tick()
	if res.CurrentID != 0 || res.ShouldSkip || res.Seeked {
		t.Errorf("tick at t=0 = %+v, want consume segment 0", res)
	}
	if s, _ := reg.Segment(0); !s.Played {
		t.Error("segment 0 not played after tick at t=0")
	}

	clock.pos = 6
	res = seq.Tick()
	if !res.ShouldSkip || !res.Seeked || res.SeekTo != 10 {
		t.Errorf("tick at t=6 = %+v, want skip with seek to 10", res)
	}
}

func TestPlayer_StartsAndStops(t *testing.T) {
	var ticks atomic.Int64
	p := NewPlayer(func() { ticks.Add(1) }, time.Millisecond, nil)

	p.Play(context.Background())
	if !p.IsPlaying() {
		t.Error("IsPlaying() = false after Play()")
	}

	time.Sleep(20 * time.Millisecond)
	p.Pause()

	// Pause must stop ticking entirely.
	time.Sleep(5 * time.Millisecond)
	stopped := ticks.Load()
	if stopped == 0 {
		t.Fatal("player never ticked")
	}
	time.Sleep(10 * time.Millisecond)
	if ticks.Load() != stopped {
		t.Error("player kept ticking after Pause()")
	}
}

func TestPlayer_DoublePlayIsNoop(t *testing.T) {
	var ticks atomic.Int64
	p := NewPlayer(func() { ticks.Add(1) }, time.Millisecond, nil)

	p.Play(context.Background())
	p.Play(context.Background())
	defer p.Pause()

	time.Sleep(10 * time.Millisecond)
	if !p.IsPlaying() {
		t.Error("IsPlaying() = false while playing")
	}
}
