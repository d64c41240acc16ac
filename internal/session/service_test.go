package session

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/letrongminh/vigenair/internal/render"
)

const (
	segmentsJSON = `[
		{"av_segment_id":1,"start_s":0,"end_s":5,"screenshot_uri":"gs://b/1.png"},
		{"av_segment_id":2,"start_s":5,"end_s":10,"screenshot_uri":"gs://b/2.png"},
		{"av_segment_id":3,"start_s":10,"end_s":15,"screenshot_uri":"gs://b/3.png"}
	]`
	variantsJSON = `[
		{"title":"Punchy cut","score":9.1,"scenes":[1,3]},
		{"title":"Full story","score":7.4,"scenes":[1,2,3]}
	]`
	annotationsJSON = `[
		{"name":"crop_area","start_s":0,"end_s":15,"frames":[
			{"x":0.1,"y":0,"width":0.3,"height":1,"time":0},
			{"x":0.1,"y":0,"width":0.3,"height":1,"time":5},
			{"x":0.6,"y":0,"width":0.3,"height":1,"time":10}
		]}
	]`
)

func analysisInput() AnalysisInput {
	return AnalysisInput{
		Segments:    json.RawMessage(segmentsJSON),
		Variants:    json.RawMessage(variantsJSON),
		Annotations: json.RawMessage(annotationsJSON),
		DurationS:   20,
		RenderW:     1280,
		RenderH:     720,
	}
}

func loadedSession(t *testing.T) (*Service, *Session) {
	t.Helper()
	svc := NewService(time.Millisecond, nil)
	sess, err := svc.LoadAnalysis(context.Background(), analysisInput())
	if err != nil {
		t.Fatalf("LoadAnalysis() error = %v", err)
	}
	return svc, sess
}

func TestLoadAnalysis(t *testing.T) {
	_, sess := loadedSession(t)

	if sess.ID == "" {
		t.Error("session ID is empty")
	}
	if got := len(sess.Segments()); got != 3 {
		t.Errorf("len(Segments()) = %d, want 3", got)
	}
	if got := len(sess.Variants()); got != 2 {
		t.Errorf("len(Variants()) = %d, want 2", got)
	}
}

func TestLoadAnalysis_AllOrNothing(t *testing.T) {
	svc, prior := loadedSession(t)

	bad := analysisInput()
	bad.Variants = json.RawMessage(`[{"title":"Broken","scenes":[9]}]`)

	if _, err := svc.LoadAnalysis(context.Background(), bad); err == nil {
		t.Fatal("LoadAnalysis() with invalid variants should fail")
	}

	active, ok := svc.Active()
	if !ok || active.ID != prior.ID {
		t.Error("failed load replaced the prior session")
	}
}

func TestLoadAnalysis_MalformedSegments(t *testing.T) {
	svc := NewService(time.Millisecond, nil)
	in := analysisInput()
	in.Segments = json.RawMessage(`{"not":"an array"}`)

	if _, err := svc.LoadAnalysis(context.Background(), in); err == nil {
		t.Error("LoadAnalysis() with malformed segments should fail")
	}
	if _, ok := svc.Active(); ok {
		t.Error("failed load left a session active")
	}
}

func TestLoadAnalysis_AnnotationsOptional(t *testing.T) {
	svc := NewService(time.Millisecond, nil)
	in := analysisInput()
	in.Annotations = nil

	sess, err := svc.LoadAnalysis(context.Background(), in)
	if err != nil {
		t.Fatalf("LoadAnalysis() without annotations error = %v", err)
	}
	st := sess.State()
	if st.ShowOverlay {
		t.Error("ShowOverlay = true without a crop area")
	}
}

func TestSelectVariantAndState(t *testing.T) {
	_, sess := loadedSession(t)

	if err := sess.SelectVariant(0); err != nil {
		t.Fatalf("SelectVariant() error = %v", err)
	}

	segs := sess.Segments()
	want := []bool{true, false, true}
	for i, s := range segs {
		if s.Selected != want[i] {
			t.Errorf("segment %d Selected = %v, want %v", i, s.Selected, want[i])
		}
	}

	st := sess.State()
	if st.CurrentID != -1 {
		t.Errorf("CurrentID = %d before any tick, want -1", st.CurrentID)
	}
	if !st.ShowOverlay {
		t.Error("ShowOverlay = false with an active crop area at t=0")
	}
	if st.Overlay == nil || st.Overlay.X != 128 {
		t.Errorf("Overlay = %+v, want denormalized X=128", st.Overlay)
	}
}

func TestTickThroughSession(t *testing.T) {
	_, sess := loadedSession(t)
	if err := sess.SelectVariant(0); err != nil {
		t.Fatalf("SelectVariant() error = %v", err)
	}

	sess.ReportPosition(0)
	sess.tick()
	if st := sess.State(); st.CurrentID != 0 {
		t.Errorf("CurrentID = %d after tick at t=0, want 0", st.CurrentID)
	}

	// Inside the unselected segment: the indicator must not move, and the
	// skip seek surfaces on the next state poll.
	sess.ReportPosition(6)
	sess.tick()
	st := sess.State()
	if st.CurrentID != 0 {
		t.Errorf("CurrentID = %d after skip tick, want unchanged 0", st.CurrentID)
	}
	if st.SeekTo == nil || *st.SeekTo != 10 {
		t.Errorf("SeekTo = %v, want 10", st.SeekTo)
	}

	// The pending seek is consumed by the poll.
	if st := sess.State(); st.SeekTo != nil {
		t.Errorf("SeekTo = %v on second poll, want nil", st.SeekTo)
	}
}

func TestCommitDrag(t *testing.T) {
	_, sess := loadedSession(t)

	if err := sess.CommitDrag(1.0, 40); err != nil {
		t.Fatalf("CommitDrag() error = %v", err)
	}

	// Frames 0 and 1 held x=0.1*1280=128; both move, the third hold stays.
	crop, _ := sess.store.CropArea()
	if crop.Frames[0].X != 168 || crop.Frames[1].X != 168 {
		t.Errorf("hold frames X = %v, %v; want 168", crop.Frames[0].X, crop.Frames[1].X)
	}
	if crop.Frames[2].X != 768 {
		t.Errorf("frame 2 X = %v, want untouched 768", crop.Frames[2].X)
	}
}

func TestCommitDrag_RefusedPastLastFrame(t *testing.T) {
	_, sess := loadedSession(t)

	if err := sess.CommitDrag(99, 40); err == nil {
		t.Error("CommitDrag() past last frame should be refused")
	}
}

func TestBuildQueueItem(t *testing.T) {
	_, sess := loadedSession(t)
	if err := sess.SelectVariant(0); err != nil {
		t.Fatalf("SelectVariant() error = %v", err)
	}

	item, err := sess.BuildQueueItem(render.RenderSettings{AspectRatio: "16:9"})
	if err != nil {
		t.Fatalf("BuildQueueItem() error = %v", err)
	}
	if item.VariantTitle != "Punchy cut" {
		t.Errorf("VariantTitle = %q, want Punchy cut", item.VariantTitle)
	}
	if item.DurationS != 10 {
		t.Errorf("DurationS = %v, want 10", item.DurationS)
	}
	if item.UserSelection {
		t.Error("UserSelection = true for untouched variant selection")
	}
}

func TestBuildQueueItem_NoVariant(t *testing.T) {
	_, sess := loadedSession(t)

	if _, err := sess.BuildQueueItem(render.RenderSettings{}); err == nil {
		t.Error("BuildQueueItem() without active variant should fail")
	}
}

func TestPreviewPlaylist(t *testing.T) {
	_, sess := loadedSession(t)
	if err := sess.SelectVariant(0); err != nil {
		t.Fatalf("SelectVariant() error = %v", err)
	}

	out, err := sess.PreviewPlaylist()
	if err != nil {
		t.Fatalf("PreviewPlaylist() error = %v", err)
	}
	if out == "" {
		t.Error("PreviewPlaylist() returned empty playlist")
	}
}
