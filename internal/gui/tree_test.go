package gui

import (
	"errors"
	"image"
	"image/color"
	"testing"
)

type recordingFlusher struct {
	frames int
	err    error
}

func (f *recordingFlusher) Flush(frame *image.RGBA) error {
	f.frames++
	return f.err
}

func newTestTree(f Flusher) (*Tree, *Widget, *Widget, *Widget) {
	tr := NewTree(64, 32, f, nil)
	main := tr.AddScreen("main", color.RGBA{0, 0, 0, 255})
	label := main.Add(&Widget{Name: "label", Kind: KindLabel, Rect: image.Rect(0, 0, 20, 13)})
	bar := main.Add(&Widget{Name: "bar", Kind: KindBar, Rect: image.Rect(0, 20, 64, 28), Max: 59})
	other := tr.AddScreen("other", color.RGBA{255, 255, 255, 255})
	hiddenLabel := other.Add(&Widget{Name: "label", Kind: KindLabel, Rect: image.Rect(0, 0, 20, 13)})
	return tr, label, bar, hiddenLabel
}

func TestTree_Find(t *testing.T) {
	tr, label, _, _ := newTestTree(nil)
	if got := tr.Find("main", "label"); got != label {
		t.Errorf("Find(main, label) = %p, want %p", got, label)
	}
	if got := tr.Find("main", "missing"); got != nil {
		t.Errorf("Find(main, missing) = %v, want nil", got)
	}
	if got := tr.Find("nope", "label"); got != nil {
		t.Errorf("Find(nope, label) = %v, want nil", got)
	}
}

// TestTree_NilWidgetWritesAreNoOps verifies absent handles are skipped
// without panicking or dirtying the screen.
func TestTree_NilWidgetWritesAreNoOps(t *testing.T) {
	f := &recordingFlusher{}
	tr, _, _, _ := newTestTree(f)
	tr.Load("main")
	tr.Pump(0)
	before := f.frames

	var missing *Widget
	tr.SetText(missing, "x")
	tr.SetBarValue(missing, 3, true)
	tr.SetHidden(missing, true)
	tr.SetTextColor(missing, color.RGBA{1, 2, 3, 255})
	tr.Pump(10)

	if f.frames != before {
		t.Errorf("frames = %d after nil writes, want %d", f.frames, before)
	}
}

func TestTree_PumpRendersOnlyWhenDirty(t *testing.T) {
	f := &recordingFlusher{}
	tr, label, _, _ := newTestTree(f)
	tr.Load("main")
	tr.Pump(0)
	tr.Pump(5)
	if f.frames != 1 {
		t.Fatalf("frames = %d, want 1 (load only)", f.frames)
	}
	tr.SetText(label, "14")
	tr.Pump(10)
	if f.frames != 2 {
		t.Errorf("frames = %d after text change, want 2", f.frames)
	}
	tr.SetText(label, "14")
	tr.Pump(15)
	if f.frames != 2 {
		t.Errorf("frames = %d after identical text, want 2", f.frames)
	}
}

// TestTree_WritesToInactiveScreenDoNotRender checks that widgets on a
// screen that is not loaded never trigger a redraw.
func TestTree_WritesToInactiveScreenDoNotRender(t *testing.T) {
	f := &recordingFlusher{}
	tr, _, _, hidden := newTestTree(f)
	tr.Load("main")
	tr.Pump(0)
	tr.SetText(hidden, "offscreen")
	tr.Pump(5)
	if f.frames != 1 {
		t.Errorf("frames = %d, want 1", f.frames)
	}
	if hidden.Text != "offscreen" {
		t.Errorf("Text = %q, want stored value", hidden.Text)
	}
}

func TestTree_BarInstant(t *testing.T) {
	tr, _, bar, _ := newTestTree(nil)
	tr.Load("main")
	tr.SetBarValue(bar, 3, false)
	if bar.Shown() != 3 || bar.Value() != 3 {
		t.Errorf("Shown/Value = %d/%d, want 3/3", bar.Shown(), bar.Value())
	}
	tr.SetBarValue(bar, 100, false)
	if bar.Value() != 59 {
		t.Errorf("Value = %d, want clamp to 59", bar.Value())
	}
	tr.SetBarValue(bar, -4, false)
	if bar.Value() != 0 {
		t.Errorf("Value = %d, want clamp to 0", bar.Value())
	}
}

func TestTree_BarAnimation(t *testing.T) {
	tr, _, bar, _ := newTestTree(nil)
	tr.SetAnimationDuration(1000)
	tr.Load("main")
	tr.SetBarValue(bar, 0, false)
	tr.SetBarValue(bar, 50, true)
	if bar.Shown() != 0 {
		t.Fatalf("Shown = %d before pump, want 0", bar.Shown())
	}
	tr.Pump(1000) // animation starts
	tr.Pump(1500)
	if bar.Shown() != 25 {
		t.Errorf("Shown = %d halfway, want 25", bar.Shown())
	}
	tr.Pump(2000)
	if bar.Shown() != 50 {
		t.Errorf("Shown = %d at end, want 50", bar.Shown())
	}
}

// TestTree_AnimationFramesThrottled pumps at the loop rate through a full
// 0 to 59 sweep and checks the panel sees about one frame per step.
func TestTree_AnimationFramesThrottled(t *testing.T) {
	f := &recordingFlusher{}
	tr, _, bar, _ := newTestTree(f)
	tr.Load("main")
	tr.SetBarValue(bar, 0, false)
	tr.Pump(0)
	before := f.frames

	tr.SetBarValue(bar, 59, true)
	for now := uint32(5); now <= 1000; now += 5 {
		tr.Pump(now)
	}

	if bar.Shown() != 59 {
		t.Errorf("Shown = %d after sweep, want 59", bar.Shown())
	}
	// Start frame, eight 100 ms steps, final value.
	if got := f.frames - before; got > 10 {
		t.Errorf("frames during animation = %d, want at most 10", got)
	}
}

func TestTree_AnimationStepZeroAdvancesEveryPump(t *testing.T) {
	tr, _, bar, _ := newTestTree(nil)
	tr.SetAnimationDuration(100)
	tr.SetAnimationStep(0)
	tr.Load("main")
	tr.SetBarValue(bar, 50, true)
	tr.Pump(0)
	tr.Pump(50)
	if bar.Shown() != 25 {
		t.Errorf("Shown = %d halfway, want 25", bar.Shown())
	}
}

func TestTree_BarAnimationAcrossCounterWrap(t *testing.T) {
	tr, _, bar, _ := newTestTree(nil)
	tr.SetAnimationDuration(100)
	tr.Load("main")
	tr.SetBarValue(bar, 40, true)
	tr.Pump(0xFFFFFFF0)
	tr.Pump(0x00000080) // 0x90 ms later
	if bar.Shown() != 40 {
		t.Errorf("Shown = %d, want 40 after wrap", bar.Shown())
	}
}

func TestTree_FlushErrorIsNotFatal(t *testing.T) {
	f := &recordingFlusher{err: errors.New("spi: bus busy")}
	tr, label, _, _ := newTestTree(f)
	tr.Load("main")
	tr.Pump(0)
	tr.SetText(label, "x")
	tr.Pump(1)
	if f.frames != 2 {
		t.Errorf("frames = %d, want 2 despite errors", f.frames)
	}
}

func TestTree_SnapshotReflectsBackground(t *testing.T) {
	tr, _, _, _ := newTestTree(nil)
	if tr.Snapshot() != nil {
		t.Fatal("Snapshot() before render should be nil")
	}
	tr.Load("main")
	tr.SetBackground("main", color.RGBA{10, 20, 30, 255})
	tr.Refresh()
	snap := tr.Snapshot()
	if snap == nil {
		t.Fatal("Snapshot() = nil after Refresh")
	}
	if got := snap.RGBAAt(63, 31); got != (color.RGBA{10, 20, 30, 255}) {
		t.Errorf("corner pixel = %v, want background", got)
	}
}

func TestTree_LoadUnknownIgnored(t *testing.T) {
	tr, _, _, _ := newTestTree(nil)
	tr.Load("main")
	tr.Load("missing")
	if tr.Active() != "main" {
		t.Errorf("Active() = %q, want main", tr.Active())
	}
}
