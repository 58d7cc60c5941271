// Package gui is a small retained-mode widget tree. Screens own named
// widgets; writes mark the active screen dirty and Pump renders it.
//
// Every write method accepts a nil *Widget and does nothing, so callers can
// hold handles for widgets that a given layout does not define.
package gui

import (
	"image"
	"image/color"
	"sync"

	"go.uber.org/zap"
)

// Kind is the widget type.
type Kind int

const (
	KindLabel Kind = iota
	KindBar
	KindIcon
)

// Flusher receives rendered frames (normally the panel).
type Flusher interface {
	Flush(frame *image.RGBA) error
}

// Widget is one element of a screen.
type Widget struct {
	Name  string
	Kind  Kind
	Rect  image.Rectangle
	Scale int // text magnification, 1 when zero
	Text  string
	Color color.RGBA
	Fill  color.RGBA // icon and bar fill
	Max   int        // bar range is [0, Max]

	value  int // bar target value
	shown  int // bar value currently drawn
	anim   *animation
	hidden bool
	screen *Screen
}

// Value returns the bar's target value.
func (w *Widget) Value() int { return w.value }

// Shown returns the bar value as last advanced by Pump.
func (w *Widget) Shown() int { return w.shown }

// Hidden reports whether the widget is hidden.
func (w *Widget) Hidden() bool { return w.hidden }

// Screen is a full-panel layout.
type Screen struct {
	Name       string
	Background color.RGBA

	widgets []*Widget
	byName  map[string]*Widget
}

// Add appends w to the screen and returns it.
func (s *Screen) Add(w *Widget) *Widget {
	if w.Scale <= 0 {
		w.Scale = 1
	}
	w.screen = s
	s.widgets = append(s.widgets, w)
	s.byName[w.Name] = w
	return w
}

type animation struct {
	from, to int
	start    uint32
	stepped  uint32
	started  bool
}

// Tree holds all screens and renders the active one.
type Tree struct {
	width, height int
	screens       map[string]*Screen
	active        *Screen
	dirty         bool
	animMillis    uint32
	stepMillis    uint32
	flusher       Flusher
	logger        *zap.Logger
	frame         *image.RGBA
	renders       int

	snapMu   sync.RWMutex
	snapshot *image.RGBA
}

// NewTree creates an empty tree for a width x height panel. flusher may be nil.
func NewTree(width, height int, flusher Flusher, logger *zap.Logger) *Tree {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Tree{
		width:      width,
		height:     height,
		screens:    make(map[string]*Screen),
		animMillis: 900,
		stepMillis: 100,
		flusher:    flusher,
		logger:     logger,
		frame:      image.NewRGBA(image.Rect(0, 0, width, height)),
	}
}

// SetAnimationDuration sets how long animated bar changes take.
func (t *Tree) SetAnimationDuration(ms uint32) {
	t.animMillis = ms
}

// SetAnimationStep sets the minimum time between animation frames. Zero
// advances on every Pump.
func (t *Tree) SetAnimationStep(ms uint32) {
	t.stepMillis = ms
}

// AddScreen creates a named screen.
func (t *Tree) AddScreen(name string, bg color.RGBA) *Screen {
	s := &Screen{Name: name, Background: bg, byName: make(map[string]*Widget)}
	t.screens[name] = s
	return s
}

// Load makes the named screen active. Unknown names are ignored.
func (t *Tree) Load(name string) {
	s, ok := t.screens[name]
	if !ok {
		t.logger.Debug("load of unknown screen", zap.String("screen", name))
		return
	}
	t.active = s
	t.dirty = true
}

// Active returns the active screen name, or "" before the first Load.
func (t *Tree) Active() string {
	if t.active == nil {
		return ""
	}
	return t.active.Name
}

// Find returns the widget or nil when the screen or widget does not exist.
func (t *Tree) Find(screen, widget string) *Widget {
	s, ok := t.screens[screen]
	if !ok {
		return nil
	}
	return s.byName[widget]
}

// SetText sets a label's text.
func (t *Tree) SetText(w *Widget, text string) {
	if w == nil || w.Text == text {
		return
	}
	w.Text = text
	t.touch(w)
}

// SetBarValue sets a bar's value, clamped to [0, Max]. Without animation the
// bar jumps straight to v.
func (t *Tree) SetBarValue(w *Widget, v int, animate bool) {
	if w == nil {
		return
	}
	if v < 0 {
		v = 0
	}
	if w.Max > 0 && v > w.Max {
		v = w.Max
	}
	w.value = v
	if animate && t.animMillis > 0 && w.shown != v {
		w.anim = &animation{from: w.shown, to: v}
	} else {
		w.anim = nil
		w.shown = v
	}
	t.touch(w)
}

// SetHidden shows or hides a widget.
func (t *Tree) SetHidden(w *Widget, hidden bool) {
	if w == nil || w.hidden == hidden {
		return
	}
	w.hidden = hidden
	t.touch(w)
}

// SetTextColor sets a widget's foreground colour.
func (t *Tree) SetTextColor(w *Widget, c color.RGBA) {
	if w == nil || w.Color == c {
		return
	}
	w.Color = c
	t.touch(w)
}

// SetBackground sets a screen's background colour.
func (t *Tree) SetBackground(screen string, c color.RGBA) {
	s, ok := t.screens[screen]
	if !ok || s.Background == c {
		return
	}
	s.Background = c
	if s == t.active {
		t.dirty = true
	}
}

// Pump advances animations on the active screen and renders it if anything
// changed since the last render. Animated bars step at most once per
// animation step and only a change in the drawn value marks the screen dirty.
func (t *Tree) Pump(now uint32) {
	if t.active == nil {
		return
	}
	for _, w := range t.active.widgets {
		if w.anim == nil {
			continue
		}
		a := w.anim
		if !a.started {
			a.start = now
			a.stepped = now
			a.started = true
		}
		var v int
		if elapsed := now - a.start; elapsed >= t.animMillis {
			v = a.to
			w.anim = nil
		} else {
			if now-a.stepped < t.stepMillis {
				continue
			}
			a.stepped = now
			v = a.from + (a.to-a.from)*int(elapsed)/int(t.animMillis)
		}
		if v != w.shown {
			w.shown = v
			t.dirty = true
		}
	}
	if t.dirty {
		t.render()
	}
}

// Refresh renders the active screen immediately.
func (t *Tree) Refresh() {
	if t.active == nil {
		return
	}
	t.render()
}

// Renders returns how many frames have been rendered.
func (t *Tree) Renders() int { return t.renders }

// Snapshot returns a copy of the last rendered frame, or nil before the
// first render. Safe to call from other goroutines.
func (t *Tree) Snapshot() *image.RGBA {
	t.snapMu.RLock()
	defer t.snapMu.RUnlock()
	if t.snapshot == nil {
		return nil
	}
	out := image.NewRGBA(t.snapshot.Rect)
	copy(out.Pix, t.snapshot.Pix)
	return out
}

func (t *Tree) touch(w *Widget) {
	if w.screen != nil && w.screen == t.active {
		t.dirty = true
	}
}

func (t *Tree) render() {
	drawScreen(t.frame, t.active)
	t.dirty = false
	t.renders++

	t.snapMu.Lock()
	if t.snapshot == nil {
		t.snapshot = image.NewRGBA(t.frame.Rect)
	}
	copy(t.snapshot.Pix, t.frame.Pix)
	t.snapMu.Unlock()

	if t.flusher == nil {
		return
	}
	if err := t.flusher.Flush(t.frame); err != nil {
		t.logger.Warn("frame flush failed", zap.String("screen", t.active.Name), zap.Error(err))
	}
}
