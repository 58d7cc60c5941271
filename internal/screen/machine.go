package screen

import (
	"time"

	"github.com/kjstillabower/deskclock/internal/clock"
	"github.com/kjstillabower/deskclock/internal/gui"
	"github.com/kjstillabower/deskclock/internal/weather"
)

// handles are resolved once; any of them may be nil.
type handles struct {
	hour, colon, minute, seconds *gui.Widget
	day, month, weekday          *gui.Widget
	temperature, humidity, desc  *gui.Widget
	outdoorTitle                 *gui.Widget
	icons                        map[weather.Icon]*gui.Widget
}

// Machine is the screen state machine. It is not safe for concurrent use;
// the scheduler loop is its only caller.
type Machine struct {
	gui     GUI
	clock   clock.WallClock
	weather WeatherSource
	settle  time.Duration
	sleep   func(time.Duration)

	current    ID
	colon      bool
	lastSecond int
	w          handles
}

// New creates a machine positioned on Clock without writing to the GUI.
// Call Enter(Clock) to draw the first screen.
func New(g GUI, wall clock.WallClock, src WeatherSource, settle time.Duration) *Machine {
	m := &Machine{
		gui:        g,
		clock:      wall,
		weather:    src,
		settle:     settle,
		sleep:      time.Sleep,
		current:    Clock,
		lastSecond: -1,
	}
	m.resolve()
	return m
}

func (m *Machine) resolve() {
	c, d, o := Clock.String(), DateBoard.String(), OutdoorWeather.String()
	m.w = handles{
		hour:         m.gui.Find(c, WidgetHour),
		colon:        m.gui.Find(c, WidgetColon),
		minute:       m.gui.Find(c, WidgetMinute),
		seconds:      m.gui.Find(c, WidgetSeconds),
		day:          m.gui.Find(d, WidgetDay),
		month:        m.gui.Find(d, WidgetMonth),
		weekday:      m.gui.Find(d, WidgetWeekday),
		temperature:  m.gui.Find(o, WidgetTemperature),
		humidity:     m.gui.Find(o, WidgetHumidity),
		desc:         m.gui.Find(o, WidgetDescription),
		outdoorTitle: m.gui.Find(o, WidgetTitle),
		icons:        make(map[weather.Icon]*gui.Widget, len(weather.Icons)),
	}
	for _, icon := range weather.Icons {
		m.w.icons[icon] = m.gui.Find(o, icon.String())
	}
}

// Current returns the current screen.
func (m *Machine) Current() ID { return m.current }

// ColonVisible returns the blink phase.
func (m *Machine) ColonVisible() bool { return m.colon }

// Enter loads id and performs that screen's entry writes.
func (m *Machine) Enter(id ID) {
	m.current = id
	m.gui.Load(id.String())

	switch id {
	case Clock:
		m.enterClock()
	case DateBoard:
		v := DateView(clock.Sample(m.clock.Now()))
		m.gui.SetText(m.w.day, v.Day)
		m.gui.SetText(m.w.month, v.Month)
		m.gui.SetText(m.w.weekday, v.Weekday)
	case IndoorWeather:
	case OutdoorWeather:
		m.enterOutdoor()
	}
}

func (m *Machine) enterClock() {
	s := clock.Sample(m.clock.Now())
	m.colon = true
	v := ClockView(s, m.colon)
	m.gui.SetHidden(m.w.colon, false)
	m.gui.SetText(m.w.hour, v.Hour)
	m.gui.SetText(m.w.minute, v.Minute)
	m.gui.SetBarValue(m.w.seconds, v.Second, false)
	m.gui.SetBackground(Clock.String(), v.Background)
	m.lastSecond = v.Second
}

func (m *Machine) enterOutdoor() {
	v := WeatherView(m.weather.Snapshot())
	m.gui.SetText(m.w.temperature, v.Temperature)
	m.gui.SetText(m.w.humidity, v.Humidity)
	m.gui.SetText(m.w.desc, v.Description)
	m.gui.SetBackground(OutdoorWeather.String(), v.Style.Background)
	for _, w := range []*gui.Widget{m.w.temperature, m.w.humidity, m.w.desc, m.w.outdoorTitle} {
		m.gui.SetTextColor(w, v.Style.Text)
	}

	// Let the background commit before the icon flips.
	m.gui.Refresh()
	if m.settle > 0 {
		m.sleep(m.settle)
	}
	for _, icon := range weather.Icons {
		m.gui.SetHidden(m.w.icons[icon], icon != v.Style.Icon)
	}
}

// Rotate advances to the next screen and redraws it.
func (m *Machine) Rotate() ID {
	m.Enter(m.current.Next())
	m.gui.Refresh()
	return m.current
}

// Tick updates the clock face. It does nothing unless Clock is current.
func (m *Machine) Tick() {
	if m.current != Clock {
		return
	}
	m.colon = !m.colon
	v := ClockView(clock.Sample(m.clock.Now()), m.colon)
	m.gui.SetText(m.w.hour, v.Hour)
	m.gui.SetText(m.w.minute, v.Minute)
	m.gui.SetHidden(m.w.colon, !v.ColonVisible)
	if v.Second != m.lastSecond {
		m.gui.SetBarValue(m.w.seconds, v.Second, true)
		m.lastSecond = v.Second
	}
	m.gui.Refresh()
}
