// Package screen is the rotating screen state machine. It owns which screen
// is current and pushes freshly computed view values into the GUI on entry
// and on clock ticks.
package screen

import (
	"image/color"

	"github.com/kjstillabower/deskclock/internal/gui"
	"github.com/kjstillabower/deskclock/internal/models"
)

// ID identifies a screen. The zero value is Clock, the initial screen.
type ID int

const (
	Clock ID = iota
	DateBoard
	IndoorWeather
	OutdoorWeather

	numScreens
)

// All lists the screens in rotation order.
var All = []ID{Clock, DateBoard, IndoorWeather, OutdoorWeather}

// Next returns the following screen in the fixed forward cycle.
func (id ID) Next() ID {
	return (id + 1) % numScreens
}

// String returns the GUI screen name.
func (id ID) String() string {
	switch id {
	case Clock:
		return "clock"
	case DateBoard:
		return "date"
	case IndoorWeather:
		return "indoor"
	case OutdoorWeather:
		return "outdoor"
	default:
		return "unknown"
	}
}

// Widget names shared by the layout and the machine.
const (
	WidgetHour        = "hour"
	WidgetColon       = "colon"
	WidgetMinute      = "minute"
	WidgetSeconds     = "seconds"
	WidgetDay         = "day"
	WidgetMonth       = "month"
	WidgetWeekday     = "weekday"
	WidgetTitle       = "title"
	WidgetTemperature = "temperature"
	WidgetHumidity    = "humidity"
	WidgetDescription = "description"
)

// GUI is the subset of the widget tree the machine writes to. *gui.Tree
// satisfies it.
type GUI interface {
	Load(name string)
	Find(screen, widget string) *gui.Widget
	SetText(w *gui.Widget, text string)
	SetBarValue(w *gui.Widget, v int, animate bool)
	SetHidden(w *gui.Widget, hidden bool)
	SetTextColor(w *gui.Widget, c color.RGBA)
	SetBackground(screen string, c color.RGBA)
	Refresh()
}

// WeatherSource provides the cached outdoor weather.
type WeatherSource interface {
	Snapshot() models.WeatherSnapshot
}
