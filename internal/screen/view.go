package screen

import (
	"fmt"
	"image/color"

	"github.com/kjstillabower/deskclock/internal/clock"
	"github.com/kjstillabower/deskclock/internal/models"
	"github.com/kjstillabower/deskclock/internal/weather"
)

// Placeholders shown until the first successful weather fetch.
const (
	PlaceholderValue       = "--"
	PlaceholderDescription = "Loading..."
)

// ClockFace is the rendered state of the clock screen.
type ClockFace struct {
	Hour         string
	Minute       string
	ColonVisible bool
	Second       int
	Background   color.RGBA
}

// ClockView builds the clock face for a time sample and blink phase.
func ClockView(s clock.TimeSample, colonVisible bool) ClockFace {
	return ClockFace{
		Hour:         clock.TwoDigit(s.Hour),
		Minute:       clock.TwoDigit(s.Minute),
		ColonVisible: colonVisible,
		Second:       s.Second,
		Background:   weather.TimeOfDayBackground(s.Hour),
	}
}

// DateFace is the rendered state of the date board.
type DateFace struct {
	Day     string
	Month   string
	Weekday string
}

// DateView builds the date board for a time sample.
func DateView(s clock.TimeSample) DateFace {
	return DateFace{
		Day:     clock.TwoDigit(s.Day),
		Month:   clock.MonthAbbrev(s.Month),
		Weekday: clock.WeekdayAbbrev(s.Weekday),
	}
}

// WeatherFace is the rendered state of the outdoor weather screen.
type WeatherFace struct {
	Temperature string
	Humidity    string
	Description string
	Style       weather.Style
}

// WeatherView builds the outdoor screen from a snapshot. An invalid snapshot
// yields placeholders and the default style.
func WeatherView(s models.WeatherSnapshot) WeatherFace {
	if !s.Valid {
		return WeatherFace{
			Temperature: PlaceholderValue,
			Humidity:    PlaceholderValue,
			Description: PlaceholderDescription,
			Style:       weather.StyleFor(models.Unknown, s.IsDaytime),
		}
	}
	return WeatherFace{
		Temperature: fmt.Sprintf("%d°C", s.Temperature),
		Humidity:    fmt.Sprintf("%d%%", s.Humidity),
		Description: s.Description.String(),
		Style:       weather.StyleFor(s.Description, s.IsDaytime),
	}
}
