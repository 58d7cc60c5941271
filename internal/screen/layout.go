package screen

import (
	"image"
	"image/color"

	"github.com/kjstillabower/deskclock/internal/gui"
	"github.com/kjstillabower/deskclock/internal/weather"
)

// Panel geometry for the layout built by BuildLayout.
const (
	Width  = 320
	Height = 240
)

var (
	labelColor = color.RGBA{240, 240, 240, 255}
	dimColor   = color.RGBA{150, 150, 150, 255}
	trackColor = color.RGBA{70, 70, 70, 255}
	barColor   = color.RGBA{90, 200, 120, 255}
)

var iconFills = map[weather.Icon]color.RGBA{
	weather.IconSun:         {255, 214, 0, 255},
	weather.IconMoon:        {230, 230, 200, 255},
	weather.IconCloud:       {220, 220, 220, 255},
	weather.IconRain:        {90, 140, 220, 255},
	weather.IconFog:         {170, 170, 170, 255},
	weather.IconCloudyNight: {110, 120, 150, 255},
}

// BuildLayout creates the four screens on a 320x240 tree. Icons start hidden.
func BuildLayout(t *gui.Tree) {
	c := t.AddScreen(Clock.String(), weather.TimeOfDayBackground(0))
	c.Add(&gui.Widget{Name: WidgetHour, Kind: gui.KindLabel, Rect: image.Rect(40, 60, 138, 138), Scale: 6, Text: "--", Color: labelColor})
	c.Add(&gui.Widget{Name: WidgetColon, Kind: gui.KindLabel, Rect: image.Rect(140, 60, 180, 138), Scale: 6, Text: ":", Color: labelColor})
	c.Add(&gui.Widget{Name: WidgetMinute, Kind: gui.KindLabel, Rect: image.Rect(182, 60, 280, 138), Scale: 6, Text: "--", Color: labelColor})
	c.Add(&gui.Widget{Name: WidgetSeconds, Kind: gui.KindBar, Rect: image.Rect(40, 170, 280, 186), Color: trackColor, Fill: barColor, Max: 59})

	d := t.AddScreen(DateBoard.String(), weather.DefaultBackground)
	d.Add(&gui.Widget{Name: WidgetWeekday, Kind: gui.KindLabel, Rect: image.Rect(20, 30, 300, 82), Scale: 4, Text: "---", Color: dimColor})
	d.Add(&gui.Widget{Name: WidgetDay, Kind: gui.KindLabel, Rect: image.Rect(20, 90, 300, 168), Scale: 6, Text: "--", Color: labelColor})
	d.Add(&gui.Widget{Name: WidgetMonth, Kind: gui.KindLabel, Rect: image.Rect(20, 176, 300, 228), Scale: 4, Text: "---", Color: dimColor})

	in := t.AddScreen(IndoorWeather.String(), weather.DefaultBackground)
	in.Add(&gui.Widget{Name: WidgetTitle, Kind: gui.KindLabel, Rect: image.Rect(20, 20, 300, 59), Scale: 3, Text: "INDOOR", Color: dimColor})
	in.Add(&gui.Widget{Name: WidgetTemperature, Kind: gui.KindLabel, Rect: image.Rect(20, 90, 300, 155), Scale: 5, Text: "--", Color: labelColor})

	out := t.AddScreen(OutdoorWeather.String(), weather.DefaultBackground)
	out.Add(&gui.Widget{Name: WidgetTitle, Kind: gui.KindLabel, Rect: image.Rect(20, 12, 300, 38), Scale: 2, Text: "OUTDOOR", Color: labelColor})
	out.Add(&gui.Widget{Name: WidgetTemperature, Kind: gui.KindLabel, Rect: image.Rect(20, 50, 200, 115), Scale: 5, Text: "--", Color: labelColor})
	out.Add(&gui.Widget{Name: WidgetHumidity, Kind: gui.KindLabel, Rect: image.Rect(20, 130, 200, 169), Scale: 3, Text: "--", Color: labelColor})
	out.Add(&gui.Widget{Name: WidgetDescription, Kind: gui.KindLabel, Rect: image.Rect(20, 190, 300, 216), Scale: 2, Text: "Loading...", Color: labelColor})
	for _, icon := range weather.Icons {
		w := out.Add(&gui.Widget{Name: icon.String(), Kind: gui.KindIcon, Rect: image.Rect(216, 56, 300, 140), Text: icon.String(), Color: weather.Black, Fill: iconFills[icon]})
		t.SetHidden(w, true)
	}
}
