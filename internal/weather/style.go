package weather

import (
	"image/color"

	"github.com/kjstillabower/deskclock/internal/models"
)

// Icon identifies one of the fixed weather icons on the outdoor screen.
type Icon int

const (
	IconSun Icon = iota
	IconMoon
	IconCloud
	IconRain
	IconFog
	IconCloudyNight
)

// Icons lists every icon in widget order.
var Icons = []Icon{IconSun, IconMoon, IconCloud, IconRain, IconFog, IconCloudyNight}

func (i Icon) String() string {
	switch i {
	case IconSun:
		return "sun"
	case IconMoon:
		return "moon"
	case IconCloud:
		return "cloud"
	case IconRain:
		return "rain"
	case IconFog:
		return "fog"
	case IconCloudyNight:
		return "cloudy_night"
	default:
		return "unknown"
	}
}

var (
	Black = color.RGBA{0, 0, 0, 255}
	White = color.RGBA{255, 255, 255, 255}

	SunnyBackground       = color.RGBA{255, 200, 60, 255}
	ClearNightBackground  = color.RGBA{16, 24, 64, 255}
	CloudyBackground      = color.RGBA{176, 190, 200, 255}
	CloudyNightBackground = color.RGBA{44, 54, 70, 255}
	RainBackground        = color.RGBA{28, 52, 96, 255}
	FogBackground         = color.RGBA{200, 200, 196, 255}
	SnowBackground        = color.RGBA{224, 238, 250, 255}
	StormBackground       = color.RGBA{50, 30, 72, 255}
	DefaultBackground     = color.RGBA{40, 40, 40, 255}
)

// Style is the colour and icon selection for the outdoor weather screen.
type Style struct {
	Background color.RGBA
	Text       color.RGBA
	Icon       Icon
}

// StyleFor selects background, text colour and icon for a description and
// day/night flag. Light backgrounds get black text, dark ones white.
func StyleFor(desc models.Description, isDaytime bool) Style {
	switch desc {
	case models.Clear:
		if isDaytime {
			return Style{SunnyBackground, Black, IconSun}
		}
		return Style{ClearNightBackground, White, IconMoon}
	case models.Cloudy:
		if isDaytime {
			return Style{CloudyBackground, Black, IconCloud}
		}
		return Style{CloudyNightBackground, White, IconCloudyNight}
	case models.Rainy:
		return Style{RainBackground, White, IconRain}
	case models.Stormy:
		return Style{StormBackground, White, IconRain}
	case models.Foggy:
		return Style{FogBackground, Black, IconFog}
	case models.Snowy:
		if isDaytime {
			return Style{SnowBackground, Black, IconCloud}
		}
		return Style{SnowBackground, Black, IconCloudyNight}
	default:
		if isDaytime {
			return Style{DefaultBackground, White, IconCloud}
		}
		return Style{DefaultBackground, White, IconCloudyNight}
	}
}

// hourBand is a half-open hour range [from, to).
type hourBand struct {
	from, to int
	bg       color.RGBA
}

var timeOfDayBands = []hourBand{
	{0, 5, color.RGBA{10, 12, 36, 255}},     // night
	{5, 9, color.RGBA{255, 140, 90, 255}},   // dawn
	{9, 16, color.RGBA{60, 150, 230, 255}},  // day
	{16, 19, color.RGBA{230, 110, 50, 255}}, // dusk
	{19, 24, color.RGBA{36, 28, 80, 255}},   // evening
}

// TimeOfDayBackground returns the clock screen background for an hour (0-23).
// Out-of-range hours fall back to the night colour.
func TimeOfDayBackground(hour int) color.RGBA {
	for _, b := range timeOfDayBands {
		if hour >= b.from && hour < b.to {
			return b.bg
		}
	}
	return timeOfDayBands[0].bg
}
