package weather

import (
	"image/color"
	"testing"

	"github.com/kjstillabower/deskclock/internal/models"
)

func TestStyleFor_ClearDay(t *testing.T) {
	desc := Classify(1000)
	if desc != models.Clear {
		t.Fatalf("Classify(1000) = %v, want Clear", desc)
	}
	got := StyleFor(desc, true)
	if got.Icon != IconSun {
		t.Errorf("Icon = %v, want sun", got.Icon)
	}
	if got.Background != SunnyBackground {
		t.Errorf("Background = %v, want sunny %v", got.Background, SunnyBackground)
	}
	if got.Text != Black {
		t.Errorf("Text = %v, want black", got.Text)
	}
}

func TestStyleFor_RainAnyDaytime(t *testing.T) {
	for _, day := range []bool{true, false} {
		desc := Classify(1063)
		if desc != models.Rainy {
			t.Fatalf("Classify(1063) = %v, want Rainy", desc)
		}
		got := StyleFor(desc, day)
		if got.Icon != IconRain {
			t.Errorf("day=%v: Icon = %v, want rain", day, got.Icon)
		}
		if got.Background != RainBackground {
			t.Errorf("day=%v: Background = %v, want rain %v", day, got.Background, RainBackground)
		}
		if got.Text != White {
			t.Errorf("day=%v: Text = %v, want white", day, got.Text)
		}
	}
}

// TestStyleFor_Contrast checks every style pairs light backgrounds with black
// text and dark backgrounds with white text.
func TestStyleFor_Contrast(t *testing.T) {
	descs := []models.Description{
		models.Unknown, models.Clear, models.Cloudy, models.Rainy,
		models.Foggy, models.Snowy, models.Stormy, models.Description(42),
	}
	for _, d := range descs {
		for _, day := range []bool{true, false} {
			s := StyleFor(d, day)
			wantText := White
			if luminance(s.Background) > 128 {
				wantText = Black
			}
			if s.Text != wantText {
				t.Errorf("StyleFor(%v, %v).Text = %v, want %v for background %v", d, day, s.Text, wantText, s.Background)
			}
		}
	}
}

func TestStyleFor_NightIcons(t *testing.T) {
	tests := []struct {
		desc models.Description
		want Icon
	}{
		{models.Clear, IconMoon},
		{models.Cloudy, IconCloudyNight},
		{models.Foggy, IconFog},
		{models.Stormy, IconRain},
		{models.Unknown, IconCloudyNight},
	}
	for _, tt := range tests {
		if got := StyleFor(tt.desc, false).Icon; got != tt.want {
			t.Errorf("StyleFor(%v, night).Icon = %v, want %v", tt.desc, got, tt.want)
		}
	}
}

func TestTimeOfDayBackground_FiveBands(t *testing.T) {
	seen := make(map[color.RGBA]bool)
	for h := 0; h < 24; h++ {
		seen[TimeOfDayBackground(h)] = true
	}
	if len(seen) != 5 {
		t.Errorf("distinct band colours = %d, want 5", len(seen))
	}
	if TimeOfDayBackground(4) == TimeOfDayBackground(5) {
		t.Error("hours 4 and 5 should fall in different bands")
	}
	if TimeOfDayBackground(-3) != TimeOfDayBackground(0) {
		t.Error("out-of-range hour should fall back to the night band")
	}
}

func luminance(c color.RGBA) int {
	return (299*int(c.R) + 587*int(c.G) + 114*int(c.B)) / 1000
}
