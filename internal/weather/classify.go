// Package weather maps vendor condition codes to descriptions and display styles.
//
// The condition-code table is the WeatherAPI.com table (codes 1000-1282).
// The older generic numeric-code table is intentionally not supported.
package weather

import "github.com/kjstillabower/deskclock/internal/models"

// codeRange is an inclusive condition-code range.
type codeRange struct {
	lo, hi int
	desc   models.Description
}

// conditionTable is checked in order; first match wins.
var conditionTable = []codeRange{
	{1000, 1000, models.Clear},  // sunny / clear
	{1003, 1009, models.Cloudy}, // partly cloudy, cloudy, overcast
	{1030, 1030, models.Foggy},  // mist
	{1063, 1063, models.Rainy},  // patchy rain
	{1066, 1069, models.Snowy},  // patchy snow, patchy sleet
	{1072, 1072, models.Rainy},  // patchy freezing drizzle
	{1087, 1087, models.Stormy}, // thundery outbreaks
	{1114, 1117, models.Snowy},  // blowing snow, blizzard
	{1135, 1147, models.Foggy},  // fog, freezing fog
	{1150, 1201, models.Rainy},  // drizzle through heavy freezing rain
	{1204, 1237, models.Snowy},  // sleet, snow, ice pellets
	{1240, 1246, models.Rainy},  // rain showers
	{1249, 1264, models.Snowy},  // sleet and snow showers, ice pellet showers
	{1273, 1282, models.Stormy}, // rain or snow with thunder
}

// Classify returns the description for a condition code. It is total: codes
// outside the table map to Unknown.
func Classify(code int) models.Description {
	for _, r := range conditionTable {
		if code >= r.lo && code <= r.hi {
			return r.desc
		}
	}
	return models.Unknown
}
