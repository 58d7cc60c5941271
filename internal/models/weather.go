package models

import "time"

// Description is the coarse weather classification shown on the outdoor screen.
type Description int

const (
	Unknown Description = iota
	Clear
	Cloudy
	Rainy
	Foggy
	Snowy
	Stormy
)

func (d Description) String() string {
	switch d {
	case Clear:
		return "Clear"
	case Cloudy:
		return "Cloudy"
	case Rainy:
		return "Rainy"
	case Foggy:
		return "Foggy"
	case Snowy:
		return "Snowy"
	case Stormy:
		return "Stormy"
	default:
		return "Unknown"
	}
}

// WeatherReading is one parsed response from the weather collaborator.
type WeatherReading struct {
	Temperature   int  `json:"temperature"`
	Humidity      int  `json:"humidity"`
	ConditionCode int  `json:"conditionCode"`
	IsDaytime     bool `json:"isDaytime"`
}

// WeatherSnapshot is the last-known-good weather state. Valid is false until
// the first successful fetch.
type WeatherSnapshot struct {
	Temperature   int         `json:"temperature"`
	Humidity      int         `json:"humidity"`
	ConditionCode int         `json:"conditionCode"`
	IsDaytime     bool        `json:"isDaytime"`
	Description   Description `json:"description"`
	FetchedAt     time.Time   `json:"fetchedAt"`
	Valid         bool        `json:"valid"`
}
