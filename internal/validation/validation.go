// Package validation checks configuration values that end up in upstream
// queries or store keys.
package validation

import (
	"errors"
	"strings"
	"unicode"
)

// ErrLocationEmpty is returned when location is empty or whitespace-only after trim.
var ErrLocationEmpty = errors.New("location is required")

// ErrLocationTooShort is returned when location length is below the minimum.
var ErrLocationTooShort = errors.New("location too short")

// ErrLocationTooLong is returned when location length exceeds the maximum.
var ErrLocationTooLong = errors.New("location too long")

// ErrLocationInvalidChars is returned when location contains disallowed characters.
var ErrLocationInvalidChars = errors.New("location contains invalid characters")

// ErrDeviceNameInvalid is returned when a device name cannot be used in a
// memcached key.
var ErrDeviceNameInvalid = errors.New("device name must be 1-64 letters, digits, '-' or '_'")

// ValidateLocation trims the input, enforces length bounds (minLen, maxLen in runes),
// and restricts to the characters a WeatherAPI.com q parameter uses: letters
// (Unicode), digits, space, comma, hyphen, period (coordinates) and colon
// ("iata:DEL", "auto:ip"). Returns the trimmed string.
func ValidateLocation(input string, minLen, maxLen int) (string, error) {
	s := strings.TrimSpace(input)
	r := []rune(s)
	n := len(r)
	if n == 0 {
		return "", ErrLocationEmpty
	}
	if minLen > 0 && n < minLen {
		return "", ErrLocationTooShort
	}
	if maxLen > 0 && n > maxLen {
		return "", ErrLocationTooLong
	}
	for _, c := range r {
		if !isAllowedLocationRune(c) {
			return "", ErrLocationInvalidChars
		}
	}
	return s, nil
}

func isAllowedLocationRune(r rune) bool {
	if unicode.IsLetter(r) || unicode.IsNumber(r) {
		return true
	}
	switch r {
	case ' ', ',', '-', '.', ':':
		return true
	}
	return false
}

// ValidateDeviceName checks a panel name used in log fields and mirror keys.
func ValidateDeviceName(name string) error {
	if name == "" || len(name) > 64 {
		return ErrDeviceNameInvalid
	}
	for _, c := range name {
		if c > unicode.MaxASCII {
			return ErrDeviceNameInvalid
		}
		if !unicode.IsLetter(c) && !unicode.IsDigit(c) && c != '-' && c != '_' {
			return ErrDeviceNameInvalid
		}
	}
	return nil
}
