package validation

import (
	"math"
	"strings"
)

// IsValidLatitude checks that a latitude is finite and within [-90, 90]
func IsValidLatitude(latitude float64) bool {
	return !math.IsNaN(latitude) && !math.IsInf(latitude, 0) && latitude >= -90 && latitude <= 90
}

// IsValidLongitude checks that a longitude is finite and within [-180, 180]
func IsValidLongitude(longitude float64) bool {
	return !math.IsNaN(longitude) && !math.IsInf(longitude, 0) && longitude >= -180 && longitude <= 180
}

// IsValidDayIndex checks a canonical day index (Monday = 0 ... Sunday = 6)
func IsValidDayIndex(day int) bool {
	return day >= 0 && day <= 6
}

// IsNotEmpty checks if string is not empty after trimming
func IsNotEmpty(s string) bool {
	return strings.TrimSpace(s) != ""
}

// TrimAndValidate trims string and validates it's not empty
func TrimAndValidate(s string) (string, bool) {
	trimmed := strings.TrimSpace(s)
	return trimmed, trimmed != ""
}
