package profile

import (
	"fmt"
	"math"
	"strconv"
	"time"
)

// BMI categories shown on the goal screen and the dashboard.
const (
	CategoryUnderweight = "Underweight"
	CategoryNormal      = "Normal weight"
	CategoryOverweight  = "Overweight"
	CategoryObese       = "Obese"
)

// ComputeBMI derives BMI (one decimal) and its category from height in
// centimetres and weight in kilograms. The two values are always produced
// together so they can never drift apart.
func ComputeBMI(heightCm, weightKg float64) (bmi string, category string, err error) {
	if heightCm <= 0 || weightKg <= 0 {
		return "", "", fmt.Errorf("height and weight must be positive")
	}
	heightM := heightCm / 100
	value := weightKg / (heightM * heightM)

	switch {
	case value < 18.5:
		category = CategoryUnderweight
	case value < 25:
		category = CategoryNormal
	case value < 30:
		category = CategoryOverweight
	default:
		category = CategoryObese
	}
	return strconv.FormatFloat(value, 'f', 1, 64), category, nil
}

// ComputeBMIFromStrings parses the goal form's free-text height/weight.
func ComputeBMIFromStrings(height, weight string) (bmi string, category string, err error) {
	h, err := strconv.ParseFloat(height, 64)
	if err != nil {
		return "", "", fmt.Errorf("parse height: %w", err)
	}
	w, err := strconv.ParseFloat(weight, 64)
	if err != nil {
		return "", "", fmt.Errorf("parse weight: %w", err)
	}
	return ComputeBMI(h, w)
}

// Banner is the membership-expiry banner state for the dashboard.
type Banner string

const (
	BannerNone    Banner = "none"
	BannerWarning Banner = "warning"
	BannerUrgent  Banner = "urgent"
	BannerExpired Banner = "expired"
)

// DaysRemaining returns the number of days until end, rounded up.
func DaysRemaining(end, now time.Time) int {
	return int(math.Ceil(end.Sub(now).Hours() / 24))
}

// MembershipBanner derives the banner policy from the membership end date.
// An unset or unparseable date yields no banner.
func MembershipBanner(endDate string, now time.Time) (Banner, int) {
	end, ok := parseDate(endDate)
	if !ok {
		return BannerNone, 0
	}
	days := DaysRemaining(end, now)
	switch {
	case end.Before(now):
		return BannerExpired, days
	case days == 1:
		return BannerUrgent, days
	case days > 1 && days <= 5:
		return BannerWarning, days
	default:
		return BannerNone, days
	}
}

func parseDate(value string) (time.Time, bool) {
	if value == "" {
		return time.Time{}, false
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, value); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
