package whatsapp

import "strings"

const nationalMobileDigits = 10

// NormalizePhone reduces raw to the digits-only international form the Cloud
// API expects. Ten-digit national mobiles (leading 3) gain the country code;
// numbers that already carry it, and anything unrecognised, pass through as
// digits.
func NormalizePhone(raw, countryCode string) string {
	var b strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	digits := b.String()
	if countryCode == "" {
		return digits
	}
	if len(digits) == nationalMobileDigits && strings.HasPrefix(digits, "3") {
		return countryCode + digits
	}
	return digits
}

// DisplayPhone renders a normalized number with a leading "+" for humans.
func DisplayPhone(raw, countryCode string) string {
	digits := NormalizePhone(raw, countryCode)
	if digits == "" {
		return ""
	}
	return "+" + digits
}
