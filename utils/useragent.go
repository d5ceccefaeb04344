package utils

import (
	"strings"

	ua "github.com/mileusna/useragent"
)

// ParseUserAgent extracts useful information from a User-Agent string.
// The bot process sends its own client UA; the parsed form is stored on
// the session for diagnostics.
func ParseUserAgent(userAgent string) (client, os, device string) {
	if userAgent == "" {
		return "Unknown Client", "Unknown OS", "Server"
	}

	parsedUA := ua.Parse(userAgent)

	client = parsedUA.Name
	if client == "" {
		client = "Unknown Client"
	}

	os = parsedUA.OS
	if os == "" {
		os = "Unknown OS"
	}

	device = "Server"
	if parsedUA.Mobile {
		device = "Mobile"
	} else if parsedUA.Tablet {
		device = "Tablet"
	} else if parsedUA.Desktop {
		device = "Desktop"
	}

	return strings.TrimSpace(client), strings.TrimSpace(os), device
}

// DescribeUserAgent renders a one-line device description for session
// records.
func DescribeUserAgent(userAgent string) string {
	client, os, device := ParseUserAgent(userAgent)
	return client + " on " + os + " (" + device + ")"
}
