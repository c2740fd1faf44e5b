package service

import (
	"strings"

	"github.com/ege-manyasli/manyasligida/internal/domain"
)

var botMarkers = []string{"bot", "crawler", "spider", "slurp", "curl/", "wget/"}

// DeviceTypeFromUserAgent buckets a User-Agent header into a device class.
func DeviceTypeFromUserAgent(ua string) domain.DeviceType {
	ua = strings.ToLower(strings.TrimSpace(ua))
	if ua == "" {
		return domain.DeviceUnknown
	}

	for _, marker := range botMarkers {
		if strings.Contains(ua, marker) {
			return domain.DeviceBot
		}
	}

	switch {
	case strings.Contains(ua, "ipad"), strings.Contains(ua, "tablet"):
		return domain.DeviceTablet
	// Android tablets omit "mobile" from the UA.
	case strings.Contains(ua, "android") && !strings.Contains(ua, "mobile"):
		return domain.DeviceTablet
	case strings.Contains(ua, "mobi"), strings.Contains(ua, "iphone"), strings.Contains(ua, "android"):
		return domain.DeviceMobile
	}

	return domain.DeviceDesktop
}
