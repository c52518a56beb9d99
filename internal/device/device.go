// Package device derives the device and network context recorded on a
// session: coarse user-agent classification, IP normalization and an
// optional geolocation lookup. Everything here is best-effort; a session is
// always created even when every field resolves to Unknown.
package device

import (
	"context"
	"net"
	"strings"

	"github.com/hyfata/agora-auth/domain"
)

// Unknown is the fallback for any attribute that cannot be resolved.
const Unknown = "Unknown"

// GeoLocator resolves an IP to a coarse, human-readable location.
// Implementations wrap an external GeoIP database or service.
type GeoLocator interface {
	Location(ctx context.Context, ip string) (string, bool)
}

// Resolver builds the DeviceContext attached to new sessions. Geo may be
// nil, in which case location stays Unknown.
type Resolver struct {
	Geo GeoLocator
}

// Resolve implements services.DeviceResolver.
func (r *Resolver) Resolve(ctx context.Context, userAgent, ip string) domain.DeviceContext {
	info := Detect(userAgent)
	normalized := NormalizeIP(ip)

	location := Unknown
	if r.Geo != nil {
		if loc, ok := r.Geo.Location(ctx, normalized); ok {
			location = loc
		}
	}

	return domain.DeviceContext{
		DeviceType: info.Type,
		DeviceName: info.Name,
		IPAddress:  normalized,
		Location:   location,
		UserAgent:  userAgent,
	}
}

// Info is a coarse classification of the client device.
type Info struct {
	Type string // Mobile, Tablet, Desktop or Unknown
	Name string // OS/browser summary, e.g. "Android / Chrome"
}

// Detect classifies a User-Agent header. This is intentionally shallow:
// the session screen needs "iPhone vs. Desktop", not full UA parsing.
func Detect(userAgent string) Info {
	if userAgent == "" {
		return Info{Type: Unknown, Name: Unknown}
	}

	ua := strings.ToLower(userAgent)

	deviceType := "Desktop"
	switch {
	case strings.Contains(ua, "ipad") || strings.Contains(ua, "tablet"):
		deviceType = "Tablet"
	case strings.Contains(ua, "mobile") || strings.Contains(ua, "iphone") || strings.Contains(ua, "android"):
		deviceType = "Mobile"
	}

	os := Unknown
	switch {
	case strings.Contains(ua, "iphone") || strings.Contains(ua, "ipad") || strings.Contains(ua, "ios"):
		os = "iOS"
	case strings.Contains(ua, "android"):
		os = "Android"
	case strings.Contains(ua, "windows"):
		os = "Windows"
	case strings.Contains(ua, "mac os") || strings.Contains(ua, "macintosh"):
		os = "macOS"
	case strings.Contains(ua, "linux"):
		os = "Linux"
	}

	browser := Unknown
	switch {
	case strings.Contains(ua, "edg/"):
		browser = "Edge"
	case strings.Contains(ua, "chrome"):
		browser = "Chrome"
	case strings.Contains(ua, "safari"):
		browser = "Safari"
	case strings.Contains(ua, "firefox"):
		browser = "Firefox"
	}

	return Info{Type: deviceType, Name: os + " / " + browser}
}

// NormalizeIP strips any port from the address and maps the IPv6 loopback
// onto its IPv4 form so local sessions group together.
func NormalizeIP(addr string) string {
	if addr == "" {
		return Unknown
	}

	if host, _, err := net.SplitHostPort(addr); err == nil {
		addr = host
	}

	ip := net.ParseIP(addr)
	if ip == nil {
		return addr
	}
	if ip.IsLoopback() {
		return "127.0.0.1"
	}
	return ip.String()
}
