package audit

import (
	"context"
	"strings"
)

// Environment is the best-effort, non-authoritative description of where the
// client runs.
type Environment struct {
	Device   string
	Browser  string
	Location string
}

// EnvironmentProbe describes the runtime environment. The logger calls it at
// most once.
type EnvironmentProbe interface {
	Probe(ctx context.Context) Environment
}

// StaticProbe returns a fixed Environment.
type StaticProbe Environment

func (p StaticProbe) Probe(context.Context) Environment {
	return Environment(p)
}

// UserAgentProbe classifies a browser user-agent string. Location is copied
// verbatim; "Unknown" when empty.
type UserAgentProbe struct {
	UserAgent string
	Location  string
}

func (p UserAgentProbe) Probe(context.Context) Environment {
	loc := p.Location
	if loc == "" {
		loc = "Unknown"
	}
	return Environment{
		Device:   DeviceClass(p.UserAgent),
		Browser:  BrowserFamily(p.UserAgent),
		Location: loc,
	}
}

// DeviceClass returns "Tablet", "Mobile", or "Desktop".
func DeviceClass(ua string) string {
	s := strings.ToLower(ua)
	switch {
	case strings.Contains(s, "ipad"), strings.Contains(s, "tablet"):
		return "Tablet"
	case strings.Contains(s, "mobile"), strings.Contains(s, "android"), strings.Contains(s, "iphone"):
		return "Mobile"
	default:
		return "Desktop"
	}
}

// BrowserFamily returns the browser family named by ua. Order matters: Edge
// and Opera also advertise Chrome, and Chrome advertises Safari.
func BrowserFamily(ua string) string {
	switch {
	case strings.Contains(ua, "Edg/"):
		return "Edge"
	case strings.Contains(ua, "OPR/"), strings.Contains(ua, "Opera"):
		return "Opera"
	case strings.Contains(ua, "Firefox/"):
		return "Firefox"
	case strings.Contains(ua, "Chrome/"):
		return "Chrome"
	case strings.Contains(ua, "Safari/"):
		return "Safari"
	default:
		return "Unknown"
	}
}
