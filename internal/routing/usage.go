package routing

import "fmt"

// Usage is a logical audio usage (what the audio is for). Each usage plays
// on exactly one physical stream, chosen by a Policy.
type Usage int

// Logical usages. The numbering follows the car audio manager so values
// read from attributes can be used directly.
const (
	UsageMusic Usage = iota
	UsageRadio
	UsageNavigationGuidance
	UsageVoiceCall
	UsageVoiceCommand
	UsageAlarm
	UsageNotification
	UsageSystemSound
	UsageSystemSafetyAlert
	UsageUnknown

	// usageCount bounds the routable usages above.
	usageCount
)

// Placeholder usages held by the arbiter's own focus listeners. They are
// never routed.
const (
	UsageCarServiceBottom   Usage = 100
	UsageCarServiceCarProxy Usage = 101
)

var usageNames = [usageCount]string{
	UsageMusic:              "media",
	UsageRadio:              "radio",
	UsageNavigationGuidance: "nav_guidance",
	UsageVoiceCall:          "call",
	UsageVoiceCommand:       "voice_command",
	UsageAlarm:              "alarm",
	UsageNotification:       "notification",
	UsageSystemSound:        "system",
	UsageSystemSafetyAlert:  "safety",
	UsageUnknown:            "unknown",
}

// String returns the configuration name of the usage.
func (u Usage) String() string {
	switch {
	case u.Routable():
		return usageNames[u]
	case u == UsageCarServiceBottom:
		return "carservice_bottom"
	case u == UsageCarServiceCarProxy:
		return "carservice_car_proxy"
	default:
		return fmt.Sprintf("usage(%d)", int(u))
	}
}

// Routable reports whether u can be mapped to a physical stream.
func (u Usage) Routable() bool {
	return u >= 0 && u < usageCount
}

// IsSentinel reports whether u belongs to one of the arbiter's placeholder
// listeners.
func (u Usage) IsSentinel() bool {
	return u == UsageCarServiceBottom || u == UsageCarServiceCarProxy
}

// ParseUsage converts a configuration name ("media", "call", ...) to a Usage.
func ParseUsage(name string) (Usage, error) {
	for u, n := range usageNames {
		if n == name {
			return Usage(u), nil
		}
	}
	return UsageUnknown, fmt.Errorf("%w: %q", ErrUnknownUsage, name)
}

// Usages returns every routable usage in numeric order.
func Usages() []Usage {
	out := make([]Usage, usageCount)
	for i := range out {
		out[i] = Usage(i)
	}
	return out
}
