package preferences

import (
	"context"
	"strings"
)

// Stored option keys and the values that switch them on.
const (
	KeyBroadcastEnabled = "option_broadcast_enabled"
	KeyFilterInfo       = "notifications_filter_info"
	KeyFilterAlert      = "notifications_filter_alert"

	BroadcastOn = "1"
	FilterOn    = "on"
)

// Preferences are the user options consulted per message.
type Preferences struct {
	BroadcastEnabled            bool
	FilterInfoForOtherVehicles  bool
	FilterAlertForOtherVehicles bool
}

// FromValues decodes stored option values. Missing keys and any value other
// than the "on" value leave the option disabled.
func FromValues(values map[string]string) Preferences {
	get := func(key string) string {
		return strings.TrimSpace(values[key])
	}
	return Preferences{
		BroadcastEnabled:            get(KeyBroadcastEnabled) == BroadcastOn,
		FilterInfoForOtherVehicles:  get(KeyFilterInfo) == FilterOn,
		FilterAlertForOtherVehicles: get(KeyFilterAlert) == FilterOn,
	}
}

// Values encodes p back into the stored representation.
func (p Preferences) Values() map[string]string {
	values := map[string]string{
		KeyBroadcastEnabled: "0",
		KeyFilterInfo:       "off",
		KeyFilterAlert:      "off",
	}
	if p.BroadcastEnabled {
		values[KeyBroadcastEnabled] = BroadcastOn
	}
	if p.FilterInfoForOtherVehicles {
		values[KeyFilterInfo] = FilterOn
	}
	if p.FilterAlertForOtherVehicles {
		values[KeyFilterAlert] = FilterOn
	}
	return values
}

// Source is the read contract for stored preferences.
type Source interface {
	Load(ctx context.Context) (Preferences, error)
}

// StaticSource serves preferences fixed at startup.
type StaticSource struct {
	prefs Preferences
}

func NewStaticSource(values map[string]string) *StaticSource {
	return &StaticSource{prefs: FromValues(values)}
}

func (s *StaticSource) Load(context.Context) (Preferences, error) {
	return s.prefs, nil
}
