// Package filter decides whether an accepted push reaches the user.
package filter

import (
	"vehiclepush/internal/parser"
	"vehiclepush/internal/preferences"
)

// Decision reasons, also used as metric labels.
const (
	ReasonDuplicate         = "duplicate"
	ReasonInfoOtherVehicle  = "info_other_vehicle"
	ReasonAlertOtherVehicle = "alert_other_vehicle"
	ReasonNotify            = "notify"
)

type Input struct {
	IsNew             bool
	Kind              parser.Kind
	IsSelectedVehicle bool
	Prefs             preferences.Preferences
}

type Verdict struct {
	NotifyUser bool
	Reason     string
}

type rule struct {
	reason string
	drops  func(in Input) bool
}

// rules are evaluated in order; the first one that drops wins. The selected
// vehicle is never filtered by category.
var rules = []rule{
	{
		reason: ReasonDuplicate,
		drops:  func(in Input) bool { return !in.IsNew },
	},
	{
		reason: ReasonInfoOtherVehicle,
		drops: func(in Input) bool {
			return !in.IsSelectedVehicle && in.Prefs.FilterInfoForOtherVehicles && in.Kind.IsInfo()
		},
	},
	{
		reason: ReasonAlertOtherVehicle,
		drops: func(in Input) bool {
			return !in.IsSelectedVehicle && in.Prefs.FilterAlertForOtherVehicles && !in.Kind.IsInfo()
		},
	},
}

func Decide(in Input) Verdict {
	for _, r := range rules {
		if r.drops(in) {
			return Verdict{NotifyUser: false, Reason: r.reason}
		}
	}
	return Verdict{NotifyUser: true, Reason: ReasonNotify}
}

// ShouldBroadcast is independent of Decide: automation consumers get every
// new message, including those hidden from the user.
func ShouldBroadcast(isNew bool, prefs preferences.Preferences) bool {
	return isNew && prefs.BroadcastEnabled
}
