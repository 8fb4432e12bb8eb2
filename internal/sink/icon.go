package sink

import "strings"

// IconResolver maps a vehicle image key to a notification icon key.
type IconResolver interface {
	Resolve(imageKey string) string
}

const (
	iconPrefix     = "map_"
	DefaultIconKey = "map_car_default"
)

// vehicleIcons groups image variants (colors) under one map icon.
var vehicleIcons = []struct {
	prefix string
	icon   string
}{
	{prefix: "car_imiev_", icon: "map_car_imiev"},
	{prefix: "car_i3_", icon: "map_car_i3"},
	{prefix: "car_smart_", icon: "map_car_smart"},
	{prefix: "car_kianiro_", icon: "map_car_kianiro_grey"},
	{prefix: "car_kangoo_", icon: "map_car_kangoo"},
}

// PrefixIconResolver is the default icon table.
type PrefixIconResolver struct{}

func (PrefixIconResolver) Resolve(imageKey string) string {
	imageKey = strings.TrimSpace(imageKey)
	if imageKey == "" {
		return DefaultIconKey
	}
	for _, vi := range vehicleIcons {
		if strings.HasPrefix(imageKey, vi.prefix) {
			return vi.icon
		}
	}
	return iconPrefix + imageKey
}
