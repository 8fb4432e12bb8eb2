package vehicle

import (
	"context"

	"vehiclepush/internal/config"
)

// StaticRegistry serves the vehicles listed in configuration.
type StaticRegistry struct {
	vehicles map[string]Vehicle
	selected string
}

func NewStaticRegistry(cfg config.RegistryConfig) *StaticRegistry {
	vehicles := make(map[string]Vehicle, len(cfg.Vehicles))
	for _, v := range cfg.Vehicles {
		vehicles[v.ID] = Vehicle{ID: v.ID, Label: v.Label, ImageKey: v.ImageKey}
	}
	return &StaticRegistry{vehicles: vehicles, selected: cfg.SelectedVehicleID}
}

func (r *StaticRegistry) GetVehicleByID(_ context.Context, id string) (Vehicle, error) {
	v, ok := r.vehicles[id]
	if !ok {
		return Vehicle{}, unknownVehicle(id)
	}
	return v, nil
}

func (r *StaticRegistry) SelectedVehicleID(context.Context) (string, error) {
	return r.selected, nil
}
