package vehicle

import (
	"context"
	"fmt"

	apperrors "vehiclepush/pkg/errors"
)

// Vehicle is a registered vehicle as the push pipeline sees it.
type Vehicle struct {
	ID       string `json:"id"`
	Label    string `json:"label"`
	ImageKey string `json:"image_key"`
}

// Title is the display title used for notifications: "{id} ({label})".
func (v Vehicle) Title() string {
	return fmt.Sprintf("%s (%s)", v.ID, v.Label)
}

// Registry resolves vehicles. GetVehicleByID returns an error matching
// apperrors.ErrUnknownVehicle when id is not registered.
type Registry interface {
	GetVehicleByID(ctx context.Context, id string) (Vehicle, error)
	SelectedVehicleID(ctx context.Context) (string, error)
}

func unknownVehicle(id string) error {
	return apperrors.ErrUnknownVehicle.WithDetail("vehicle_id", id)
}
