package vehicle

import (
	"context"

	"vehiclepush/internal/config"
	"vehiclepush/pkg/circuitbreaker"
	apperrors "vehiclepush/pkg/errors"
)

// CircuitBreakerRegistry guards a remote registry. Unknown vehicles are
// expected answers and do not count as failures.
type CircuitBreakerRegistry struct {
	registry Registry
	cb       *circuitbreaker.Wrapper
}

func NewCircuitBreakerRegistry(r Registry, cfg config.CircuitBreakerConfig) *CircuitBreakerRegistry {
	if !cfg.Enabled {
		return &CircuitBreakerRegistry{registry: r}
	}
	return &CircuitBreakerRegistry{
		registry: r,
		cb:       circuitbreaker.NewWrapper(circuitbreaker.FromSettings("vehicle-registry", cfg)),
	}
}

type lookupResult struct {
	vehicle Vehicle
	err     error
}

func (r *CircuitBreakerRegistry) GetVehicleByID(ctx context.Context, id string) (Vehicle, error) {
	if r.cb == nil {
		return r.registry.GetVehicleByID(ctx, id)
	}

	res, err := circuitbreaker.Execute(ctx, r.cb, func() (lookupResult, error) {
		v, err := r.registry.GetVehicleByID(ctx, id)
		if err != nil && apperrors.IsUnknownVehicle(err) {
			return lookupResult{err: err}, nil
		}
		return lookupResult{vehicle: v}, err
	})
	if err != nil {
		return Vehicle{}, err
	}
	return res.vehicle, res.err
}

func (r *CircuitBreakerRegistry) SelectedVehicleID(ctx context.Context) (string, error) {
	if r.cb == nil {
		return r.registry.SelectedVehicleID(ctx)
	}
	return circuitbreaker.Execute(ctx, r.cb, func() (string, error) {
		return r.registry.SelectedVehicleID(ctx)
	})
}

func (r *CircuitBreakerRegistry) State() string {
	if r.cb == nil {
		return "disabled"
	}
	return r.cb.State().String()
}
