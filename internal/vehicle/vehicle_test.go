package vehicle

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vehiclepush/internal/config"
	apperrors "vehiclepush/pkg/errors"
)

func testRegistryConfig() config.RegistryConfig {
	return config.RegistryConfig{
		Driver:            "static",
		SelectedVehicleID: "V1",
		Vehicles: []config.VehicleConfig{
			{ID: "V1", Label: "Family car", ImageKey: "car_i3_white"},
			{ID: "V2", Label: "Van", ImageKey: "car_kangoo_blue"},
		},
	}
}

func TestVehicle_Title(t *testing.T) {
	assert.Equal(t, "V1 (Family car)", Vehicle{ID: "V1", Label: "Family car"}.Title())
}

func TestStaticRegistry(t *testing.T) {
	r := NewStaticRegistry(testRegistryConfig())
	ctx := context.Background()

	v, err := r.GetVehicleByID(ctx, "V2")
	require.NoError(t, err)
	assert.Equal(t, Vehicle{ID: "V2", Label: "Van", ImageKey: "car_kangoo_blue"}, v)

	_, err = r.GetVehicleByID(ctx, "V404")
	require.Error(t, err)
	assert.True(t, apperrors.IsUnknownVehicle(err))
	assert.True(t, apperrors.IsFatal(err))

	selected, err := r.SelectedVehicleID(ctx)
	require.NoError(t, err)
	assert.Equal(t, "V1", selected)
}

type flakyRegistry struct {
	calls int
	err   error
}

func (f *flakyRegistry) GetVehicleByID(_ context.Context, id string) (Vehicle, error) {
	f.calls++
	if f.err != nil {
		return Vehicle{}, f.err
	}
	return Vehicle{}, unknownVehicle(id)
}

func (f *flakyRegistry) SelectedVehicleID(context.Context) (string, error) {
	return "", f.err
}

func breakerConfig() config.CircuitBreakerConfig {
	return config.CircuitBreakerConfig{
		Enabled:      true,
		MaxRequests:  1,
		Interval:     time.Minute,
		Timeout:      time.Minute,
		FailureRatio: 0.5,
		MinRequests:  2,
	}
}

func TestCircuitBreakerRegistry_UnknownVehicleDoesNotTrip(t *testing.T) {
	inner := &flakyRegistry{}
	r := NewCircuitBreakerRegistry(inner, breakerConfig())

	for i := 0; i < 5; i++ {
		_, err := r.GetVehicleByID(context.Background(), "nope")
		require.Error(t, err)
		assert.True(t, apperrors.IsUnknownVehicle(err))
	}
	assert.Equal(t, "closed", r.State())
	assert.Equal(t, 5, inner.calls)
}

func TestCircuitBreakerRegistry_Trips(t *testing.T) {
	inner := &flakyRegistry{err: errors.New("connection reset")}
	r := NewCircuitBreakerRegistry(inner, breakerConfig())

	for i := 0; i < 2; i++ {
		_, err := r.GetVehicleByID(context.Background(), "V1")
		require.Error(t, err)
	}
	assert.Equal(t, "open", r.State())

	_, err := r.GetVehicleByID(context.Background(), "V1")
	require.Error(t, err)
	assert.Equal(t, 2, inner.calls)
}

func TestCircuitBreakerRegistry_Disabled(t *testing.T) {
	r := NewCircuitBreakerRegistry(NewStaticRegistry(testRegistryConfig()), config.CircuitBreakerConfig{})
	assert.Equal(t, "disabled", r.State())

	v, err := r.GetVehicleByID(context.Background(), "V1")
	require.NoError(t, err)
	assert.Equal(t, "Family car", v.Label)
}
