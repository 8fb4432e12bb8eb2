package preferences

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromValues(t *testing.T) {
	tests := []struct {
		name   string
		values map[string]string
		want   Preferences
	}{
		{
			name:   "empty",
			values: nil,
			want:   Preferences{},
		},
		{
			name: "all on",
			values: map[string]string{
				KeyBroadcastEnabled: "1",
				KeyFilterInfo:       "on",
				KeyFilterAlert:      "on",
			},
			want: Preferences{
				BroadcastEnabled:            true,
				FilterInfoForOtherVehicles:  true,
				FilterAlertForOtherVehicles: true,
			},
		},
		{
			name: "other values are off",
			values: map[string]string{
				KeyBroadcastEnabled: "true",
				KeyFilterInfo:       "ON",
				KeyFilterAlert:      "off",
			},
			want: Preferences{},
		},
		{
			name: "surrounding whitespace ignored",
			values: map[string]string{
				KeyBroadcastEnabled: " 1 ",
				KeyFilterAlert:      "on\n",
			},
			want: Preferences{BroadcastEnabled: true, FilterAlertForOtherVehicles: true},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FromValues(tt.values))
		})
	}
}

func TestPreferences_Values(t *testing.T) {
	p := Preferences{BroadcastEnabled: true, FilterAlertForOtherVehicles: true}
	assert.Equal(t, p, FromValues(p.Values()))
	assert.Equal(t, "off", p.Values()[KeyFilterInfo])
}

func TestStaticSource(t *testing.T) {
	src := NewStaticSource(map[string]string{KeyFilterInfo: "on"})
	prefs, err := src.Load(context.Background())
	require.NoError(t, err)
	assert.True(t, prefs.FilterInfoForOtherVehicles)
	assert.False(t, prefs.BroadcastEnabled)
}
