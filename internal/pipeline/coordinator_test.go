package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vehiclepush/internal/config"
	"vehiclepush/internal/logger"
	"vehiclepush/internal/parser"
	"vehiclepush/internal/preferences"
	"vehiclepush/internal/sink"
	"vehiclepush/internal/store"
	"vehiclepush/internal/vehicle"
	apperrors "vehiclepush/pkg/errors"
)

type fakeNotifier struct {
	mu    sync.Mutex
	calls []sink.SystemNotification
	err   error
}

func (f *fakeNotifier) Notify(_ context.Context, n sink.SystemNotification) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, n)
	return f.err
}

func (f *fakeNotifier) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

type fakeBroadcaster struct {
	mu        sync.Mutex
	events    []sink.BroadcastEvent
	refreshes int
	err       error
}

func (f *fakeBroadcaster) Emit(_ context.Context, e sink.BroadcastEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, e)
	return f.err
}

func (f *fakeBroadcaster) Refresh(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.refreshes++
	return f.err
}

// flakyStore fails the first failures inserts.
type flakyStore struct {
	store.Store
	failures int
}

func (s *flakyStore) InsertIfNew(ctx context.Context, n store.Notification) (bool, error) {
	if s.failures > 0 {
		s.failures--
		return false, errors.New("disk full")
	}
	return s.Store.InsertIfNew(ctx, n)
}

type failingRegistry struct {
	vehicle.Registry
}

func (failingRegistry) GetVehicleByID(context.Context, string) (vehicle.Vehicle, error) {
	return vehicle.Vehicle{}, errors.New("connection reset")
}

type failingPreferences struct{}

func (failingPreferences) Load(context.Context) (preferences.Preferences, error) {
	return preferences.Preferences{}, errors.New("mongo down")
}

type fixture struct {
	coordinator *Coordinator
	store       *store.MemoryStore
	notifier    *fakeNotifier
	broadcaster *fakeBroadcaster
}

type fixtureOption func(*Deps)

func withPreferences(values map[string]string) fixtureOption {
	return func(d *Deps) { d.Preferences = preferences.NewStaticSource(values) }
}

func newFixture(t *testing.T, opts ...fixtureOption) *fixture {
	t.Helper()

	classifier, err := parser.NewRuleClassifier(nil, logger.NopLogger())
	require.NoError(t, err)

	f := &fixture{
		store:       store.NewMemoryStore(store.NewHasher("sha256"), 0, 0),
		notifier:    &fakeNotifier{},
		broadcaster: &fakeBroadcaster{},
	}
	deps := Deps{
		Parser: parser.New(classifier, logger.NopLogger()),
		Registry: vehicle.NewStaticRegistry(config.RegistryConfig{
			SelectedVehicleID: "V1",
			Vehicles: []config.VehicleConfig{
				{ID: "V1", Label: "Family car", ImageKey: "car_i3_white"},
				{ID: "V2", Label: "Van", ImageKey: "car_kangoo_blue"},
			},
		}),
		Store:       f.store,
		Notifier:    f.notifier,
		Broadcaster: f.broadcaster,
		Logger:      logger.NopLogger(),
	}
	for _, opt := range opts {
		opt(&deps)
	}

	f.coordinator, err = NewCoordinator(deps)
	require.NoError(t, err)
	return f
}

func (f *fixture) stored(t *testing.T) []store.Notification {
	t.Helper()
	list, err := f.store.List(context.Background(), 0)
	require.NoError(t, err)
	return list
}

func TestHandle_NewMessageNotifiesAndRefreshes(t *testing.T) {
	f := newFixture(t)

	d, err := f.coordinator.Handle(context.Background(), parser.RawMessage{
		Title: "V2", Type: "A", Message: "Door open\rrear", Time: "2026-03-14 08:00:00", Origin: "mqtt:vehicles/V2/push",
	})
	require.NoError(t, err)

	assert.Equal(t, Decision{Accepted: true, IsNew: true, NotifyUser: true, RefreshEmitted: true, Reason: "notify"}, d)
	require.Len(t, f.notifier.calls, 1)
	n := f.notifier.calls[0]
	assert.Equal(t, "V2 (Van)", n.Title)
	assert.Equal(t, "Door open\nrear", n.Body)
	assert.Equal(t, "map_car_kangoo", n.IconKey)
	assert.Empty(t, f.broadcaster.events)
	assert.Equal(t, 1, f.broadcaster.refreshes)

	stored := f.stored(t)
	require.Len(t, stored, 1)
	assert.Equal(t, store.Notification{
		Kind:      parser.KindAlert,
		Title:     "V2 (Van)",
		Text:      "Door open\rrear",
		Timestamp: time.Date(2026, 3, 14, 8, 0, 0, 0, time.UTC),
	}, stored[0])
}

func TestHandle_DuplicateReachesNoSink(t *testing.T) {
	f := newFixture(t, withPreferences(map[string]string{preferences.KeyBroadcastEnabled: "1"}))
	raw := parser.RawMessage{Title: "V1", Type: "I", Message: "Charging complete", Time: "2026-03-14 08:00:00"}

	_, err := f.coordinator.Handle(context.Background(), raw)
	require.NoError(t, err)

	raw.Time = "2026-03-14 09:15:00"
	d, err := f.coordinator.Handle(context.Background(), raw)
	require.NoError(t, err)

	assert.Equal(t, Decision{Accepted: true, Reason: "duplicate"}, d)
	assert.Equal(t, 1, f.notifier.count())
	assert.Len(t, f.broadcaster.events, 1)
	assert.Zero(t, f.broadcaster.refreshes)
	assert.Len(t, f.stored(t), 1)
}

func TestHandle_ValidationDropsBeforeStore(t *testing.T) {
	f := newFixture(t)

	for _, raw := range []parser.RawMessage{
		{Title: "V1", Type: "A"},
		{Type: "A", Message: "Door open"},
	} {
		d, err := f.coordinator.Handle(context.Background(), raw)
		require.Error(t, err)
		assert.True(t, apperrors.IsValidation(err))
		assert.True(t, apperrors.IsFatal(err))
		assert.Equal(t, Decision{Reason: ReasonInvalid}, d)
	}

	assert.Empty(t, f.stored(t))
	assert.Zero(t, f.notifier.count())
	assert.Zero(t, f.broadcaster.refreshes)
}

func TestHandle_UnknownVehicleDropped(t *testing.T) {
	f := newFixture(t, withPreferences(map[string]string{preferences.KeyBroadcastEnabled: "1"}))

	d, err := f.coordinator.Handle(context.Background(), parser.RawMessage{Title: "V9", Type: "A", Message: "Door open"})
	require.Error(t, err)
	assert.True(t, apperrors.IsUnknownVehicle(err))
	assert.False(t, d.Accepted)
	assert.Equal(t, ReasonUnknownVehicle, d.Reason)

	assert.Empty(t, f.stored(t))
	assert.Zero(t, f.notifier.count())
	assert.Empty(t, f.broadcaster.events)
}

func TestHandle_TimestampFallback(t *testing.T) {
	f := newFixture(t)

	_, err := f.coordinator.Handle(context.Background(), parser.RawMessage{
		Title: "V1", Type: "I", Message: "Parked", Time: "not-a-date",
	})
	require.NoError(t, err)

	stored := f.stored(t)
	require.Len(t, stored, 1)
	assert.WithinDuration(t, time.Now(), stored[0].Timestamp, 5*time.Second)
}

func TestHandle_FilterPrecedence(t *testing.T) {
	tests := []struct {
		name       string
		vehicleID  string
		wantNotify bool
		wantReason string
	}{
		{name: "info for other vehicle filtered", vehicleID: "V2", wantNotify: false, wantReason: "info_other_vehicle"},
		{name: "info for selected vehicle shown", vehicleID: "V1", wantNotify: true, wantReason: "notify"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, withPreferences(map[string]string{preferences.KeyFilterInfo: "on"}))

			d, err := f.coordinator.Handle(context.Background(), parser.RawMessage{
				Title: tt.vehicleID, Type: "I", Message: "Charging complete",
			})
			require.NoError(t, err)
			assert.True(t, d.IsNew)
			assert.Equal(t, tt.wantNotify, d.NotifyUser)
			assert.Equal(t, tt.wantReason, d.Reason)
			assert.Equal(t, tt.wantNotify, f.notifier.count() == 1)
		})
	}
}

func TestHandle_BroadcastIndependentOfFilter(t *testing.T) {
	f := newFixture(t, withPreferences(map[string]string{
		preferences.KeyBroadcastEnabled: "1",
		preferences.KeyFilterAlert:      "on",
	}))

	d, err := f.coordinator.Handle(context.Background(), parser.RawMessage{
		Title: "V2", Type: "A", Message: "Door open", Time: "2026-03-14 08:00:00", Origin: "kafka:vehicle_push",
	})
	require.NoError(t, err)

	assert.Equal(t, Decision{Accepted: true, IsNew: true, BroadcastEmitted: true, Reason: "alert_other_vehicle"}, d)
	assert.Zero(t, f.notifier.count())
	require.Len(t, f.broadcaster.events, 1)
	assert.Equal(t, sink.BroadcastEvent{
		VehicleID:    "V2",
		VehicleLabel: "Van",
		Origin:       "kafka:vehicle_push",
		Title:        "V2 (Van)",
		Kind:         parser.KindAlert,
		Text:         "Door open",
		Time:         "2026-03-14 08:00:00",
	}, f.broadcaster.events[0])
	assert.Zero(t, f.broadcaster.refreshes)
}

func TestHandle_BroadcastSuppressesRefresh(t *testing.T) {
	f := newFixture(t, withPreferences(map[string]string{preferences.KeyBroadcastEnabled: "1"}))

	d, err := f.coordinator.Handle(context.Background(), parser.RawMessage{Title: "V1", Type: "E", Message: "Charge error"})
	require.NoError(t, err)

	assert.True(t, d.NotifyUser)
	assert.True(t, d.BroadcastEmitted)
	assert.False(t, d.RefreshEmitted)
	assert.Equal(t, 1, f.notifier.count())
	assert.Len(t, f.broadcaster.events, 1)
	assert.Zero(t, f.broadcaster.refreshes)
}

func TestHandle_InferredKindDrivesFilter(t *testing.T) {
	f := newFixture(t, withPreferences(map[string]string{preferences.KeyFilterAlert: "on"}))

	d, err := f.coordinator.Handle(context.Background(), parser.RawMessage{Title: "V2", Message: "Theft alarm triggered"})
	require.NoError(t, err)
	assert.Equal(t, "alert_other_vehicle", d.Reason)
	assert.False(t, d.NotifyUser)

	stored := f.stored(t)
	require.Len(t, stored, 1)
	assert.Equal(t, parser.KindAlert, stored[0].Kind)
}

func TestHandle_StoreErrorAbortsWithoutDispatch(t *testing.T) {
	f := newFixture(t, withPreferences(map[string]string{preferences.KeyBroadcastEnabled: "1"}))
	f.coordinator.store = store.NewGuarded(&flakyStore{Store: f.store, failures: 1})

	d, err := f.coordinator.Handle(context.Background(), parser.RawMessage{Title: "V1", Type: "A", Message: "Door open"})
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrStoreUnavailable)
	assert.False(t, apperrors.IsFatal(err))
	assert.Equal(t, Decision{Reason: ReasonStoreError}, d)
	assert.Zero(t, f.notifier.count())
	assert.Empty(t, f.broadcaster.events)
	assert.Zero(t, f.broadcaster.refreshes)

	// same guard: a leaked lock would block here
	d, err = f.coordinator.Handle(context.Background(), parser.RawMessage{Title: "V1", Type: "A", Message: "Door open"})
	require.NoError(t, err)
	assert.True(t, d.IsNew)
}

func TestHandle_RegistryErrorIsNotFatal(t *testing.T) {
	f := newFixture(t, func(d *Deps) { d.Registry = failingRegistry{} })

	d, err := f.coordinator.Handle(context.Background(), parser.RawMessage{Title: "V1", Type: "A", Message: "Door open"})
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrServiceUnavailable)
	assert.ErrorContains(t, err, "connection reset")
	assert.False(t, apperrors.IsFatal(err))
	assert.Equal(t, Decision{Reason: ReasonRegistryError}, d)
	assert.Empty(t, f.stored(t))
	assert.Zero(t, f.notifier.count())
}

func TestHandle_SinkFailuresKeepInsert(t *testing.T) {
	f := newFixture(t)
	f.notifier.err = errors.New("webhook down")
	f.broadcaster.err = errors.New("bus down")

	d, err := f.coordinator.Handle(context.Background(), parser.RawMessage{Title: "V1", Type: "A", Message: "Door open"})
	require.NoError(t, err)
	assert.True(t, d.Accepted)
	assert.Equal(t, []string{"notify", "refresh"}, d.SinkFailures)
	assert.Len(t, f.stored(t), 1)
}

func TestHandle_PreferencesFailureUsesDefaults(t *testing.T) {
	f := newFixture(t, func(d *Deps) { d.Preferences = failingPreferences{} })

	d, err := f.coordinator.Handle(context.Background(), parser.RawMessage{Title: "V2", Type: "I", Message: "Parked"})
	require.NoError(t, err)
	assert.True(t, d.NotifyUser)
	assert.False(t, d.BroadcastEmitted)
}

func TestHandle_ConcurrentDuplicatesNotifyOnce(t *testing.T) {
	f := newFixture(t)
	const workers = 24

	var wg sync.WaitGroup
	decisions := make(chan Decision, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			d, err := f.coordinator.Handle(context.Background(), parser.RawMessage{
				Title:   "V1",
				Type:    "A",
				Message: "Door open",
				Time:    fmt.Sprintf("2026-03-14 08:00:%02d", i),
			})
			assert.NoError(t, err)
			decisions <- d
		}(i)
	}
	wg.Wait()
	close(decisions)

	newCount := 0
	for d := range decisions {
		if d.IsNew {
			newCount++
		}
	}
	assert.Equal(t, 1, newCount)
	assert.Equal(t, 1, f.notifier.count())
	assert.Len(t, f.stored(t), 1)
}

func TestNewCoordinator_RequiresDependencies(t *testing.T) {
	_, err := NewCoordinator(Deps{})
	assert.Error(t, err)
}
