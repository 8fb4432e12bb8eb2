// Package pipeline runs one inbound push through parsing, vehicle lookup,
// dedup, filtering and dispatch.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"vehiclepush/internal/filter"
	"vehiclepush/internal/logger"
	"vehiclepush/internal/parser"
	"vehiclepush/internal/preferences"
	"vehiclepush/internal/sink"
	"vehiclepush/internal/store"
	"vehiclepush/internal/vehicle"
	apperrors "vehiclepush/pkg/errors"
	"vehiclepush/pkg/logging"
	"vehiclepush/pkg/metrics"
	"vehiclepush/pkg/tracing"
)

const tracerName = "notify-pipeline"

// Reasons for messages that never reach the filter.
const (
	ReasonInvalid        = "invalid"
	ReasonUnknownVehicle = "unknown_vehicle"
	ReasonRegistryError  = "registry_error"
	ReasonStoreError     = "store_error"
)

// Decision is the outcome of one Handle call.
type Decision struct {
	Accepted         bool     `json:"accepted"`
	IsNew            bool     `json:"is_new"`
	NotifyUser       bool     `json:"notify_user"`
	BroadcastEmitted bool     `json:"broadcast_emitted"`
	RefreshEmitted   bool     `json:"refresh_emitted"`
	Reason           string   `json:"reason"`
	SinkFailures     []string `json:"sink_failures,omitempty"`
}

type Deps struct {
	Parser      *parser.Parser
	Registry    vehicle.Registry
	Store       store.Store
	Preferences preferences.Source
	Notifier    sink.SystemNotifier
	Broadcaster sink.EventBroadcaster
	Icons       sink.IconResolver
	Logger      logger.Logger
}

// Coordinator is safe for concurrent use. Only the store insert is
// serialized.
type Coordinator struct {
	parser      *parser.Parser
	registry    vehicle.Registry
	store       *store.Guarded
	prefs       preferences.Source
	notifier    sink.SystemNotifier
	broadcaster sink.EventBroadcaster
	icons       sink.IconResolver
	logger      logger.Logger
}

func NewCoordinator(deps Deps) (*Coordinator, error) {
	if deps.Parser == nil || deps.Registry == nil || deps.Store == nil {
		return nil, fmt.Errorf("parser, registry and store are required")
	}
	if deps.Notifier == nil || deps.Broadcaster == nil {
		return nil, fmt.Errorf("notifier and broadcaster are required")
	}

	guarded, ok := deps.Store.(*store.Guarded)
	if !ok {
		guarded = store.NewGuarded(deps.Store)
	}
	prefs := deps.Preferences
	if prefs == nil {
		prefs = preferences.NewStaticSource(nil)
	}
	icons := deps.Icons
	if icons == nil {
		icons = sink.PrefixIconResolver{}
	}
	log := deps.Logger
	if log == nil {
		log = logger.NopLogger()
	}

	return &Coordinator{
		parser:      deps.Parser,
		registry:    deps.Registry,
		store:       guarded,
		prefs:       prefs,
		notifier:    deps.Notifier,
		broadcaster: deps.Broadcaster,
		icons:       icons,
		logger:      log.Named("pipeline"),
	}, nil
}

// Handle processes one push. Validation and unknown-vehicle errors are
// fatal for the message (apperrors.IsFatal); a store error is not. Sink
// failures are reported in the decision only.
func (c *Coordinator) Handle(ctx context.Context, raw parser.RawMessage) (decision Decision, err error) {
	ctx, span := tracing.GetTracer(tracerName).Start(ctx, "pipeline.handle")
	defer span.End()

	if raw.Origin != "" {
		ctx = logging.WithOrigin(ctx, raw.Origin)
	}

	start := time.Now()
	defer func() {
		metrics.ObservePipelineDuration(time.Since(start), decision.Reason)
		span.SetAttributes(
			attribute.String("pipeline.reason", decision.Reason),
			attribute.Bool("pipeline.notify_user", decision.NotifyUser),
		)
		tracing.RecordError(span, err)
	}()

	msg, err := c.parser.Parse(ctx, raw)
	if err != nil {
		metrics.IncPushStage("parse", "rejected")
		c.logger.WarnwCtx(ctx, "Dropping invalid push", "error", err)
		return Decision{Reason: ReasonInvalid}, err
	}
	metrics.IncPushStage("parse", "ok")
	ctx = logging.WithVehicleID(ctx, msg.VehicleID)
	span.SetAttributes(
		attribute.String("vehicle.id", msg.VehicleID),
		attribute.String("push.kind", msg.Kind.Name()),
	)

	v, err := c.registry.GetVehicleByID(ctx, msg.VehicleID)
	if err != nil {
		if apperrors.IsUnknownVehicle(err) {
			metrics.IncPushStage("resolve", "unknown")
			c.logger.WarnwCtx(ctx, "Dropping push for unknown vehicle")
			return Decision{Reason: ReasonUnknownVehicle}, err
		}
		metrics.IncPushStage("resolve", "error")
		c.logger.ErrorwCtx(ctx, "Vehicle lookup failed", "error", err)
		return Decision{Reason: ReasonRegistryError}, apperrors.Wrap(err, apperrors.ErrServiceUnavailable).WithMessage("vehicle lookup failed")
	}
	metrics.IncPushStage("resolve", "ok")

	isNew, err := c.store.InsertIfNew(ctx, store.Notification{
		Kind:      msg.Kind,
		Title:     v.Title(),
		Text:      msg.Text,
		Timestamp: msg.Timestamp,
	})
	if err != nil {
		metrics.IncPushStage("store", "error")
		c.logger.ErrorwCtx(ctx, "Notification store insert failed", "error", err)
		return Decision{Reason: ReasonStoreError}, apperrors.Wrap(err, apperrors.ErrStoreUnavailable)
	}
	metrics.IncPushStage("store", storeStatus(isNew))

	decision = Decision{Accepted: true, IsNew: isNew}
	prefs := c.loadPreferences(ctx)

	if filter.ShouldBroadcast(isNew, prefs) {
		decision.BroadcastEmitted = true
		if err := c.broadcaster.Emit(ctx, sink.NewBroadcastEvent(v, msg)); err != nil {
			decision.SinkFailures = append(decision.SinkFailures, "broadcast")
			metrics.IncPushStage("broadcast", "error")
			c.logger.ErrorwCtx(ctx, "Broadcast failed", "error", err)
		} else {
			metrics.IncPushStage("broadcast", "ok")
		}
	}

	verdict := filter.Decide(filter.Input{
		IsNew:             isNew,
		Kind:              msg.Kind,
		IsSelectedVehicle: c.isSelected(ctx, v.ID),
		Prefs:             prefs,
	})
	metrics.IncFilterDecision(verdict.Reason)
	decision.Reason = verdict.Reason
	decision.NotifyUser = verdict.NotifyUser

	if !verdict.NotifyUser {
		c.logger.DebugwCtx(ctx, "Push filtered", "reason", verdict.Reason, "kind", msg.Kind.Name())
		return decision, nil
	}

	if err := c.notifier.Notify(ctx, sink.NewSystemNotification(v, msg, c.icons)); err != nil {
		decision.SinkFailures = append(decision.SinkFailures, "notify")
		metrics.IncPushStage("notify", "error")
		c.logger.ErrorwCtx(ctx, "System notification failed", "error", err)
	} else {
		metrics.IncPushStage("notify", "ok")
	}

	// A full broadcast already tells open UIs to reload.
	if !decision.BroadcastEmitted {
		decision.RefreshEmitted = true
		if err := c.broadcaster.Refresh(ctx); err != nil {
			decision.SinkFailures = append(decision.SinkFailures, "refresh")
			metrics.IncPushStage("refresh", "error")
			c.logger.WarnwCtx(ctx, "UI refresh signal failed", "error", err)
		} else {
			metrics.IncPushStage("refresh", "ok")
		}
	}

	c.logger.InfowCtx(ctx, "Push dispatched",
		"kind", msg.Kind.Name(),
		"broadcast", decision.BroadcastEmitted,
		"refresh", decision.RefreshEmitted,
	)
	return decision, nil
}

// List returns the newest stored notifications.
func (c *Coordinator) List(ctx context.Context, limit int) ([]store.Notification, error) {
	return c.store.List(ctx, limit)
}

func (c *Coordinator) loadPreferences(ctx context.Context) preferences.Preferences {
	prefs, err := c.prefs.Load(ctx)
	if err != nil {
		c.logger.WarnwCtx(ctx, "Preferences unavailable, using defaults", "error", err)
		return preferences.Preferences{}
	}
	return prefs
}

func (c *Coordinator) isSelected(ctx context.Context, vehicleID string) bool {
	selected, err := c.registry.SelectedVehicleID(ctx)
	if err != nil {
		c.logger.WarnwCtx(ctx, "Selected vehicle unavailable, treating push as other vehicle", "error", err)
		return false
	}
	return selected == vehicleID
}

func storeStatus(isNew bool) string {
	if isNew {
		return "new"
	}
	return "duplicate"
}
