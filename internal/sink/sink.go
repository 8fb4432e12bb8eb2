package sink

import (
	"context"
	"strings"
	"time"

	"vehiclepush/internal/constants"
	"vehiclepush/internal/parser"
	"vehiclepush/internal/vehicle"
)

// Launch target opened when the user taps a notification.
const LaunchTargetMain = "main"

// notificationID is shared by every push so a newer one replaces the
// previous tray entry.
const notificationID = 1

type LaunchAction struct {
	Target         string `json:"target"`
	OnNotification bool   `json:"on_notification"`
}

// SystemNotification is what the user sees in the tray.
type SystemNotification struct {
	ID         int          `json:"id"`
	IconKey    string       `json:"icon_key"`
	Title      string       `json:"title"`
	Body       string       `json:"body"`
	Kind       parser.Kind  `json:"kind"`
	VehicleID  string       `json:"vehicle_id"`
	Timestamp  time.Time    `json:"timestamp"`
	AutoCancel bool         `json:"auto_cancel"`
	Launch     LaunchAction `json:"launch"`
}

// BroadcastEvent is the payload handed to automation consumers. Field names
// follow the established msg_notify_* extras.
type BroadcastEvent struct {
	VehicleID    string      `json:"msg_notify_vehicleid"`
	VehicleLabel string      `json:"msg_notify_vehicle_label"`
	Origin       string      `json:"msg_notify_from"`
	Title        string      `json:"msg_notify_title"`
	Kind         parser.Kind `json:"msg_notify_type"`
	Text         string      `json:"msg_notify_text"`
	Time         string      `json:"msg_notify_time"`
}

type SystemNotifier interface {
	Notify(ctx context.Context, n SystemNotification) error
}

// EventBroadcaster publishes full events and payload-less refresh signals.
type EventBroadcaster interface {
	Emit(ctx context.Context, e BroadcastEvent) error
	Refresh(ctx context.Context) error
}

func NewSystemNotification(v vehicle.Vehicle, msg parser.Message, icons IconResolver) SystemNotification {
	return SystemNotification{
		ID:         notificationID,
		IconKey:    icons.Resolve(v.ImageKey),
		Title:      v.Title(),
		Body:       strings.ReplaceAll(msg.Text, "\r", "\n"),
		Kind:       msg.Kind,
		VehicleID:  v.ID,
		Timestamp:  msg.Timestamp,
		AutoCancel: true,
		Launch:     LaunchAction{Target: LaunchTargetMain, OnNotification: true},
	}
}

func NewBroadcastEvent(v vehicle.Vehicle, msg parser.Message) BroadcastEvent {
	return BroadcastEvent{
		VehicleID:    v.ID,
		VehicleLabel: v.Label,
		Origin:       msg.Origin,
		Title:        v.Title(),
		Kind:         msg.Kind,
		Text:         msg.Text,
		Time:         msg.Timestamp.UTC().Format(constants.TimestampLayout),
	}
}
