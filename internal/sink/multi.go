package sink

import (
	"context"
	"errors"
	"fmt"

	"vehiclepush/pkg/metrics"
)

// NamedBroadcaster labels a broadcaster for metrics and errors.
type NamedBroadcaster struct {
	Name        string
	Broadcaster EventBroadcaster
}

// MultiBroadcaster fans out to every target. One failing target does not
// stop the others; failures are joined into the returned error.
type MultiBroadcaster struct {
	targets []NamedBroadcaster
}

func NewMultiBroadcaster(targets ...NamedBroadcaster) *MultiBroadcaster {
	return &MultiBroadcaster{targets: targets}
}

func (m *MultiBroadcaster) Len() int {
	return len(m.targets)
}

func (m *MultiBroadcaster) Emit(ctx context.Context, e BroadcastEvent) error {
	return m.each(func(t NamedBroadcaster) error { return t.Broadcaster.Emit(ctx, e) })
}

func (m *MultiBroadcaster) Refresh(ctx context.Context) error {
	return m.each(func(t NamedBroadcaster) error { return t.Broadcaster.Refresh(ctx) })
}

func (m *MultiBroadcaster) each(fn func(NamedBroadcaster) error) error {
	var errs []error
	for _, t := range m.targets {
		if err := fn(t); err != nil {
			metrics.IncSinkDispatch(t.Name, "error")
			errs = append(errs, fmt.Errorf("%s: %w", t.Name, err))
			continue
		}
		metrics.IncSinkDispatch(t.Name, "ok")
	}
	return errors.Join(errs...)
}
