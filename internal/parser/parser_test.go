package parser

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vehiclepush/internal/config"
	"vehiclepush/internal/logger"
	apperrors "vehiclepush/pkg/errors"
)

var fixedNow = time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)

func newTestParser(t *testing.T) *Parser {
	t.Helper()
	classifier, err := NewRuleClassifier(nil, logger.NopLogger())
	require.NoError(t, err)
	return New(classifier, logger.NopLogger(), WithClock(func() time.Time { return fixedNow }))
}

func TestParse(t *testing.T) {
	p := newTestParser(t)

	tests := []struct {
		name          string
		raw           RawMessage
		wantKind      Kind
		wantInferred  bool
		wantTimestamp time.Time
		wantFallback  bool
	}{
		{
			name:          "explicit alert",
			raw:           RawMessage{Title: "V1", Type: "A", Message: "Vehicle moved", Time: "2026-03-14 08:00:01"},
			wantKind:      KindAlert,
			wantTimestamp: time.Date(2026, 3, 14, 8, 0, 1, 0, time.UTC),
		},
		{
			name:          "lower case code",
			raw:           RawMessage{Title: "V1", Type: "e", Message: "whatever", Time: "2026-03-14 08:00:01"},
			wantKind:      KindError,
			wantTimestamp: time.Date(2026, 3, 14, 8, 0, 1, 0, time.UTC),
		},
		{
			name:          "missing type inferred alert",
			raw:           RawMessage{Title: "V1", Message: "Theft ALARM triggered", Time: "2026-03-14 08:00:01"},
			wantKind:      KindAlert,
			wantInferred:  true,
			wantTimestamp: time.Date(2026, 3, 14, 8, 0, 1, 0, time.UTC),
		},
		{
			name:          "unknown type inferred from text",
			raw:           RawMessage{Title: "V1", Type: "X", Message: "Charge failed", Time: "2026-03-14 08:00:01"},
			wantKind:      KindError,
			wantInferred:  true,
			wantTimestamp: time.Date(2026, 3, 14, 8, 0, 1, 0, time.UTC),
		},
		{
			name:          "no keyword defaults to info",
			raw:           RawMessage{Title: "V1", Message: "Charging stopped at 80%"},
			wantKind:      KindInfo,
			wantInferred:  true,
			wantTimestamp: fixedNow,
			wantFallback:  true,
		},
		{
			name:          "malformed time falls back to receipt time",
			raw:           RawMessage{Title: "V1", Type: "I", Message: "hello", Time: "not-a-date"},
			wantKind:      KindInfo,
			wantTimestamp: fixedNow,
			wantFallback:  true,
		},
		{
			name:          "iso time is rejected",
			raw:           RawMessage{Title: "V1", Type: "I", Message: "hello", Time: "2026-03-14T08:00:01Z"},
			wantKind:      KindInfo,
			wantTimestamp: fixedNow,
			wantFallback:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg, err := p.Parse(context.Background(), tt.raw)
			require.NoError(t, err)

			assert.Equal(t, "V1", msg.VehicleID)
			assert.Equal(t, tt.raw.Message, msg.Text)
			assert.Equal(t, tt.wantKind, msg.Kind)
			assert.Equal(t, tt.wantInferred, msg.KindInferred)
			assert.True(t, tt.wantTimestamp.Equal(msg.Timestamp), "got %s", msg.Timestamp)
			assert.Equal(t, time.UTC, msg.Timestamp.Location())
			assert.Equal(t, tt.wantFallback, msg.TimestampFallback)
		})
	}
}

func TestParse_Validation(t *testing.T) {
	p := newTestParser(t)

	tests := []struct {
		name      string
		raw       RawMessage
		wantField string
	}{
		{name: "missing title", raw: RawMessage{Message: "hi"}, wantField: FieldTitle},
		{name: "blank title", raw: RawMessage{Title: "  ", Message: "hi"}, wantField: FieldTitle},
		{name: "missing message", raw: RawMessage{Title: "V1"}, wantField: FieldMessage},
		{name: "blank message", raw: RawMessage{Title: "V1", Message: "\r\n"}, wantField: FieldMessage},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := p.Parse(context.Background(), tt.raw)
			require.Error(t, err)
			assert.True(t, apperrors.IsValidation(err))

			var appErr *apperrors.Error
			require.ErrorAs(t, err, &appErr)
			assert.Equal(t, tt.wantField, appErr.Details["field"])
		})
	}
}

func TestParse_NormalizesIDAndType(t *testing.T) {
	p := newTestParser(t)

	msg, err := p.Parse(context.Background(), RawMessage{Title: " V1 ", Type: "i", Message: " Parked ", Time: "2026-03-14 08:00:01"})
	require.NoError(t, err)
	assert.Equal(t, "V1", msg.VehicleID)
	assert.Equal(t, KindInfo, msg.Kind)
	assert.False(t, msg.KindInferred)
	assert.Equal(t, " Parked ", msg.Text, "text is kept verbatim")
}

func TestRawFromFields(t *testing.T) {
	raw := RawFromFields(map[string]string{
		"title":   "V7",
		"type":    "I",
		"message": "Battery full",
		"time":    "2026-01-01 00:00:00",
		"extra":   "ignored",
	}, "mqtt:vehicles/V7/push")

	assert.Equal(t, RawMessage{
		Title:   "V7",
		Type:    "I",
		Message: "Battery full",
		Time:    "2026-01-01 00:00:00",
		Origin:  "mqtt:vehicles/V7/push",
	}, raw)
}

func TestRuleClassifier(t *testing.T) {
	c, err := NewRuleClassifier(nil, logger.NopLogger())
	require.NoError(t, err)
	assert.Equal(t, len(DefaultRules), c.RuleCount())

	tests := []struct {
		text string
		want Kind
	}{
		{text: "Vehicle alarm triggered", want: KindAlert},
		{text: "12V battery WARNING", want: KindAlert},
		{text: "Charge interrupted: error 42", want: KindError},
		{text: "Module fault detected", want: KindError},
		{text: "Charging complete", want: KindInfo},
		{text: "Alarm system error", want: KindInfo},
		{text: "", want: KindInfo},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			assert.Equal(t, tt.want, c.Classify(context.Background(), "V1", tt.text))
		})
	}
}

func TestRuleClassifier_Reload(t *testing.T) {
	c, err := NewRuleClassifier(nil, logger.NopLogger())
	require.NoError(t, err)

	err = c.Reload([]config.ClassificationRule{{Name: "bad", Kind: "A", Expression: "text.size()"}})
	require.Error(t, err)
	assert.Equal(t, len(DefaultRules), c.RuleCount(), "failed reload keeps previous rules")

	err = c.Reload([]config.ClassificationRule{{Name: "bad kind", Kind: "Z", Expression: "true"}})
	require.Error(t, err)

	err = c.Reload([]config.ClassificationRule{
		{Name: "doors", Kind: "A", Expression: `text.contains("door")`},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, c.RuleCount())
	assert.Equal(t, KindAlert, c.Classify(context.Background(), "V1", "Door opened"))
	assert.Equal(t, KindInfo, c.Classify(context.Background(), "V1", "Charge error"))
}

func TestParseKind(t *testing.T) {
	for code, want := range map[string]Kind{"A": KindAlert, "i": KindInfo, " E ": KindError} {
		got, ok := ParseKind(code)
		assert.True(t, ok)
		assert.Equal(t, want, got)
	}
	_, ok := ParseKind("")
	assert.False(t, ok)
	assert.Equal(t, "alert", KindAlert.Name())
	assert.True(t, KindInfo.IsInfo())
}
