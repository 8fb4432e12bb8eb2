package parser

import (
	"context"
	"strings"
	"time"

	"vehiclepush/internal/constants"
	"vehiclepush/internal/logger"
	apperrors "vehiclepush/pkg/errors"
)

// Push field names as sent by the vehicle server.
const (
	FieldTitle   = "title"
	FieldType    = "type"
	FieldMessage = "message"
	FieldTime    = "time"
)

// RawMessage is an inbound push before validation. Title carries the
// vehicle id.
type RawMessage struct {
	Title   string `json:"title"`
	Type    string `json:"type,omitempty"`
	Message string `json:"message"`
	Time    string `json:"time,omitempty"`
	Origin  string `json:"-"`
}

func RawFromFields(fields map[string]string, origin string) RawMessage {
	return RawMessage{
		Title:   fields[FieldTitle],
		Type:    fields[FieldType],
		Message: fields[FieldMessage],
		Time:    fields[FieldTime],
		Origin:  origin,
	}
}

// Message is a validated, normalized push.
type Message struct {
	VehicleID         string
	Kind              Kind
	KindInferred      bool
	Text              string
	Timestamp         time.Time
	TimestampFallback bool
	Origin            string
}

type Parser struct {
	classifier Classifier
	now        func() time.Time
	logger     logger.Logger
}

type Option func(*Parser)

// WithClock overrides the receipt-time source.
func WithClock(now func() time.Time) Option {
	return func(p *Parser) {
		p.now = now
	}
}

func New(classifier Classifier, log logger.Logger, opts ...Option) *Parser {
	p := &Parser{
		classifier: classifier,
		now:        time.Now,
		logger:     log,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Parse validates raw and fills in the kind and timestamp when they are
// missing or unusable. Only a missing vehicle id or text is an error; a
// blank value counts as missing. The vehicle id is trimmed, the text is not.
func (p *Parser) Parse(ctx context.Context, raw RawMessage) (Message, error) {
	vehicleID := strings.TrimSpace(raw.Title)
	if vehicleID == "" {
		return Message{}, apperrors.ErrValidation.
			WithMessage("title (vehicle id) is required").
			WithDetail("field", FieldTitle)
	}
	if strings.TrimSpace(raw.Message) == "" {
		return Message{}, apperrors.ErrValidation.
			WithMessage("message text is required").
			WithDetail("field", FieldMessage)
	}

	msg := Message{
		VehicleID: vehicleID,
		Text:      raw.Message,
		Origin:    raw.Origin,
	}

	kind, ok := ParseKind(raw.Type)
	if !ok {
		if raw.Type != "" {
			p.logger.DebugwCtx(ctx, "Unknown message type, inferring from text", "type", raw.Type)
		}
		kind = p.classifier.Classify(ctx, vehicleID, raw.Message)
		msg.KindInferred = true
	}
	msg.Kind = kind

	ts, err := time.ParseInLocation(constants.TimestampLayout, strings.TrimSpace(raw.Time), time.UTC)
	if err != nil {
		p.logger.DebugwCtx(ctx, "Unparseable push timestamp, using receipt time", "time", raw.Time)
		ts = p.now().UTC()
		msg.TimestampFallback = true
	}
	msg.Timestamp = ts

	return msg, nil
}
