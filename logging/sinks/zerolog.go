package sinks

import (
	"context"
	"io"

	"github.com/rs/zerolog"

	"coffeemon-arena/server/logging"
)

// Zerolog writes events as zerolog structured records.
type Zerolog struct {
	logger zerolog.Logger
}

func NewZerolog(w io.Writer) *Zerolog {
	if w == nil {
		w = io.Discard
	}
	return &Zerolog{logger: zerolog.New(w).With().Timestamp().Logger()}
}

func (s *Zerolog) Write(event logging.Event) error {
	var e *zerolog.Event
	switch event.Severity {
	case logging.SeverityDebug:
		e = s.logger.Debug()
	case logging.SeverityWarn:
		e = s.logger.Warn()
	case logging.SeverityError:
		e = s.logger.Error()
	default:
		e = s.logger.Info()
	}
	e = e.Str("type", string(event.Type)).
		Uint64("turn", event.Tick).
		Str("actor", formatEntity(event.Actor))
	if event.Category != "" {
		e = e.Str("category", event.Category)
	}
	if len(event.Targets) > 0 {
		targets := make([]string, 0, len(event.Targets))
		for _, t := range event.Targets {
			targets = append(targets, formatEntity(t))
		}
		e = e.Strs("targets", targets)
	}
	if event.Payload != nil {
		e = e.Interface("payload", event.Payload)
	}
	if len(event.Extra) > 0 {
		e = e.Fields(event.Extra)
	}
	if event.TraceID != "" {
		e = e.Str("traceId", event.TraceID)
	}
	if !event.Time.IsZero() {
		e = e.Time("eventTime", event.Time)
	}
	e.Send()
	return nil
}

func (s *Zerolog) Close(context.Context) error {
	return nil
}
