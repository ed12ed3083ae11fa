package sinks

import (
	"context"
	"io"
	"time"

	"github.com/rs/zerolog"

	"age-of-war/server/logging"
)

// ConsoleSink renders gameplay events through a zerolog console writer.
type ConsoleSink struct {
	logger zerolog.Logger
}

func NewConsoleSink(w io.Writer, cfg logging.ConsoleConfig) *ConsoleSink {
	writer := zerolog.ConsoleWriter{Out: w, NoColor: !cfg.UseColor, TimeFormat: time.TimeOnly}
	return &ConsoleSink{logger: zerolog.New(writer)}
}

func (s *ConsoleSink) Write(event logging.Event) error {
	entry := s.logger.WithLevel(zerologLevel(event.Severity)).
		Time("time", event.Time).
		Str("type", string(event.Type)).
		Uint64("tick", event.Tick).
		Str("actor", formatEntity(event.Actor))
	if event.MatchID != "" {
		entry = entry.Str("match", event.MatchID)
	}
	if len(event.Targets) > 0 {
		targets := make([]string, 0, len(event.Targets))
		for _, target := range event.Targets {
			targets = append(targets, formatEntity(target))
		}
		entry = entry.Strs("targets", targets)
	}
	if event.Payload != nil {
		entry = entry.Interface("payload", event.Payload)
	}
	if len(event.Extra) > 0 {
		entry = entry.Fields(event.Extra)
	}
	entry.Msg(event.Category)
	return nil
}

func (s *ConsoleSink) Close(context.Context) error {
	return nil
}

func zerologLevel(sev logging.Severity) zerolog.Level {
	switch sev {
	case logging.SeverityDebug:
		return zerolog.DebugLevel
	case logging.SeverityWarn:
		return zerolog.WarnLevel
	case logging.SeverityError:
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

func formatEntity(ref logging.EntityRef) string {
	if ref.ID == "" {
		return string(ref.Kind)
	}
	if ref.Kind == "" {
		return ref.ID
	}
	return string(ref.Kind) + ":" + ref.ID
}
