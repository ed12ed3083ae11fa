package sinks

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/Graylog2/go-gelf/gelf"

	"age-of-war/server/logging"
)

// GELF ships events to a Graylog UDP input.
type GELF struct {
	writer *gelf.Writer
	host   string
}

// NewGELF dials the Graylog input at cfg.Address.
func NewGELF(cfg logging.GELFConfig) (*GELF, error) {
	writer, err := gelf.NewWriter(cfg.Address)
	if err != nil {
		return nil, fmt.Errorf("gelf writer %s: %w", cfg.Address, err)
	}
	writer.Facility = "age-of-war"
	host := cfg.Host
	if host == "" {
		host, _ = os.Hostname()
	}
	return &GELF{writer: writer, host: host}, nil
}

func (s *GELF) Write(event logging.Event) error {
	extra := map[string]interface{}{
		"_type":     string(event.Type),
		"_tick":     event.Tick,
		"_category": event.Category,
		"_actor":    formatEntity(event.Actor),
	}
	if event.MatchID != "" {
		extra["_match_id"] = event.MatchID
	}
	for k, v := range event.Extra {
		extra["_"+k] = v
	}
	full := ""
	if event.Payload != nil {
		if data, err := json.Marshal(event.Payload); err == nil {
			full = string(data)
		}
	}
	msg := &gelf.Message{
		Version:  "1.1",
		Host:     s.host,
		Short:    string(event.Type),
		Full:     full,
		TimeUnix: float64(event.Time.UnixNano()) / 1e9,
		Level:    syslogLevel(event.Severity),
		Facility: "age-of-war",
		Extra:    extra,
	}
	return s.writer.WriteMessage(msg)
}

func (s *GELF) Close(context.Context) error {
	return s.writer.Close()
}

func syslogLevel(sev logging.Severity) int32 {
	switch sev {
	case logging.SeverityDebug:
		return 7
	case logging.SeverityWarn:
		return 4
	case logging.SeverityError:
		return 3
	default:
		return 6
	}
}
