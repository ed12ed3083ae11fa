package logging

import "time"

type Config struct {
	EnabledSinks    []string
	BufferSize      int
	MinimumSeverity Severity
	// CategorySeverity overrides MinimumSeverity per event category.
	CategorySeverity map[string]Severity
	Fields           map[string]any
	JSON             JSONConfig
	Console          ConsoleConfig
	GELF             GELFConfig
	DropWarnInterval time.Duration
}

type JSONConfig struct {
	FilePath      string
	FlushInterval time.Duration
}

type ConsoleConfig struct {
	UseColor bool
}

// GELFConfig points the gelf sink at a Graylog UDP input.
type GELFConfig struct {
	Address string
	Host    string
}

func DefaultConfig() Config {
	return Config{
		EnabledSinks:     []string{"console"},
		BufferSize:       512,
		MinimumSeverity:  SeverityInfo,
		DropWarnInterval: 5 * time.Second,
		JSON: JSONConfig{
			FlushInterval: 2 * time.Second,
		},
		Console: ConsoleConfig{UseColor: true},
		// Per-hit combat events stay out of sinks even at debug level.
		CategorySeverity: map[string]Severity{CategoryCombat: SeverityInfo},
	}
}

func (c Config) HasSink(name string) bool {
	for _, s := range c.EnabledSinks {
		if s == name {
			return true
		}
	}
	return false
}

// Threshold is the minimum severity forwarded for category.
func (c Config) Threshold(category string) Severity {
	if s, ok := c.CategorySeverity[category]; ok {
		return s
	}
	return c.MinimumSeverity
}

func (c Config) CloneFields() map[string]any {
	if len(c.Fields) == 0 {
		return nil
	}
	cloned := make(map[string]any, len(c.Fields))
	for k, v := range c.Fields {
		cloned[k] = v
	}
	return cloned
}
