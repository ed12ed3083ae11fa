package sim

import (
	"github.com/rs/zerolog"

	"age-of-war/server/internal/telemetry"
	"age-of-war/server/internal/world"
	"age-of-war/server/logging"
)

// Commander is the validation entry point bots submit through.
type Commander interface {
	Apply(world.Action) (bool, string)
}

// Brain decides actions for a bot-controlled player once per tick.
type Brain interface {
	Think(w *world.World, p *world.Player, cmd Commander)
}

// Deps carries shared infrastructure dependencies required by the simulation engine.
type Deps struct {
	Logger    zerolog.Logger
	Publisher logging.Publisher
	Metrics   telemetry.Metrics
	Clock     logging.Clock
	Brain     Brain
}

func (d Deps) normalized() Deps {
	if d.Publisher == nil {
		d.Publisher = logging.NopPublisher()
	}
	if d.Metrics == nil {
		d.Metrics = telemetry.Nop()
	}
	if d.Clock == nil {
		d.Clock = logging.SystemClock{}
	}
	return d
}
