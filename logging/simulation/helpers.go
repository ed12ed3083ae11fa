package simulation

import (
	"context"

	"age-of-war/server/logging"
)

const (
	// EventTickBudgetOverrun is emitted when a frame's tick batch exceeds its wall budget.
	EventTickBudgetOverrun logging.EventType = "simulation.tick_budget_overrun"
	// EventBacklogClamped is emitted when the accumulator hits its backlog cap.
	EventBacklogClamped logging.EventType = "simulation.backlog_clamped"
)

// TickBudgetOverrunPayload captures timing details for a budget breach.
type TickBudgetOverrunPayload struct {
	DurationMillis int64   `json:"durationMillis"`
	BudgetMillis   int64   `json:"budgetMillis"`
	Ratio          float64 `json:"ratio"`
	Ticks          int     `json:"ticks"`
}

// BacklogClampedPayload reports discarded simulated time.
type BacklogClampedPayload struct {
	DiscardedSeconds float64 `json:"discardedSeconds"`
}

// TickBudgetOverrun publishes a warning when a frame overruns its budget.
func TickBudgetOverrun(ctx context.Context, pub logging.Publisher, tick uint64, payload TickBudgetOverrunPayload) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventTickBudgetOverrun,
		Tick:     tick,
		Actor:    logging.EntityRef{Kind: logging.EntityKindMatch},
		Severity: logging.SeverityWarn,
		Category: "simulation",
		Payload:  payload,
	})
}

// BacklogClamped publishes dropped catch-up time.
func BacklogClamped(ctx context.Context, pub logging.Publisher, tick uint64, payload BacklogClampedPayload) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventBacklogClamped,
		Tick:     tick,
		Actor:    logging.EntityRef{Kind: logging.EntityKindMatch},
		Severity: logging.SeverityWarn,
		Category: "simulation",
		Payload:  payload,
	})
}
