package world

// Engagement is what a unit is currently fighting. It is either a
// BaseEngagement or a UnitEngagement.
type Engagement interface {
	engagement()
}

// BaseEngagement targets a player's base.
type BaseEngagement struct {
	PlayerID string
	Radius   float64
}

// UnitEngagement targets an opposing unit.
type UnitEngagement struct {
	UnitID string
}

func (BaseEngagement) engagement() {}
func (UnitEngagement) engagement() {}
