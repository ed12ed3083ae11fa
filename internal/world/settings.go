package world

// Mode selects the win condition and relation rules.
type Mode string

const (
	ModeFFA   Mode = "FFA"
	ModeTeams Mode = "TEAMS"
)

// Layout controls seating order in team matches.
type Layout string

const (
	LayoutTogether    Layout = "together"
	LayoutAlternating Layout = "alternating"
)

// Settings are the match-wide tuning knobs chosen in the lobby.
type Settings struct {
	Mode      Mode    `json:"mode" mapstructure:"mode"`
	GameSpeed float64 `json:"gameSpeed" mapstructure:"gameSpeed"`
	UnitCost  float64 `json:"unitCost" mapstructure:"unitCost"`
	GoldMult  float64 `json:"goldMult" mapstructure:"goldMult"`
	XPMult    float64 `json:"xpMult" mapstructure:"xpMult"`
	BaseHP    int     `json:"baseHp" mapstructure:"baseHp"`
	XPReq     float64 `json:"xpReq" mapstructure:"xpReq"`
	Layout    Layout  `json:"layout" mapstructure:"layout"`
}

// DefaultSettings mirrors the lobby defaults.
func DefaultSettings() Settings {
	return Settings{
		Mode:      ModeFFA,
		GameSpeed: 1,
		UnitCost:  1,
		GoldMult:  1,
		XPMult:    1,
		BaseHP:    2500,
		XPReq:     1,
		Layout:    LayoutAlternating,
	}
}

// Normalized replaces unset or invalid values with defaults.
func (s Settings) Normalized() Settings {
	def := DefaultSettings()
	if s.Mode != ModeFFA && s.Mode != ModeTeams {
		s.Mode = def.Mode
	}
	if s.GameSpeed <= 0 {
		s.GameSpeed = def.GameSpeed
	}
	if s.UnitCost <= 0 {
		s.UnitCost = def.UnitCost
	}
	if s.GoldMult <= 0 {
		s.GoldMult = def.GoldMult
	}
	if s.XPMult <= 0 {
		s.XPMult = def.XPMult
	}
	if s.BaseHP <= 0 {
		s.BaseHP = def.BaseHP
	}
	if s.XPReq <= 0 {
		s.XPReq = def.XPReq
	}
	if s.Layout != LayoutTogether && s.Layout != LayoutAlternating {
		s.Layout = def.Layout
	}
	return s
}
