package replication

import "strings"

// Profile selects the snapshot cadence and drift tolerance for a transport.
type Profile string

const (
	// ProfileLocal is a same-machine or LAN link.
	ProfileLocal Profile = "local"
	// ProfilePeer is a direct peer link over the internet.
	ProfilePeer Profile = "peer"
	// ProfileRelay is a metered or backhauled relay path.
	ProfileRelay Profile = "relay"
	// ProfileDefault applies when the transport is unknown.
	ProfileDefault Profile = "default"
)

// Tuning is the per-profile snapshot interval (seconds) and the unit drift
// beyond which a client snaps a mirror to the host position.
type Tuning struct {
	Interval       float64
	DriftThreshold float64
}

var tunings = map[Profile]Tuning{
	ProfileLocal:   {Interval: 0.05, DriftThreshold: 20},
	ProfilePeer:    {Interval: 0.2, DriftThreshold: 50},
	ProfileRelay:   {Interval: 1.0, DriftThreshold: 100},
	ProfileDefault: {Interval: 0.8, DriftThreshold: 100},
}

// ParseProfile maps a config string onto a known profile.
func ParseProfile(value string) Profile {
	p := Profile(strings.ToLower(strings.TrimSpace(value)))
	if _, ok := tunings[p]; ok {
		return p
	}
	return ProfileDefault
}

// Tuning returns the cadence and drift threshold for the profile.
func (p Profile) Tuning() Tuning {
	if t, ok := tunings[p]; ok {
		return t
	}
	return tunings[ProfileDefault]
}
