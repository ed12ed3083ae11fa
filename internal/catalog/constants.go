package catalog

const (
	// TickRate is the fixed simulation step in seconds.
	TickRate = 1.0 / 30.0
	// MapRadius bounds the arena; bases sit at 80% of it.
	MapRadius = 1000.0
	// SeatRadiusFactor places player bases on a circle of MapRadius*SeatRadiusFactor.
	SeatRadiusFactor = 0.8
	// BaseRadius is the collision radius of a base.
	BaseRadius = 90.0
	// UnitCollisionRadius is multiplied by a unit's scale.
	UnitCollisionRadius = 20.0
	// StartingGold is granted to every player at match start.
	StartingGold = 175

	AcquisitionRadius   = 300.0
	AttackCooldownTicks = 60.0
	CooldownTicksPerSec = 60.0
	UnitSpeed           = 50.0
	ProjectileSpeed     = 400.0
	ProjectileRangeMult = 1.5
	ProjectileHitBuffer = 5.0
	WorldBound          = 2000.0
	RangedStopBuffer    = 10.0
	FallbackStopFactor  = 0.8
	SpawnOffset         = BaseRadius + 20

	// DecayFraction is the share of max hp an orphaned unit loses per second.
	DecayFraction = 0.10

	KillGoldFactor = 1.3
	KillXPFactor   = 1.0

	HitEffectMelee      = 0.2
	HitEffectProjectile = 0.5
	ExplosionDuration   = 1.0

	ThreatRadius  = 400.0
	BotQueueLimit = 5

	MaxPlayers = 10
)

// Team colors.
const (
	TeamOneColor = "#3b82f6"
	TeamTwoColor = "#ef4444"
)
