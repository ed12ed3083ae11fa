package influx

import (
	"strings"
	"testing"
	"time"

	influxdb2_write "github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"age-of-war/server/internal/replication"
	"age-of-war/server/internal/world"
)

func TestSnapshotPoints(t *testing.T) {
	snap := replication.Snapshot{
		MatchID: "m1",
		Tick:    42,
		Phase:   world.PhasePlaying,
		Players: []world.Player{{ID: "a", Gold: 100, HP: 10}, {ID: "b", HP: 0}},
		Units:   []replication.UnitState{{ID: "u1"}},
	}
	points := SnapshotPoints(snap, time.Unix(1700000000, 0))
	require.Len(t, points, 3)

	line := influxdb2_write.PointToLineProtocol(points[0], time.Second)
	assert.True(t, strings.HasPrefix(line, "match,match=m1,phase=playing "), line)
	for _, want := range []string{"alive=1i", "tick=42i", "units=1i", "players=2i"} {
		assert.Contains(t, line, want)
	}
	assert.True(t, strings.HasSuffix(strings.TrimSpace(line), "1700000000"), line)

	player := influxdb2_write.PointToLineProtocol(points[1], time.Second)
	assert.Contains(t, player, "player,match=m1,player=a")
	assert.Contains(t, player, "gold=100")
}

func TestSnapshotPointsEmpty(t *testing.T) {
	points := SnapshotPoints(replication.Snapshot{MatchID: "m"}, time.Now())
	require.Len(t, points, 1)
}
