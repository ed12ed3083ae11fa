// Package influx ships match snapshots to InfluxDB as time series points.
package influx

import (
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	influxdb2_api "github.com/influxdata/influxdb-client-go/v2/api"
	influxdb2_write "github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/rs/zerolog"

	"age-of-war/server/internal/replication"
)

// Config addresses the bucket match points are written to.
type Config struct {
	URL    string
	Token  string
	Org    string
	Bucket string
}

// Reporter writes one point per match and per player for every snapshot.
type Reporter struct {
	client influxdb2.Client
	writer influxdb2_api.WriteAPI
	logger zerolog.Logger
	now    func() time.Time
}

// New creates a non-blocking writer. Write errors are logged.
func New(cfg Config, logger zerolog.Logger) *Reporter {
	client := influxdb2.NewClientWithOptions(cfg.URL, cfg.Token,
		influxdb2.DefaultOptions().
			SetBatchSize(500).
			SetFlushInterval(1000),
	)
	writer := client.WriteAPI(cfg.Org, cfg.Bucket)
	go func() {
		for err := range writer.Errors() {
			logger.Error().Err(err).Str("bucket", cfg.Bucket).Msg("Error sending data to InfluxDB")
		}
	}()
	return &Reporter{client: client, writer: writer, logger: logger, now: time.Now}
}

// Record queues the points of snap. Safe to use as a snapshot listener.
func (i *Reporter) Record(snap replication.Snapshot) {
	for _, p := range SnapshotPoints(snap, i.now()) {
		i.writer.WritePoint(p)
	}
}

// Close flushes pending points and releases the client.
func (i *Reporter) Close() {
	i.writer.Flush()
	i.client.Close()
}

// SnapshotPoints renders snap as line-protocol points.
func SnapshotPoints(snap replication.Snapshot, at time.Time) []*influxdb2_write.Point {
	alive := 0
	for _, p := range snap.Players {
		if p.HP > 0 {
			alive++
		}
	}
	points := make([]*influxdb2_write.Point, 0, len(snap.Players)+1)
	points = append(points, influxdb2.NewPoint(
		"match",
		map[string]string{"match": snap.MatchID, "phase": string(snap.Phase)},
		map[string]interface{}{
			"tick":    int64(snap.Tick),
			"units":   len(snap.Units),
			"players": len(snap.Players),
			"alive":   alive,
			"events":  len(snap.Events),
		},
		at,
	))
	for _, p := range snap.Players {
		points = append(points, influxdb2.NewPoint(
			"player",
			map[string]string{"match": snap.MatchID, "player": p.ID},
			map[string]interface{}{
				"gold":  p.Gold,
				"xp":    p.XP,
				"hp":    p.HP,
				"age":   p.Age,
				"queue": len(p.SpawnQueue),
			},
			at,
		))
	}
	return points
}
