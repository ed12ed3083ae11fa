package datagram

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"age-of-war/server/internal/match"
	"age-of-war/server/internal/net/proto"
	"age-of-war/server/internal/replication"
	"age-of-war/server/internal/telemetry"
	"age-of-war/server/internal/world"
	"age-of-war/server/logging"
)

type fixture struct {
	match    *match.Match
	server   *Server
	client   net.PacketConn
	registry *logging.Metrics
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	m := match.New(match.Config{MatchID: "udp-test", Profile: replication.ProfileLocal, SnapshotInterval: 0.02})
	ctx, cancel := context.WithCancel(context.Background())
	go m.Run(ctx)
	require.NoError(t, m.Start(ctx, []world.Seat{{ID: "a", Name: "Ann"}, {ID: "b", Name: "Bo"}}))

	slot := &match.Slot{}
	slot.Swap(m)
	registry := logging.NewMetrics()
	srv, err := Listen("127.0.0.1:0", slot, Config{Metrics: telemetry.WrapMetrics(registry)})
	require.NoError(t, err)
	srv.Attach(m)
	go srv.Serve(ctx)

	client, err := net.ListenPacket("udp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() {
		client.Close()
		cancel()
		<-m.Done()
	})
	return fixture{match: m, server: srv, client: client, registry: registry}
}

func (f fixture) send(t *testing.T, kind proto.FrameKind, v any) {
	t.Helper()
	data, err := proto.EncodeFrame(kind, v)
	require.NoError(t, err)
	_, err = f.client.WriteTo(data, f.server.Addr())
	require.NoError(t, err)
}

func (f fixture) read(t *testing.T, want proto.FrameKind) proto.Frame {
	t.Helper()
	buf := make([]byte, proto.MaxDatagramSize)
	f.client.SetReadDeadline(time.Now().Add(2 * time.Second))
	for {
		n, _, err := f.client.ReadFrom(buf)
		require.NoError(t, err)
		frame, err := proto.DecodeFrame(buf[:n])
		require.NoError(t, err)
		if frame.Kind == want {
			return frame
		}
	}
}

func TestHelloRegistersAndReceivesSnapshots(t *testing.T) {
	f := newFixture(t)
	f.send(t, proto.FrameHello, proto.Hello{PlayerID: "a", MatchID: "udp-test"})

	var hello proto.Hello
	require.NoError(t, f.read(t, proto.FrameHello).Decode(&hello))
	assert.Equal(t, "udp-test", hello.MatchID)
	assert.Equal(t, 1, f.server.Registered())

	var snap replication.Snapshot
	require.NoError(t, f.read(t, proto.FrameSnapshot).Decode(&snap))
	assert.Equal(t, "udp-test", snap.MatchID)
	assert.Len(t, snap.Players, 2)
}

func TestActionsUseRegisteredPlayer(t *testing.T) {
	f := newFixture(t)
	f.send(t, proto.FrameHello, proto.Hello{PlayerID: "a"})
	f.read(t, proto.FrameHello)

	// The payload player id is ignored in favour of the registration.
	f.send(t, proto.FrameAction, world.Action{Kind: world.ActionQueueUnit, PlayerID: "b", UnitID: "u1_1", RequestID: "udp-1"})

	require.Eventually(t, func() bool {
		snap, err := f.match.Snapshot(context.Background())
		if err != nil {
			return false
		}
		var a, b float64
		for _, p := range snap.Players {
			switch p.ID {
			case "a":
				a = p.Gold
			case "b":
				b = p.Gold
			}
		}
		return a == 160 && b == 175
	}, 2*time.Second, 10*time.Millisecond)
}

func TestUnregisteredAndGarbageDatagrams(t *testing.T) {
	f := newFixture(t)
	f.send(t, proto.FrameAction, world.Action{Kind: world.ActionUpgrade, PlayerID: "a"})
	_, err := f.client.WriteTo([]byte{9, 1, 2, 3}, f.server.Addr())
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return f.registry.Value(telemetry.MetricDatagramsReceived) >= 2 &&
			f.registry.Value(telemetry.MetricDatagramDecodeErrs) >= 1
	}, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, 0, f.server.Registered())
}

func TestHelloForOtherMatchIgnored(t *testing.T) {
	f := newFixture(t)
	f.send(t, proto.FrameHello, proto.Hello{PlayerID: "a", MatchID: "elsewhere"})
	require.Eventually(t, func() bool {
		return f.registry.Value(telemetry.MetricDatagramsReceived) >= 1
	}, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, 0, f.server.Registered())
}
