package ws

import (
	"time"

	"github.com/gorilla/websocket"

	"age-of-war/server"
	"age-of-war/server/internal/match"
	"age-of-war/server/internal/net/proto"
	"age-of-war/server/internal/sim"
)

// Serve runs the read loop of an attached session until the connection
// fails or the match detaches it.
func (h *Handler) Serve(m *match.Match, sub *match.Subscriber, conn *websocket.Conn) {
	if m == nil || sub == nil || conn == nil {
		return
	}
	playerID := sub.PlayerID
	logger := h.logger.With().Str("player", playerID).Str("match", m.ID()).Logger()
	defer m.Unsubscribe(sub, "read_closed")

	for {
		conn.SetReadDeadline(time.Now().Add(server.DisconnectAfter))
		_, payload, err := conn.ReadMessage()
		if err != nil {
			return
		}

		msg, err := proto.DecodeClientMessage(payload)
		if err != nil {
			logger.Debug().Err(err).Msg("discarding malformed message")
			continue
		}

		normalizedSeq := uint64(0)
		if msg.CommandSeq != nil && *msg.CommandSeq > 0 {
			normalizedSeq = *msg.CommandSeq
		}

		send := func(kind string, data []byte, err error) {
			if err != nil {
				logger.Error().Err(err).Str("type", kind).Msg("failed to encode response")
				return
			}
			sub.Send(kind, data)
		}

		switch msg.Type {
		case proto.TypeAction:
			if normalizedSeq > 0 {
				if last := sub.LastCommandSeq(); last > 0 && normalizedSeq <= last {
					data, err := proto.EncodeCommandAck(proto.CommandAck{Seq: normalizedSeq})
					send(proto.TypeCommandAck, data, err)
					continue
				}
			}
			_, ok, reason := m.Intake().StageClientMessage(playerID, "ws", msg)
			if normalizedSeq == 0 {
				continue
			}
			if ok {
				data, err := proto.EncodeCommandAck(proto.CommandAck{Seq: normalizedSeq})
				send(proto.TypeCommandAck, data, err)
				sub.StoreLastCommandSeq(normalizedSeq)
				continue
			}
			retry := reason == server.CommandRejectThrottled || reason == sim.ActionRejectQueueLimit
			data, err := proto.EncodeCommandReject(proto.CommandReject{Seq: normalizedSeq, Reason: reason, Retry: retry})
			send(proto.TypeCommandReject, data, err)
		case proto.TypeHeartbeat:
			now := time.Now()
			rtt := int64(0)
			if msg.SentAt > 0 {
				rtt = now.UnixMilli() - msg.SentAt
			}
			data, err := proto.EncodeHeartbeat(proto.Heartbeat{
				ServerTime: now.UnixMilli(),
				ClientTime: msg.SentAt,
				RTTMillis:  rtt,
			})
			send(proto.TypeHeartbeat, data, err)
		default:
			logger.Debug().Str("type", msg.Type).Msg("unknown message type")
		}
	}
}
