package proto

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/pierrec/lz4/v4"
	"github.com/vmihailenco/msgpack/v5"
)

// FrameKind is the leading byte of a datagram frame.
type FrameKind byte

const (
	FrameHello    FrameKind = 1
	FrameAction   FrameKind = 2
	FrameSnapshot FrameKind = 3
)

// MaxDatagramSize bounds an encoded datagram.
const MaxDatagramSize = 64 * 1024

// ErrEmptyFrame is returned when a datagram carries no kind byte.
var ErrEmptyFrame = errors.New("proto: empty frame")

// Hello registers the sender address of a datagram client.
type Hello struct {
	PlayerID string `json:"playerId"`
	MatchID  string `json:"matchId,omitempty"`
}

var bufferPool = sync.Pool{
	New: func() any { return new(bytes.Buffer) },
}

// EncodeFrame renders kind followed by lz4(msgpack(v)).
func EncodeFrame(kind FrameKind, v any) ([]byte, error) {
	raw := bufferPool.Get().(*bytes.Buffer)
	raw.Reset()
	defer bufferPool.Put(raw)

	enc := msgpack.NewEncoder(raw)
	enc.SetCustomStructTag("json")
	if err := enc.Encode(v); err != nil {
		return nil, fmt.Errorf("encode frame body: %w", err)
	}

	var out bytes.Buffer
	out.WriteByte(byte(kind))
	zw := lz4.NewWriter(&out)
	if _, err := zw.Write(raw.Bytes()); err != nil {
		return nil, fmt.Errorf("compress frame: %w", err)
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("compress frame: %w", err)
	}
	if out.Len() > MaxDatagramSize {
		return nil, fmt.Errorf("frame of %d bytes exceeds datagram limit", out.Len())
	}
	return out.Bytes(), nil
}

// Frame is a decompressed datagram awaiting body decoding.
type Frame struct {
	Kind FrameKind
	body []byte
}

// DecodeFrame splits the kind byte and decompresses the body.
func DecodeFrame(data []byte) (Frame, error) {
	if len(data) == 0 {
		return Frame{}, ErrEmptyFrame
	}
	zr := lz4.NewReader(bytes.NewReader(data[1:]))
	body, err := io.ReadAll(io.LimitReader(zr, 4*MaxDatagramSize))
	if err != nil {
		return Frame{}, fmt.Errorf("decompress frame: %w", err)
	}
	return Frame{Kind: FrameKind(data[0]), body: body}, nil
}

// Decode unpacks the frame body into v.
func (f Frame) Decode(v any) error {
	dec := msgpack.NewDecoder(bytes.NewReader(f.body))
	dec.SetCustomStructTag("json")
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("decode frame body: %w", err)
	}
	return nil
}
