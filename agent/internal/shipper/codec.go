package shipper

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
	"strconv"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/obsidianstack/statsrelay/pkg/types"
)

// Codec serializes one batch into the opaque payload of a single send.
type Codec interface {
	Encode(batch []types.Metric) ([]byte, error)
}

// NewCodec returns the codec registered under name: pickle | msgpack | plaintext.
func NewCodec(name string) (Codec, error) {
	switch name {
	case "pickle":
		return pickleCodec{}, nil
	case "msgpack":
		return msgpackCodec{}, nil
	case "plaintext":
		return plaintextCodec{}, nil
	default:
		return nil, fmt.Errorf("shipper: unknown codec %q", name)
	}
}

// Pickle protocol 2 opcodes used by pickleCodec.
const (
	opProto      = 0x80
	opEmptyList  = ']'
	opMark       = '('
	opBinUnicode = 'X'
	opBinInt     = 'J'
	opLong1      = 0x8a
	opBinFloat   = 'G'
	opTuple2     = 0x86
	opAppends    = 'e'
	opStop       = '.'
)

// pickleCodec writes the carbon pickle receiver format: a 4-byte big-endian
// length header followed by a protocol 2 pickle of
// [(name, (timestamp, value)), ...].
type pickleCodec struct{}

func (pickleCodec) Encode(batch []types.Metric) ([]byte, error) {
	var body bytes.Buffer
	body.Write([]byte{opProto, 2, opEmptyList, opMark})
	for _, m := range batch {
		body.WriteByte(opBinUnicode)
		_ = binary.Write(&body, binary.LittleEndian, uint32(len(m.Name)))
		body.WriteString(m.Name)

		writePickleInt(&body, m.Timestamp.Unix())

		body.WriteByte(opBinFloat)
		_ = binary.Write(&body, binary.BigEndian, math.Float64bits(m.Value))

		body.Write([]byte{opTuple2, opTuple2})
	}
	body.Write([]byte{opAppends, opStop})
	return framed(body.Bytes()), nil
}

// writePickleInt uses BININT when v fits in int32 and LONG1 otherwise.
func writePickleInt(buf *bytes.Buffer, v int64) {
	if v >= math.MinInt32 && v <= math.MaxInt32 {
		buf.WriteByte(opBinInt)
		_ = binary.Write(buf, binary.LittleEndian, int32(v))
		return
	}
	var le [8]byte
	binary.LittleEndian.PutUint64(le[:], uint64(v))
	n := 8
	// Drop redundant sign-extension bytes, keeping two's complement intact.
	for n > 1 {
		top, next := le[n-1], le[n-2]
		if (top == 0x00 && next&0x80 == 0) || (top == 0xff && next&0x80 != 0) {
			n--
			continue
		}
		break
	}
	buf.WriteByte(opLong1)
	buf.WriteByte(byte(n))
	buf.Write(le[:n])
}

type msgpackPoint struct {
	_msgpack  struct{} `msgpack:",as_array"`
	Timestamp int64
	Value     float64
}

type msgpackEntry struct {
	_msgpack struct{} `msgpack:",as_array"`
	Name     string
	Point    msgpackPoint
}

// msgpackCodec writes the same [(name, (timestamp, value))] shape as pickle,
// msgpack-encoded behind the same 4-byte length header.
type msgpackCodec struct{}

func (msgpackCodec) Encode(batch []types.Metric) ([]byte, error) {
	entries := make([]msgpackEntry, len(batch))
	for i, m := range batch {
		entries[i] = msgpackEntry{
			Name:  m.Name,
			Point: msgpackPoint{Timestamp: m.Timestamp.Unix(), Value: m.Value},
		}
	}
	body, err := msgpack.Marshal(entries)
	if err != nil {
		return nil, fmt.Errorf("shipper: msgpack encode: %w", err)
	}
	return framed(body), nil
}

// plaintextCodec writes carbon plaintext lines: "name value timestamp\n".
// Lines are self-delimiting so no length header is added.
type plaintextCodec struct{}

func (plaintextCodec) Encode(batch []types.Metric) ([]byte, error) {
	var buf bytes.Buffer
	for _, m := range batch {
		buf.WriteString(m.Name)
		buf.WriteByte(' ')
		buf.WriteString(strconv.FormatFloat(m.Value, 'f', -1, 64))
		buf.WriteByte(' ')
		buf.WriteString(strconv.FormatInt(m.Timestamp.Unix(), 10))
		buf.WriteByte('\n')
	}
	return buf.Bytes(), nil
}

// framed prefixes body with its length as a 4-byte big-endian integer.
func framed(body []byte) []byte {
	out := make([]byte, 4+len(body))
	binary.BigEndian.PutUint32(out, uint32(len(body)))
	copy(out[4:], body)
	return out
}
