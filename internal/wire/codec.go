package wire

import (
	"unicode/utf8"

	"github.com/appnet-org/tcprpc/pkg/rpcerr"
)

// DefaultMaxFrameBytes is the default upper bound on total_length before a
// decode fails with ProtocolError.
const DefaultMaxFrameBytes = 10 << 20 // 10 MiB

// frameHeaderBytes is the fixed-size portion of the frame counted by
// total_length: api_name_len(2) + packet_id(4) + is_from_client(1) +
// is_exception(1).
const frameHeaderBytes = 8

// Encode serializes a Packet into the frame format:
//
//	total_length(4) | api_name_len(2) | api_name | packet_id(4) |
//	is_from_client(1) | is_exception(1) | body
func Encode(p Packet) []byte {
	nameBytes := []byte(p.APIName)
	totalLength := frameHeaderBytes + len(nameBytes) + len(p.Body)

	buf := make([]byte, 4+totalLength)
	putU32(buf[0:4], uint32(totalLength))
	putU16(buf[4:6], uint16(len(nameBytes)))
	offset := 6
	copy(buf[offset:], nameBytes)
	offset += len(nameBytes)
	putU32(buf[offset:offset+4], p.PacketID)
	offset += 4
	buf[offset] = boolByte(p.IsFromClient)
	offset++
	buf[offset] = boolByte(p.IsException)
	offset++
	copy(buf[offset:], p.Body)

	return buf
}

// Decode attempts to parse a single Packet from the front of buf. It
// returns (packet, true, nil) on success, (zero, false, nil) if more bytes
// are needed, and (zero, false, err) — a *rpcerr.ProtocolError — on a
// malformed frame. maxFrameBytes <= 0 means DefaultMaxFrameBytes.
func Decode(buf *Buffer, maxFrameBytes int) (Packet, bool, error) {
	if maxFrameBytes <= 0 {
		maxFrameBytes = DefaultMaxFrameBytes
	}

	if buf.Len() < 4 {
		return Packet{}, false, nil
	}

	totalLength := buf.ReadU32(0)
	if totalLength > uint32(maxFrameBytes) {
		return Packet{}, false, &rpcerr.ProtocolError{Reason: "total_length exceeds max_frame_bytes"}
	}
	if totalLength < frameHeaderBytes {
		return Packet{}, false, &rpcerr.ProtocolError{Reason: "total_length smaller than fixed header"}
	}

	frameLen := 4 + int(totalLength)
	if buf.Len() < frameLen {
		return Packet{}, false, nil
	}

	nameLen := int(buf.ReadU16(4))
	if 6+nameLen+6 > frameLen {
		return Packet{}, false, &rpcerr.ProtocolError{Reason: "api_name_len exceeds remaining frame"}
	}
	if nameLen == 0 {
		return Packet{}, false, &rpcerr.ProtocolError{Reason: "api_name_len is zero"}
	}

	nameBytes := buf.ReadRange(6, nameLen)
	if !utf8.Valid(nameBytes) {
		return Packet{}, false, &rpcerr.ProtocolError{Reason: "api_name is not valid UTF-8"}
	}

	offset := 6 + nameLen
	packetID := buf.ReadU32(offset)
	offset += 4

	fromClientByte := buf.ReadU8(offset)
	if fromClientByte > 1 {
		return Packet{}, false, &rpcerr.ProtocolError{Reason: "is_from_client is not 0 or 1"}
	}
	offset++

	exceptionByte := buf.ReadU8(offset)
	if exceptionByte > 1 {
		return Packet{}, false, &rpcerr.ProtocolError{Reason: "is_exception is not 0 or 1"}
	}
	offset++

	bodyLen := frameLen - offset
	body := buf.ReadRange(offset, bodyLen)

	p := Packet{
		APIName:      string(nameBytes),
		PacketID:     packetID,
		IsFromClient: fromClientByte == 1,
		IsException:  exceptionByte == 1,
		Body:         body,
	}

	buf.Consume(frameLen)
	return p, true, nil
}

func putU16(dst []byte, v uint16) {
	dst[0] = byte(v >> 8)
	dst[1] = byte(v)
}

func putU32(dst []byte, v uint32) {
	dst[0] = byte(v >> 24)
	dst[1] = byte(v >> 16)
	dst[2] = byte(v >> 8)
	dst[3] = byte(v)
}

func boolByte(b bool) byte {
	if b {
		return 1
	}
	return 0
}
