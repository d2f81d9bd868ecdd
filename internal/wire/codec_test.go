package wire

import (
	"testing"

	"github.com/appnet-org/tcprpc/pkg/rpcerr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		pkt  Packet
	}{
		{
			name: "request",
			pkt: Packet{
				APIName:      "echo",
				PacketID:     1,
				IsFromClient: true,
				IsException:  false,
				Body:         []byte(`["hi"]`),
			},
		},
		{
			name: "reply with empty body",
			pkt: Packet{
				APIName:      "oneway",
				PacketID:     42,
				IsFromClient: false,
				IsException:  false,
				Body:         nil,
			},
		},
		{
			name: "exception reply",
			pkt: Packet{
				APIName:      "nope",
				PacketID:     7,
				IsFromClient: true,
				IsException:  true,
				Body:         []byte("API 'nope' not found"),
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			encoded := Encode(tt.pkt)

			buf := NewBuffer()
			buf.Append(encoded)
			got, ok, err := Decode(buf, 0)
			require.NoError(t, err)
			require.True(t, ok)
			assert.Equal(t, tt.pkt.APIName, got.APIName)
			assert.Equal(t, tt.pkt.PacketID, got.PacketID)
			assert.Equal(t, tt.pkt.IsFromClient, got.IsFromClient)
			assert.Equal(t, tt.pkt.IsException, got.IsException)
			assert.Equal(t, tt.pkt.Body, got.Body)
			assert.Equal(t, 0, buf.Len())

			reencoded := Encode(got)
			assert.Equal(t, encoded, reencoded)
		})
	}
}

func TestDecodeNeedsMoreBytes(t *testing.T) {
	buf := NewBuffer()
	buf.Append([]byte{0x00, 0x00, 0x00})

	_, ok, err := Decode(buf, 0)
	assert.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, 3, buf.Len())
}

func TestDecodePartialFrameNeedsMoreBytes(t *testing.T) {
	full := Encode(Packet{APIName: "echo", PacketID: 1, IsFromClient: true, Body: []byte("1234567890")})

	buf := NewBuffer()
	buf.Append(full[:len(full)-2])
	_, ok, err := Decode(buf, 0)
	assert.NoError(t, err)
	assert.False(t, ok)
}

func TestDecodeRejectsOversizedFrame(t *testing.T) {
	buf := NewBuffer()
	header := make([]byte, 4)
	putU32(header, DefaultMaxFrameBytes+1)
	buf.Append(header)

	_, ok, err := Decode(buf, 0)
	assert.False(t, ok)
	var protoErr *rpcerr.ProtocolError
	require.ErrorAs(t, err, &protoErr)
}

func TestDecodeRejectsZeroLengthAPIName(t *testing.T) {
	buf := NewBuffer()
	header := make([]byte, 4)
	// total_length = frameHeaderBytes (8), api_name_len = 0
	putU32(header, frameHeaderBytes)
	buf.Append(header)
	rest := make([]byte, frameHeaderBytes)
	// api_name_len(2)=0
	buf.Append(rest)

	_, ok, err := Decode(buf, 0)
	assert.False(t, ok)
	var protoErr *rpcerr.ProtocolError
	require.ErrorAs(t, err, &protoErr)
}

func TestIDSourceMonotonicAndUnique(t *testing.T) {
	src := NewIDSource()
	seen := make(map[uint32]bool)
	prev := uint32(0)
	for i := 0; i < 1000; i++ {
		id := src.Next()
		assert.False(t, seen[id], "id %d reused", id)
		seen[id] = true
		assert.Greater(t, id, prev)
		prev = id
	}
}

func TestIDSourceSkipsZeroOnWrap(t *testing.T) {
	src := &IDSource{next: ^uint32(0) - 1} // next Add lands on max, then 0
	first := src.Next()
	assert.Equal(t, ^uint32(0), first)
	second := src.Next()
	assert.NotEqual(t, uint32(0), second)
	assert.Equal(t, uint32(1), second)
}
