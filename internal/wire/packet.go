package wire

// Packet is the atomic wire unit. (packet_id, is_from_client) is
// unique across the set of outstanding calls originated by one side; a
// reply echoes the same packet_id and is_from_client as its request.
type Packet struct {
	APIName      string
	PacketID     uint32
	IsFromClient bool
	IsException  bool
	Body         []byte
}

// MaxAPINameBytes bounds api_name_len (a uint16 length prefix).
const MaxAPINameBytes = 65535
