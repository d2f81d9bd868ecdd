// Package wsrpc is the WebSocket-JSON RPC variant: the same call/reply
// correlation and registry-driven dispatch as pkg/rpc, carried over
// gorilla/websocket text messages instead of a length-prefixed TCP
// stream. A websocket message is already a delimited unit, so there is
// no byte-buffer framing layer here — each message is exactly one
// envelope.
package wsrpc

import "encoding/json"

// envelope is the JSON wire unit, structurally the same fields as
// wire.Packet but carried as a self-delimiting JSON object since the
// websocket transport already frames messages.
type envelope struct {
	API          string          `json:"api"`
	PacketID     uint32          `json:"packet_id"`
	IsFromClient bool            `json:"is_from_client"`
	IsException  bool            `json:"is_exception"`
	Body         json.RawMessage `json:"body,omitempty"`
}
