package presence

// Opcodes tagging envelope purpose on the socket.
const (
	OpEvent        = 0  // server -> client, d is a Snapshot, t names the event
	OpHello        = 1  // server -> client, d carries the heartbeat interval
	OpInitialize   = 2  // client -> server, d lists identity IDs to watch
	OpHeartbeat    = 3  // client -> server keepalive
	OpHeartbeatAck = 11 // server -> client heartbeat reply
	OpError        = -1 // server -> client, d is an error string
)

// Event types carried by OpEvent envelopes.
const (
	EventPresenceUpdate = "PRESENCE_UPDATE"
	EventInitState      = "INIT_STATE"
)

// Envelope is the JSON frame exchanged on the socket.
type Envelope struct {
	Op   int    `json:"op"`
	Data any    `json:"d,omitempty"`
	Type string `json:"t,omitempty"`
}

// Hello is the payload of the OpHello envelope.
type Hello struct {
	HeartbeatInterval int64 `json:"heartbeat_interval"`
}
