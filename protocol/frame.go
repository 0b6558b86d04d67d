package protocol

// Frame adalah bingkai fisik di atas websocket: satu frame JSON per pesan.
// SUBSCRIBE / UNSUBSCRIBE / SEND berasal dari client, MESSAGE dari server.
const (
	CmdSubscribe   = "SUBSCRIBE"
	CmdUnsubscribe = "UNSUBSCRIBE"
	CmdSend        = "SEND"
	CmdMessage     = "MESSAGE"
)

type Frame struct {
	Command     string   `json:"command"`
	Destination string   `json:"destination"`
	Body        Envelope `json:"body,omitempty"`
}
