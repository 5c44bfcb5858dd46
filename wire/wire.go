// Package wire defines the JSON payload types of the hack.chat protocol.
// The cmd discriminator itself is added and stripped by the frame package.
package wire

// JoinPayload is the payload of a join frame (client -> server).
// Nick carries the trip password after a '#': "name#password".
type JoinPayload struct {
	Channel string `json:"channel"`
	Nick    string `json:"nick"`
}

// ChatPayload is the payload of an outgoing chat frame.
type ChatPayload struct {
	Text string `json:"text"`
}

// InvitePayload asks the server to invite Nick to a fresh random channel.
type InvitePayload struct {
	Nick string `json:"nick"`
}

// ChatDelivery is an incoming chat frame. Trip is empty when the sender
// joined without a password.
type ChatDelivery struct {
	Nick string `json:"nick"`
	Text string `json:"text"`
	Trip string `json:"trip,omitempty"`
}

// OnlineSetPayload is the roster snapshot sent once right after join.
type OnlineSetPayload struct {
	Nicks []string `json:"nicks"`
}

// OnlinePayload is the payload of onlineAdd and onlineRemove.
type OnlinePayload struct {
	Nick string `json:"nick"`
}

// NoticePayload is the payload of info and warn frames.
type NoticePayload struct {
	Text string `json:"text"`
}
