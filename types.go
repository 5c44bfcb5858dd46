package hackchat

// EventKind names an Event variant.
type EventKind string

const (
	KindMessage    EventKind = "message"
	KindUserJoined EventKind = "userJoined"
	KindUserLeft   EventKind = "userLeft"
	KindInvite     EventKind = "invite"
	KindStats      EventKind = "stats"
	KindWarning    EventKind = "warning"
)

// Event is one typed notification decoded from a frame. The concrete type
// is one of Message, UserJoined, UserLeft, Invite, Stats or Warning.
type Event interface {
	Kind() EventKind
}

// Handler receives the events of a session, in arrival order, on the
// session's receive goroutine.
type Handler func(*Session, Event)

// Message is a chat line posted in the channel. Trip is empty when the
// sender has no trip code.
type Message struct {
	Nick string
	Text string
	Trip string
}

// UserJoined reports a user entering the channel.
type UserJoined struct {
	Nick string
}

// UserLeft reports a user leaving the channel.
type UserLeft struct {
	Nick string
}

// Invite reports an invitation to Channel. From is the session's own nick
// when the session itself sent the invite.
type Invite struct {
	From    string
	Channel string
}

// Stats carries the server-wide counters requested with RequestStats.
type Stats struct {
	UniqueIPs int
	Channels  int
}

// Warning is a server warning such as a nickname already being taken.
type Warning struct {
	Reason string
}

func (Message) Kind() EventKind    { return KindMessage }
func (UserJoined) Kind() EventKind { return KindUserJoined }
func (UserLeft) Kind() EventKind   { return KindUserLeft }
func (Invite) Kind() EventKind     { return KindInvite }
func (Stats) Kind() EventKind      { return KindStats }
func (Warning) Kind() EventKind    { return KindWarning }
