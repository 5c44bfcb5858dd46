// Package hackchat provides a Go client for the hack.chat protocol.
// A Session holds one WebSocket connection to one channel, tracks who is
// online and delivers typed events to a handler; a Manager keeps a set of
// sessions across channels and paces joins to stay under the server's
// rate limits.
package hackchat

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hcbot/hackchat/capture"
	"github.com/hcbot/hackchat/frame"
	"github.com/hcbot/hackchat/wire"
)

// DefaultPingInterval is how often a session sends a keep-alive ping.
const DefaultPingInterval = 60 * time.Second

// Config holds connection parameters shared by every session.
type Config struct {
	Endpoint     string            // WebSocket URL, DefaultEndpoint if empty
	PingInterval time.Duration     // keep-alive period, DefaultPingInterval if zero
	Dialer       Dialer            // WebSocketDialer if nil
	Logger       *slog.Logger      // slog.Default() if nil
	Capture      *capture.Recorder // optional frame transcript
}

func (c Config) withDefaults() Config {
	if c.Endpoint == "" {
		c.Endpoint = DefaultEndpoint
	}
	if c.PingInterval <= 0 {
		c.PingInterval = DefaultPingInterval
	}
	if c.Dialer == nil {
		c.Dialer = WebSocketDialer{}
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	return c
}

// Identity is the nickname and optional trip password a session joins with.
type Identity struct {
	Nick     string
	Password string
}

func (id Identity) joinNick() string {
	return id.Nick + "#" + id.Password
}

// Session is one joined channel.
type Session struct {
	id      uuid.UUID
	channel string
	ident   Identity
	cfg     Config
	log     *slog.Logger

	conn    Conn
	handler Handler
	roster  *Roster

	sendCh    chan []byte
	done      chan struct{}
	closeOnce sync.Once
	err       error // close cause, set before done is closed

	loops    sync.WaitGroup // write and ping loops
	readDone chan struct{}
	exited   chan struct{} // closed once every loop has returned
}

// Open connects to the server, joins channel as id and starts the session's
// loops. Events are passed to h until the session closes.
func Open(ctx context.Context, cfg Config, channel string, id Identity, h Handler) (*Session, error) {
	cfg = cfg.withDefaults()
	s := &Session{
		id:       uuid.New(),
		channel:  channel,
		ident:    id,
		cfg:      cfg,
		handler:  h,
		roster:   NewRoster(),
		sendCh:   make(chan []byte, 64),
		done:     make(chan struct{}),
		readDone: make(chan struct{}),
		exited:   make(chan struct{}),
	}
	s.log = cfg.Logger.With("channel", channel, "session", s.id.String())

	conn, err := cfg.Dialer.Dial(ctx, cfg.Endpoint)
	if err != nil {
		return nil, &ConnectError{Channel: channel, Err: err}
	}
	s.conn = conn

	join, err := frame.Encode(frame.CmdJoin, wire.JoinPayload{Channel: channel, Nick: id.joinNick()})
	if err != nil {
		conn.Close()
		return nil, &ConnectError{Channel: channel, Err: err}
	}
	s.record(capture.DirOut, join)
	if err := conn.WriteMessage(join); err != nil {
		conn.Close()
		return nil, &ConnectError{Channel: channel, Err: err}
	}

	s.loops.Add(2)
	go s.readLoop()
	go s.writeLoop()
	go s.pingLoop()
	go func() {
		s.loops.Wait()
		<-s.readDone
		close(s.exited)
	}()

	s.log.Info("joined channel", "nick", id.Nick, "endpoint", cfg.Endpoint)
	return s, nil
}

// ID identifies the session in logs and capture transcripts.
func (s *Session) ID() uuid.UUID   { return s.id }
func (s *Session) Channel() string { return s.channel }
func (s *Session) Nick() string    { return s.ident.Nick }

// Online returns the nicks currently in the channel, sorted.
func (s *Session) Online() []string { return s.roster.Nicks() }

// IsOnline reports whether nick is currently in the channel.
func (s *Session) IsOnline(nick string) bool { return s.roster.Contains(nick) }

// Done is closed as soon as the session starts closing.
func (s *Session) Done() <-chan struct{} { return s.done }

// Exited is closed once the session's loops have all returned.
func (s *Session) Exited() <-chan struct{} { return s.exited }

// Err returns why the session ended: nil while open or after Leave.
func (s *Session) Err() error {
	select {
	case <-s.done:
		return s.err
	default:
		return nil
	}
}

// Send posts text to the channel. A nil error means the frame was queued
// for the writer; frames still queued when the session closes are dropped.
func (s *Session) Send(ctx context.Context, text string) error {
	return s.enqueue(ctx, frame.CmdChat, wire.ChatPayload{Text: text})
}

// Invite asks the server to invite nick to a new random channel. The server
// answers with an info notice that arrives as an Invite event. Like Send,
// success means queued.
func (s *Session) Invite(ctx context.Context, nick string) error {
	return s.enqueue(ctx, frame.CmdInvite, wire.InvitePayload{Nick: nick})
}

// RequestStats asks for server-wide stats; they arrive as a Stats event.
// Success means queued.
func (s *Session) RequestStats(ctx context.Context) error {
	return s.enqueue(ctx, frame.CmdStats, nil)
}

// Leave closes the connection and waits for the session's loops to exit.
// It must not be called from this session's handler, which runs on the
// receive loop; use Close there.
func (s *Session) Leave() error {
	closed := s.shutdown(nil)
	<-s.exited
	if !closed {
		return ErrClosed
	}
	s.log.Info("left channel")
	return nil
}

// Close closes the connection without waiting for the loops; Exited reports
// when they are gone. It is safe to call from any handler.
func (s *Session) Close() error {
	if !s.shutdown(nil) {
		return ErrClosed
	}
	s.log.Info("left channel")
	return nil
}

// shutdown closes the session once and reports whether this call did it.
func (s *Session) shutdown(cause error) bool {
	closed := false
	s.closeOnce.Do(func() {
		s.err = cause
		close(s.done)
		s.conn.Close()
		closed = true
	})
	return closed
}

func (s *Session) enqueue(ctx context.Context, cmd string, payload any) error {
	select {
	case <-s.done:
		return ErrClosed
	default:
	}

	encoded, err := frame.Encode(cmd, payload)
	if err != nil {
		return err
	}

	select {
	case s.sendCh <- encoded:
		return nil
	case <-s.done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Session) record(dir string, data []byte) {
	if s.cfg.Capture == nil {
		return
	}
	if err := s.cfg.Capture.Record(s.id.String(), s.channel, dir, data); err != nil {
		s.log.Debug("capture failed", "error", err)
	}
}

// --- Internal ---

func (s *Session) readLoop() {
	defer close(s.readDone)
	for {
		data, err := s.conn.ReadMessage()
		if err != nil {
			select {
			case <-s.done:
			default:
				s.log.Warn("read error, disconnecting", "error", err)
				s.shutdown(err)
			}
			return
		}
		s.record(capture.DirIn, data)

		f, err := frame.Decode(data)
		if err != nil {
			s.log.Warn("dropping bad frame", "error", err)
			continue
		}

		ev, err := s.translate(f)
		if err != nil {
			s.log.Warn("dropping bad frame", "cmd", f.Cmd, "error", err)
			continue
		}
		if ev == nil {
			continue
		}
		if s.handler != nil {
			s.handler(s, ev)
		}

		select {
		case <-s.done:
			return
		default:
		}
	}
}

// translate applies a frame to the session state and returns the event it
// produces, or nil for frames that produce none.
func (s *Session) translate(f frame.Frame) (Event, error) {
	switch f.Cmd {
	case frame.CmdChat:
		var p wire.ChatDelivery
		if err := f.Into(&p); err != nil {
			return nil, err
		}
		return Message{Nick: p.Nick, Text: p.Text, Trip: p.Trip}, nil

	case frame.CmdOnlineSet:
		var p wire.OnlineSetPayload
		if err := f.Into(&p); err != nil {
			return nil, err
		}
		s.roster.Reset(p.Nicks)
		return nil, nil

	case frame.CmdOnlineAdd:
		var p wire.OnlinePayload
		if err := f.Into(&p); err != nil {
			return nil, err
		}
		s.roster.Add(p.Nick)
		return UserJoined{Nick: p.Nick}, nil

	case frame.CmdOnlineRemove:
		var p wire.OnlinePayload
		if err := f.Into(&p); err != nil {
			return nil, err
		}
		s.roster.Remove(p.Nick)
		return UserLeft{Nick: p.Nick}, nil

	case frame.CmdInfo:
		var p wire.NoticePayload
		if err := f.Into(&p); err != nil {
			return nil, err
		}
		ev := parseInfo(p.Text, s.ident.Nick)
		if ev == nil {
			s.log.Debug("ignoring info notice", "text", p.Text)
			return nil, nil
		}
		return ev, nil

	case frame.CmdWarn:
		var p wire.NoticePayload
		if err := f.Into(&p); err != nil {
			return nil, err
		}
		return Warning{Reason: p.Text}, nil
	}
	return nil, nil
}

func (s *Session) writeLoop() {
	defer s.loops.Done()
	for {
		select {
		case data := <-s.sendCh:
			s.record(capture.DirOut, data)
			if err := s.conn.WriteMessage(data); err != nil {
				select {
				case <-s.done:
				default:
					s.log.Warn("write error", "error", err)
					s.shutdown(err)
				}
				return
			}
		case <-s.done:
			return
		}
	}
}

func (s *Session) pingLoop() {
	defer s.loops.Done()
	ticker := time.NewTicker(s.cfg.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			ping, _ := frame.Encode(frame.CmdPing, nil)
			select {
			case s.sendCh <- ping:
			case <-s.done:
				return
			}
		case <-s.done:
			return
		}
	}
}
