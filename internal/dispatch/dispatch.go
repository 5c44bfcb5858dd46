// Package dispatch turns chat events into bot replies. Messages starting
// with the trigger are looked up in a command table; stats and warnings
// get fixed reactions.
package dispatch

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"sort"
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/hcbot/hackchat"
)

const defaultSendTimeout = 5 * time.Second

// Chat is the part of a session commands talk to.
type Chat interface {
	Channel() string
	Nick() string
	Send(ctx context.Context, text string) error
	RequestStats(ctx context.Context) error
}

// Channels joins and leaves channels on behalf of commands. Commands run
// inside session handlers, so leaving must not wait for the session.
type Channels interface {
	JoinAsync(channel string)
	CloseChannel(name string) error
}

// Request is one parsed command invocation.
type Request struct {
	Chat Chat
	From string // nick that issued the command
	Name string
	Args string
}

// Reply sends text addressed to the caller.
func (q *Request) Reply(ctx context.Context, text string) error {
	return q.Chat.Send(ctx, "@"+q.From+" "+text)
}

// Command handles one request.
type Command func(ctx context.Context, q *Request) error

// Options configures a Router.
type Options struct {
	Trigger     string
	GitHub      string                    // source link appended to help
	CanLeave    func(channel string) bool // nil allows leaving everywhere
	SendTimeout time.Duration
	Rand        *rand.Rand // coin tosses and passwords
	Logger      *slog.Logger
}

// Router maps trigger-prefixed messages to commands.
type Router struct {
	opts     Options
	log      *slog.Logger
	commands map[string]Command

	mu       sync.Mutex // guards commands, rng and channels
	rng      *rand.Rand
	channels Channels
}

// New builds a router with the built-in commands registered.
func New(opts Options) *Router {
	if opts.SendTimeout <= 0 {
		opts.SendTimeout = defaultSendTimeout
	}
	if opts.CanLeave == nil {
		opts.CanLeave = func(string) bool { return true }
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	rng := opts.Rand
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}

	r := &Router{opts: opts, log: opts.Logger, rng: rng}
	r.commands = map[string]Command{
		"h":        r.help,
		"help":     r.help,
		"join":     r.join,
		"leave":    r.leave,
		"math":     r.math,
		"password": r.password,
		"stats":    r.stats,
		"toss":     r.toss,
	}
	return r
}

// Bind sets the channel manager used by join and leave. It must be called
// before the first event arrives.
func (r *Router) Bind(c Channels) {
	r.mu.Lock()
	r.channels = c
	r.mu.Unlock()
}

// Register adds or replaces a command. It is safe to call while events are
// being handled.
func (r *Router) Register(name string, c Command) {
	r.mu.Lock()
	r.commands[name] = c
	r.mu.Unlock()
}

// Commands returns the registered command names, sorted.
func (r *Router) Commands() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	names := make([]string, 0, len(r.commands))
	for name := range r.commands {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Handle is a hackchat.Handler.
func (r *Router) Handle(s *hackchat.Session, ev hackchat.Event) {
	r.dispatch(s, ev)
}

func (r *Router) dispatch(c Chat, ev hackchat.Event) {
	ctx, cancel := context.WithTimeout(context.Background(), r.opts.SendTimeout)
	defer cancel()

	var err error
	switch ev := ev.(type) {
	case hackchat.Message:
		if ev.Nick == c.Nick() {
			return
		}
		q, ok := r.parse(c, ev)
		if !ok {
			return
		}
		r.mu.Lock()
		cmd, ok := r.commands[q.Name]
		r.mu.Unlock()
		if !ok {
			return
		}
		r.log.Debug("command", "channel", c.Channel(), "nick", ev.Nick, "trip", ev.Trip, "name", q.Name)
		err = cmd(ctx, q)
	case hackchat.Stats:
		err = c.Send(ctx, fmt.Sprintf("There are %d unique IPs in %d channels.", ev.UniqueIPs, ev.Channels))
	case hackchat.Warning:
		r.log.Warn("server warning", "channel", c.Channel(), "reason", ev.Reason)
	}
	if err != nil {
		r.log.Warn("reply failed", "channel", c.Channel(), "error", err)
	}
}

// parse splits "<trigger><name> <args>".
func (r *Router) parse(c Chat, m hackchat.Message) (*Request, bool) {
	text := strings.TrimSpace(m.Text)
	if r.opts.Trigger == "" || !strings.HasPrefix(text, r.opts.Trigger) {
		return nil, false
	}
	rest := text[len(r.opts.Trigger):]

	name, args := rest, ""
	if i := strings.IndexFunc(rest, unicode.IsSpace); i >= 0 {
		name, args = rest[:i], strings.TrimSpace(rest[i:])
	}
	if name == "" {
		return nil, false
	}
	return &Request{Chat: c, From: m.Nick, Name: name, Args: args}, true
}

func (r *Router) boundChannels() Channels {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.channels
}

func (r *Router) intN(n int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rng.IntN(n)
}
