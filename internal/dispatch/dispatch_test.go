package dispatch

import (
	"bytes"
	"context"
	"log/slog"
	"math/rand/v2"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hcbot/hackchat"
)

type fakeChat struct {
	channel string
	nick    string

	mu    sync.Mutex
	sent  []string
	stats int
}

func (c *fakeChat) Channel() string { return c.channel }
func (c *fakeChat) Nick() string    { return c.nick }

func (c *fakeChat) Send(_ context.Context, text string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sent = append(c.sent, text)
	return nil
}

func (c *fakeChat) RequestStats(context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stats++
	return nil
}

func (c *fakeChat) messages() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.sent...)
}

type fakeChannels struct {
	joined []string
	left   []string
}

func (f *fakeChannels) JoinAsync(channel string) { f.joined = append(f.joined, channel) }

func (f *fakeChannels) CloseChannel(name string) error {
	f.left = append(f.left, name)
	return nil
}

func newTestRouter(t *testing.T, opts Options) (*Router, *fakeChat, *fakeChannels) {
	t.Helper()
	if opts.Trigger == "" {
		opts.Trigger = "."
	}
	if opts.Rand == nil {
		opts.Rand = rand.New(rand.NewPCG(7, 7))
	}
	r := New(opts)
	ch := &fakeChannels{}
	r.Bind(ch)
	return r, &fakeChat{channel: "programming", nick: "bot"}, ch
}

func say(r *Router, c *fakeChat, nick, text string) {
	r.dispatch(c, hackchat.Message{Nick: nick, Text: text})
}

func TestHelp(t *testing.T) {
	r, c, _ := newTestRouter(t, Options{GitHub: "https://example.com/hcbot"})

	say(r, c, "alice", ".help")
	say(r, c, "alice", ".h")

	msgs := c.messages()
	require.Len(t, msgs, 2)
	want := "@alice .h .help .join .leave .math .password .stats .toss\nsource code: https://example.com/hcbot"
	assert.Equal(t, want, msgs[0])
	assert.Equal(t, want, msgs[1])
}

func TestShortHelpNeedsNoArguments(t *testing.T) {
	r, c, _ := newTestRouter(t, Options{})

	say(r, c, "alice", ".h i everyone")
	assert.Empty(t, c.messages())
}

func TestMathCommand(t *testing.T) {
	r, c, _ := newTestRouter(t, Options{})

	say(r, c, "alice", ".math (-2) ** 4")
	say(r, c, "alice", ".math 1 / 0")
	say(r, c, "alice", ".math")

	msgs := c.messages()
	require.Len(t, msgs, 3)
	assert.Equal(t, "@alice 16", msgs[0])
	assert.Equal(t, "@alice Sorry, I couldn't solve that.", msgs[1])
	assert.True(t, strings.HasPrefix(msgs[2], "@alice solves math problems"))
}

func TestIgnoredMessages(t *testing.T) {
	r, c, _ := newTestRouter(t, Options{})

	say(r, c, "alice", "hello there")
	say(r, c, "alice", ".")
	say(r, c, "alice", ".nosuchcommand")
	say(r, c, "bot", ".help") // own echo
	say(r, c, "alice", "help.")

	assert.Empty(t, c.messages())
}

func TestMultiCharTrigger(t *testing.T) {
	r, c, _ := newTestRouter(t, Options{Trigger: "bot:"})

	say(r, c, "alice", "  bot:toss  ")
	say(r, c, "alice", "bot toss")

	msgs := c.messages()
	require.Len(t, msgs, 1)
	assert.Regexp(t, `^@alice (heads|tails)$`, msgs[0])
}

func TestJoin(t *testing.T) {
	r, c, ch := newTestRouter(t, Options{})

	say(r, c, "alice", ".join   math ")
	assert.Equal(t, []string{"math"}, ch.joined)

	say(r, c, "alice", ".join")
	msgs := c.messages()
	require.Len(t, msgs, 1)
	assert.True(t, strings.HasPrefix(msgs[0], "@alice joins a hack.chat channel (e.g., .join ben)"))
	assert.Len(t, ch.joined, 1)
}

func TestLeave(t *testing.T) {
	r, c, ch := newTestRouter(t, Options{
		CanLeave: func(channel string) bool { return channel != "botDev" },
	})

	say(r, c, "alice", ".leave")
	assert.Equal(t, []string{"programming"}, ch.left)
	assert.Empty(t, c.messages())

	home := &fakeChat{channel: "botDev", nick: "bot"}
	say(r, home, "alice", ".leave")
	assert.Equal(t, []string{"I cannot leave this channel."}, home.messages())
	assert.Len(t, ch.left, 1)
}

func TestStatsRoundTrip(t *testing.T) {
	r, c, _ := newTestRouter(t, Options{})

	say(r, c, "alice", ".stats")
	assert.Equal(t, 1, c.stats)

	r.dispatch(c, hackchat.Stats{UniqueIPs: 42, Channels: 7})
	assert.Equal(t, []string{"There are 42 unique IPs in 7 channels."}, c.messages())
}

func TestToss(t *testing.T) {
	r, c, _ := newTestRouter(t, Options{})

	for i := 0; i < 20; i++ {
		say(r, c, "alice", ".toss")
	}
	seen := map[string]bool{}
	for _, m := range c.messages() {
		seen[m] = true
	}
	assert.Equal(t, map[string]bool{"@alice heads": true, "@alice tails": true}, seen)
}

func TestPasswordCommand(t *testing.T) {
	r, c, _ := newTestRouter(t, Options{})

	say(r, c, "alice", ".password")
	say(r, c, "alice", ".password Tr0ub4dor&3xyz")

	msgs := c.messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, "@alice strengthens a password (e.g., .password gum)", msgs[0])
	assert.Equal(t, "@alice Tr0ub4dor&3xyz", msgs[1])
}

func TestWarningIsLogged(t *testing.T) {
	var buf bytes.Buffer
	r, c, _ := newTestRouter(t, Options{Logger: slog.New(slog.NewTextHandler(&buf, nil))})

	r.dispatch(c, hackchat.Warning{Reason: "You are joining channels too fast."})

	assert.Empty(t, c.messages())
	assert.Contains(t, buf.String(), "joining channels too fast")
}

func TestRegister(t *testing.T) {
	r, c, _ := newTestRouter(t, Options{})
	r.Register("echo", func(ctx context.Context, q *Request) error {
		return q.Reply(ctx, q.Args)
	})

	say(r, c, "alice", ".echo a  b")
	assert.Equal(t, []string{"@alice a  b"}, c.messages())
	assert.Contains(t, r.Commands(), "echo")
}

func TestRegisterWhileDispatching(t *testing.T) {
	r, c, _ := newTestRouter(t, Options{})

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 100; i++ {
			say(r, c, "alice", ".help")
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 100; i++ {
			r.Register("noop", func(context.Context, *Request) error { return nil })
		}
	}()
	wg.Wait()

	assert.Len(t, c.messages(), 100)
}

func TestUnboundRouterIgnoresJoin(t *testing.T) {
	r := New(Options{Trigger: "."})
	c := &fakeChat{channel: "x", nick: "bot"}
	say(r, c, "alice", ".join y")
	say(r, c, "alice", ".leave")
	assert.Empty(t, c.messages())
}
