package dispatch

import (
	"context"
	"strings"
)

func (r *Router) help(ctx context.Context, q *Request) error {
	// "h" with arguments is left free for chat like "h i".
	if q.Name == "h" && q.Args != "" {
		return nil
	}
	t := r.opts.Trigger
	text := t + strings.Join(r.Commands(), " "+t)
	if r.opts.GitHub != "" {
		text += "\nsource code: " + r.opts.GitHub
	}
	return q.Reply(ctx, text)
}

func (r *Router) join(ctx context.Context, q *Request) error {
	if q.Args == "" {
		return q.Reply(ctx, "joins a hack.chat channel (e.g., "+r.opts.Trigger+"join ben)\n"+
			"You can also invite the bot via the sidebar.")
	}
	ch := r.boundChannels()
	if ch == nil {
		return nil
	}
	ch.JoinAsync(q.Args)
	return nil
}

func (r *Router) leave(ctx context.Context, q *Request) error {
	channel := q.Chat.Channel()
	if !r.opts.CanLeave(channel) {
		return q.Chat.Send(ctx, "I cannot leave this channel.")
	}
	ch := r.boundChannels()
	if ch == nil {
		return nil
	}
	return ch.CloseChannel(channel)
}

func (r *Router) stats(ctx context.Context, q *Request) error {
	return q.Chat.RequestStats(ctx)
}

func (r *Router) toss(ctx context.Context, q *Request) error {
	side := "tails"
	if r.intN(2) == 1 {
		side = "heads"
	}
	return q.Reply(ctx, side)
}

func (r *Router) password(ctx context.Context, q *Request) error {
	if q.Args == "" {
		return q.Reply(ctx, "strengthens a password (e.g., "+r.opts.Trigger+"password gum)")
	}
	r.mu.Lock()
	pwd := Strengthen(q.Args, r.rng)
	r.mu.Unlock()
	return q.Reply(ctx, pwd)
}

func (r *Router) math(ctx context.Context, q *Request) error {
	if q.Args == "" {
		return q.Reply(ctx, "solves math problems (e.g., (-2) ** 4)\n"+
			`How to use: "+" addition, "-" subtraction, "*" multiplication, "/" division, `+
			`"//" floor division, "**" exponentiation, "%" remainder, "(" and ")" group`)
	}
	v, err := Evaluate(q.Args)
	if err != nil {
		return q.Reply(ctx, "Sorry, I couldn't solve that.")
	}
	return q.Reply(ctx, formatNumber(v))
}
