package hackchat

import (
	"math/rand/v2"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRosterReplay(t *testing.T) {
	nicks := []string{"alice", "bob", "carol", "dave", "eve"}
	rng := rand.New(rand.NewPCG(1, 2))

	for round := 0; round < 50; round++ {
		r := NewRoster()
		model := map[string]bool{}

		for step := 0; step < 40; step++ {
			nick := nicks[rng.IntN(len(nicks))]
			if rng.IntN(2) == 0 {
				r.Add(nick)
				model[nick] = true
			} else {
				r.Remove(nick)
				delete(model, nick)
			}
		}

		want := make([]string, 0, len(model))
		for n := range model {
			want = append(want, n)
		}
		sort.Strings(want)

		assert.Equal(t, want, r.Nicks(), "round %d", round)
		assert.Equal(t, len(want), r.Len())
	}
}

func TestRosterIdempotentAdd(t *testing.T) {
	r := NewRoster()
	r.Add("alice")
	r.Add("alice")
	assert.Equal(t, 1, r.Len())
}

func TestRosterRemoveAbsent(t *testing.T) {
	r := NewRoster()
	r.Remove("ghost")
	assert.Equal(t, 0, r.Len())
	assert.Empty(t, r.Nicks())
}

func TestRosterReset(t *testing.T) {
	r := NewRoster()
	r.Add("stale")
	r.Reset([]string{"alice", "bob", "alice"})
	assert.Equal(t, []string{"alice", "bob"}, r.Nicks())
	assert.False(t, r.Contains("stale"))
}
