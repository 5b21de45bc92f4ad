package chat

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeMember struct {
	name string
}

func (f *fakeMember) Username() string { return f.name }

func TestRoom_AppendMessageIndices(t *testing.T) {
	room := NewRoom("Open Mic")

	for i := 0; i < 5; i++ {
		posted := room.AppendMessage("alice", fmt.Sprintf("msg %d", i))
		assert.Equal(t, i, posted.Index)
		assert.Empty(t, posted.Message.Reactions)
	}

	history := room.History()
	require.Len(t, history, 5)
	for i, msg := range history {
		assert.Equal(t, fmt.Sprintf("msg %d", i), msg.Body)
	}
}

func TestRoom_ConcurrentAppendsGetDistinctIndices(t *testing.T) {
	room := NewRoom("XP Zone")

	const writers, perWriter = 8, 50
	indices := make(chan int, writers*perWriter)

	var wg sync.WaitGroup
	for w := 0; w < writers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < perWriter; i++ {
				posted := room.AppendMessage(fmt.Sprintf("user%d", w), fmt.Sprintf("%d-%d", w, i))
				indices <- posted.Index
			}
		}(w)
	}
	wg.Wait()
	close(indices)

	seen := make(map[int]bool)
	for idx := range indices {
		assert.False(t, seen[idx], "index %d assigned twice", idx)
		seen[idx] = true
	}
	assert.Len(t, seen, writers*perWriter)
	assert.Equal(t, writers*perWriter, room.Len())
}

func TestRoom_JoinReturnsHistorySnapshot(t *testing.T) {
	room := NewRoom("Study Squad")
	room.AppendMessage("alice", "first")
	room.AppendMessage("bob", "second")

	bob := &fakeMember{name: "bob"}
	res := room.Join(bob)

	require.True(t, res.Added)
	require.Len(t, res.History, 2)
	assert.Equal(t, "first", res.History[0].Body)
	assert.Equal(t, "second", res.History[1].Body)
	assert.Equal(t, []Member{bob}, res.Members)

	room.AppendMessage("alice", "third")
	assert.Len(t, res.History, 2, "snapshot must not grow after join")

	again := room.Join(bob)
	assert.False(t, again.Added)
	assert.Len(t, again.Members, 1)
}

func TestRoom_HistoryUnderConcurrentAppends(t *testing.T) {
	room := NewRoom("Meme Stream")
	for i := 0; i < 10; i++ {
		room.AppendMessage("seed", fmt.Sprintf("seed %d", i))
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 200; i++ {
			room.AppendMessage("writer", fmt.Sprintf("live %d", i))
		}
	}()

	res := room.Join(&fakeMember{name: "reader"})
	<-done

	require.GreaterOrEqual(t, len(res.History), 10)
	full := room.History()
	for i, msg := range res.History {
		assert.Equal(t, full[i].Body, msg.Body, "history must be a prefix of the log")
	}
}

func TestRoom_LeaveIsIdempotentAndClearsTyping(t *testing.T) {
	room := NewRoom("Lo-Fi Corner")
	alice := &fakeMember{name: "alice"}
	bob := &fakeMember{name: "bob"}
	room.Join(alice)
	room.Join(bob)
	room.SetTyping("alice", true)
	room.SetTyping("bob", true)

	res := room.Leave(alice)
	assert.True(t, res.Removed)
	assert.Equal(t, []Member{bob}, res.Members)
	assert.Equal(t, []string{"bob"}, res.Typing)
	assert.False(t, room.IsMember(alice))

	res = room.Leave(alice)
	assert.False(t, res.Removed)
	assert.Equal(t, []string{"bob"}, room.Typing())
}

func TestRoom_ToggleReaction(t *testing.T) {
	room := NewRoom("Code & Coffee")
	room.AppendMessage("alice", "hello")
	room.AppendMessage("bob", "hi")

	t.Run("toggle is its own inverse", func(t *testing.T) {
		_, err := room.ToggleReaction(0, "carol", "🔥")
		require.NoError(t, err)
		before := room.History()[0].Reactions

		_, err = room.ToggleReaction(0, "dave", "👍")
		require.NoError(t, err)
		upd, err := room.ToggleReaction(0, "dave", "👍")
		require.NoError(t, err)

		assert.Equal(t, before, upd.Reactions)
		assert.Equal(t, before, room.History()[0].Reactions)
	})

	t.Run("returns the full canonical map", func(t *testing.T) {
		_, err := room.ToggleReaction(1, "alice", "👍")
		require.NoError(t, err)
		upd, err := room.ToggleReaction(1, "bob", "👍")
		require.NoError(t, err)

		assert.Equal(t, 1, upd.Index)
		assert.Equal(t, Reactions{"👍": {"alice", "bob"}}, upd.Reactions)
	})

	t.Run("out of range leaves messages untouched", func(t *testing.T) {
		before := room.History()

		_, err := room.ToggleReaction(50, "alice", "👍")
		assert.ErrorIs(t, err, ErrOutOfRange)
		_, err = room.ToggleReaction(-1, "alice", "👍")
		assert.ErrorIs(t, err, ErrOutOfRange)

		assert.Equal(t, before, room.History())
	})

	t.Run("blank emoji is rejected", func(t *testing.T) {
		_, err := room.ToggleReaction(0, "alice", "")
		assert.ErrorIs(t, err, ErrInvalidEmoji)
	})

	t.Run("returned map is a copy", func(t *testing.T) {
		upd, err := room.ToggleReaction(0, "erin", "🎉")
		require.NoError(t, err)
		upd.Reactions["🎉"][0] = "mallory"
		assert.Equal(t, []string{"erin"}, room.History()[0].Reactions["🎉"])
	})
}

func TestRoom_ConcurrentTogglesConverge(t *testing.T) {
	room := NewRoom("Wellness Wave")
	room.AppendMessage("alice", "react to me")

	const togglesPerUser = 101
	var wg sync.WaitGroup
	for _, user := range []string{"alice", "bob"} {
		wg.Add(1)
		go func(user string) {
			defer wg.Done()
			for i := 0; i < togglesPerUser; i++ {
				_, err := room.ToggleReaction(0, user, "👍")
				assert.NoError(t, err)
			}
		}(user)
	}
	wg.Wait()

	// An odd number of toggles per user leaves every user reacting exactly once.
	users := room.History()[0].Reactions["👍"]
	assert.ElementsMatch(t, []string{"alice", "bob"}, users)
}

func TestRoom_SetTyping(t *testing.T) {
	room := NewRoom("Open Mic")
	alice := &fakeMember{name: "alice"}
	room.Join(alice)

	upd := room.SetTyping("alice", true)
	assert.True(t, upd.Changed)
	assert.Equal(t, []string{"alice"}, upd.Typing)
	assert.Equal(t, []Member{alice}, upd.Members)

	upd = room.SetTyping("alice", true)
	assert.False(t, upd.Changed)

	room.SetTyping("bob", true)
	assert.Equal(t, []string{"alice", "bob"}, room.Typing())

	upd = room.SetTyping("alice", false)
	assert.True(t, upd.Changed)
	assert.Equal(t, []string{"bob"}, upd.Typing)

	upd = room.SetTyping("carol", false)
	assert.False(t, upd.Changed)
}

func TestUsernames(t *testing.T) {
	members := []Member{&fakeMember{name: "a"}, &fakeMember{name: "b"}, &fakeMember{name: "a"}}
	assert.Equal(t, []string{"a", "b", "a"}, Usernames(members))
}
