package resolver

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dayuer/guardbot-go/internal/bus"
	"github.com/dayuer/guardbot-go/internal/privilege"
	"github.com/dayuer/guardbot-go/internal/usersession"
)

func newTestResolver(cache *memCache, primary, secondary *fakeDirectory) *Resolver {
	cfg := Config{Cache: cache, PrimaryTimeout: 50 * time.Millisecond, SecondaryTimeout: 50 * time.Millisecond}
	if primary != nil {
		cfg.Primary = primary
	}
	if secondary != nil {
		cfg.Secondary = secondary
	}
	return New(cfg)
}

func TestNormalize(t *testing.T) {
	cases := []struct {
		in     string
		id     int64
		handle string
		ok     bool
	}{
		{"12345", 12345, "", true},
		{"-1001234", -1001234, "", true},
		{"@Alice", 0, "alice", true},
		{"bob", 0, "bob", true},
		{"  @Carol  ", 0, "carol", true},
		{"", 0, "", false},
		{"@", 0, "", false},
		{"0", 0, "", false},
	}
	for _, tc := range cases {
		id, handle, ok := Normalize(tc.in)
		assert.Equal(t, tc.id, id, tc.in)
		assert.Equal(t, tc.handle, handle, tc.in)
		assert.Equal(t, tc.ok, ok, tc.in)
	}
}

func TestResolve_ReplyHintWritesCache(t *testing.T) {
	cache := newMemCache()
	primary := &fakeDirectory{}
	r := newTestResolver(cache, primary, nil)

	ev := &bus.Event{ReplyTo: &bus.Event{Sender: &bus.User{ID: 55, FirstName: "Dan", Username: "dan"}}}
	ident, src, err := r.ResolveSource(context.Background(), Request{Event: ev})

	require.NoError(t, err)
	assert.Equal(t, SourceHint, src)
	assert.Equal(t, int64(55), ident.ID)
	assert.Equal(t, 0, primary.callCount())
	_, cached := cache.ByHandle(context.Background(), "dan")
	assert.True(t, cached)
}

func TestResolve_ReplyHintChannelSender(t *testing.T) {
	r := newTestResolver(newMemCache(), nil, nil)
	ev := &bus.Event{ReplyTo: &bus.Event{
		Sender:     &bus.User{ID: 136817688, FirstName: "Channel"},
		SenderChat: &bus.Chat{ID: -1009, Type: bus.ChatChannel, Title: "News"},
	}}
	ident, err := r.Resolve(context.Background(), Request{Event: ev})
	require.NoError(t, err)
	assert.Equal(t, int64(-1009), ident.ID)
	assert.Equal(t, bus.IdentityChannel, ident.Kind)
}

func TestResolve_TextMentionHint(t *testing.T) {
	cache := newMemCache()
	primary := &fakeDirectory{}
	r := newTestResolver(cache, primary, nil)

	ev := &bus.Event{
		Text: "!kick Eve now",
		Entities: []bus.Entity{
			{Type: bus.EntityTextMention, Offset: 6, Length: 3, User: &bus.User{ID: 66, FirstName: "Eve"}},
		},
	}
	ident, src, err := r.ResolveSource(context.Background(), Request{Ref: "Eve", Event: ev})

	require.NoError(t, err)
	assert.Equal(t, SourceHint, src)
	assert.Equal(t, int64(66), ident.ID)
	assert.Equal(t, 1, cache.putCount())
	assert.Equal(t, 0, primary.callCount())
}

func TestResolve_TextMentionHintIgnoresAt(t *testing.T) {
	r := newTestResolver(newMemCache(), &fakeDirectory{}, nil)
	mention := bus.Entity{Type: bus.EntityTextMention, Offset: 6, Length: 4, User: &bus.User{ID: 67, FirstName: "Eve"}}

	ev := &bus.Event{Text: "!kick @Eve now", Entities: []bus.Entity{mention}}
	ident, src, err := r.ResolveSource(context.Background(), Request{Ref: "eve", Event: ev})
	require.NoError(t, err)
	assert.Equal(t, SourceHint, src)
	assert.Equal(t, int64(67), ident.ID)

	mention.Length = 3
	ev = &bus.Event{Text: "!kick Eve now", Entities: []bus.Entity{mention}}
	ident, src, err = r.ResolveSource(context.Background(), Request{Ref: "@EVE", Event: ev})
	require.NoError(t, err)
	assert.Equal(t, SourceHint, src)
	assert.Equal(t, int64(67), ident.ID)
}

func TestResolve_CacheHitSkipsDirectories(t *testing.T) {
	cache := newMemCache()
	require.NoError(t, cache.Put(context.Background(), bus.Identity{ID: 12345, FirstName: "Zed"}))
	puts := cache.putCount()

	primary := &fakeDirectory{}
	secondary := &fakeDirectory{}
	r := newTestResolver(cache, primary, secondary)

	ident, src, err := r.ResolveSource(context.Background(), Request{Ref: "12345", Privilege: privilege.Owner})

	require.NoError(t, err)
	assert.Equal(t, SourceCache, src)
	assert.Equal(t, "Zed", ident.FirstName)
	assert.Equal(t, 0, primary.callCount())
	assert.Equal(t, 0, secondary.callCount())
	assert.Equal(t, puts, cache.putCount(), "cache step never writes")
}

func TestResolve_PrimaryHitWritesBack(t *testing.T) {
	cache := newMemCache()
	primary := &fakeDirectory{entries: map[string]bus.Identity{
		"@frank": {ID: 77, FirstName: "Frank", Handle: "frank"},
	}}
	r := newTestResolver(cache, primary, nil)

	ident, src, err := r.ResolveSource(context.Background(), Request{Ref: "@Frank"})
	require.NoError(t, err)
	assert.Equal(t, SourcePrimary, src)
	assert.Equal(t, int64(77), ident.ID)

	_, src, err = r.ResolveSource(context.Background(), Request{Ref: "@frank"})
	require.NoError(t, err)
	assert.Equal(t, SourceCache, src)
	assert.Equal(t, 1, primary.callCount())
}

func TestResolve_PrivilegeGateBlocksSecondary(t *testing.T) {
	primary := &fakeDirectory{err: errDirectoryDown}
	secondary := &fakeDirectory{entries: map[string]bus.Identity{"@ghost": {ID: 9}}}
	r := newTestResolver(newMemCache(), primary, secondary)

	_, err := r.Resolve(context.Background(), Request{Ref: "@ghost", Privilege: privilege.None})

	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, 1, primary.callCount())
	assert.Equal(t, 0, secondary.callCount())
}

func TestResolve_SecondaryForStaffWritesBack(t *testing.T) {
	cache := newMemCache()
	primary := &fakeDirectory{err: errDirectoryDown}
	secondary := &fakeDirectory{entries: map[string]bus.Identity{"@ghost": {ID: 9, Handle: "ghost"}}}
	r := newTestResolver(cache, primary, secondary)

	ident, src, err := r.ResolveSource(context.Background(), Request{Ref: "@ghost", Privilege: privilege.Support})
	require.NoError(t, err)
	assert.Equal(t, SourceSecondary, src)
	assert.Equal(t, int64(9), ident.ID)

	_, ok := cache.ByHandle(context.Background(), "ghost")
	assert.True(t, ok)
}

func TestResolve_SecondaryNotConfiguredIsNotFound(t *testing.T) {
	r := New(Config{
		Cache:     newMemCache(),
		Primary:   &fakeDirectory{err: errDirectoryDown},
		Secondary: usersession.NewClient(usersession.Config{}),
	})
	_, err := r.Resolve(context.Background(), Request{Ref: "@x", Privilege: privilege.Owner})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestResolve_PrimaryTimeoutFallsThrough(t *testing.T) {
	primary := &fakeDirectory{block: true}
	secondary := &fakeDirectory{entries: map[string]bus.Identity{"42": {ID: 42}}}
	r := newTestResolver(newMemCache(), primary, secondary)

	start := time.Now()
	ident, src, err := r.ResolveSource(context.Background(), Request{Ref: "42", Privilege: privilege.Sudo})

	require.NoError(t, err)
	assert.Equal(t, SourceSecondary, src)
	assert.Equal(t, int64(42), ident.ID)
	assert.Less(t, time.Since(start), time.Second)
}

func TestResolve_EmptyRefWithoutReply(t *testing.T) {
	r := newTestResolver(newMemCache(), &fakeDirectory{}, nil)
	_, err := r.Resolve(context.Background(), Request{Event: &bus.Event{Text: "!kick"}})
	assert.ErrorIs(t, err, ErrNotFound)
}

// A sudo user runs "!kick @alice"; alice is unknown locally and invisible to
// the bot session, the user session finds her, and the next lookup is local.
func TestResolve_KickAliceScenario(t *testing.T) {
	cache := newMemCache()
	primary := &fakeDirectory{}
	secondary := &fakeDirectory{entries: map[string]bus.Identity{
		"@alice": {ID: 1234, Kind: bus.IdentityUser, FirstName: "Alice", Handle: "alice"},
	}}
	r := newTestResolver(cache, primary, secondary)
	ev := &bus.Event{Text: "!kick @alice", Entities: []bus.Entity{{Type: bus.EntityMention, Offset: 6, Length: 6}}}

	ident, src, err := r.ResolveSource(context.Background(), Request{Ref: "@alice", Event: ev, Privilege: privilege.Sudo})
	require.NoError(t, err)
	assert.Equal(t, SourceSecondary, src)
	assert.Equal(t, int64(1234), ident.ID)
	assert.Equal(t, 1, primary.callCount())
	assert.Equal(t, 1, secondary.callCount())

	cached, ok := cache.ByHandle(context.Background(), "alice")
	require.True(t, ok)
	assert.Equal(t, int64(1234), cached.ID)

	_, src, err = r.ResolveSource(context.Background(), Request{Ref: "@alice", Event: ev, Privilege: privilege.Sudo})
	require.NoError(t, err)
	assert.Equal(t, SourceCache, src)
	assert.Equal(t, 1, primary.callCount())
	assert.Equal(t, 1, secondary.callCount())

	stats := r.Stats()
	assert.Equal(t, int64(1), stats["secondary"])
	assert.Equal(t, int64(1), stats["cache"])
}
