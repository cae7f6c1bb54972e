package commands

import (
	"context"
	"errors"
	"path/filepath"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dayuer/guardbot-go/internal/bus"
	"github.com/dayuer/guardbot-go/internal/identcache"
	"github.com/dayuer/guardbot-go/internal/pipeline"
	"github.com/dayuer/guardbot-go/internal/privilege"
	"github.com/dayuer/guardbot-go/internal/resolver"
	"github.com/dayuer/guardbot-go/internal/store"
	"github.com/dayuer/guardbot-go/internal/telegram"
)

const (
	testOwner = int64(1)
	testBot   = int64(999)
	testChat  = int64(-100)
)

// fakePlatform records moderation calls and answers member lookups from a map.
type fakePlatform struct {
	mu      sync.Mutex
	members map[int64]telegram.ChatMember
	banned  []int64
	unbans  []int64
	deleted []int64
	muted   map[int64]bool
}

func newFakePlatform() *fakePlatform {
	return &fakePlatform{
		members: map[int64]telegram.ChatMember{
			testBot: {Status: telegram.StatusAdministrator, CanRestrictMembers: true, CanDeleteMessages: true},
		},
		muted: map[int64]bool{},
	}
}

func (f *fakePlatform) BotID() int64 { return testBot }

func (f *fakePlatform) GetChatMember(ctx context.Context, chatID, userID int64) (telegram.ChatMember, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.members[userID]
	if !ok {
		return telegram.ChatMember{Status: telegram.StatusMember}, nil
	}
	return m, nil
}

func (f *fakePlatform) BanChatMember(ctx context.Context, chatID, userID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.banned = append(f.banned, userID)
	return nil
}

func (f *fakePlatform) UnbanChatMember(ctx context.Context, chatID, userID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.unbans = append(f.unbans, userID)
	return nil
}

func (f *fakePlatform) DeleteMessage(ctx context.Context, chatID, messageID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, messageID)
	return nil
}

func (f *fakePlatform) RestrictChatMember(ctx context.Context, chatID, userID int64, perms telegram.ChatPermissions) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.muted[userID] = !perms.CanSendMessages
	return nil
}

func (f *fakePlatform) isMuted(userID int64) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.muted[userID]
}

func (f *fakePlatform) unbannedIDs() []int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]int64(nil), f.unbans...)
}

func (f *fakePlatform) setMember(userID int64, m telegram.ChatMember) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.members[userID] = m
}

func (f *fakePlatform) bannedIDs() []int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]int64(nil), f.banned...)
}

// mapDirectory is a primary directory backed by a map. Numeric refs that are
// not in the map resolve to a bare identity, like a bot API lookup by id.
type mapDirectory map[string]bus.Identity

func (d mapDirectory) Lookup(ctx context.Context, ref string) (bus.Identity, error) {
	if ident, ok := d[ref]; ok {
		return ident, nil
	}
	if id, err := strconv.ParseInt(ref, 10, 64); err == nil {
		return bus.Identity{ID: id}, nil
	}
	return bus.Identity{}, errors.New("not found")
}

type invalidations struct {
	mu    sync.Mutex
	chats []int64
}

func (i *invalidations) Invalidate(chatID int64) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.chats = append(i.chats, chatID)
}

type testEnv struct {
	store    *store.Store
	bus      *bus.MessageBus
	platform *fakePlatform
	registry *Registry
	router   *Router
	faults   []error
	inval    *invalidations
}

func newTestEnv(t *testing.T, primary mapDirectory) *testEnv {
	t.Helper()
	st, err := store.Open(store.DriverSQLite, filepath.Join(t.TempDir(), "guardbot.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	env := &testEnv{
		store:    st,
		bus:      bus.NewMessageBus(),
		platform: newFakePlatform(),
		inval:    &invalidations{},
	}
	checker := privilege.NewChecker(testOwner, st)
	res := resolver.New(resolver.Config{
		Cache:          identcache.New(st, time.Hour),
		Primary:        primary,
		PrimaryTimeout: time.Second,
	})

	reg, err := BuildDefault(Deps{
		Bus:       env.bus,
		Store:     st,
		Resolver:  res,
		Privilege: checker,
		Platform:  env.platform,
		Filters:   env.inval,
	}, nil)
	require.NoError(t, err)
	env.registry = reg

	var mu sync.Mutex
	env.router = NewRouter(reg, []Guard{
		LevelGate(),
		ModuleGate(st),
		ChatCommandGate(st, env.platform),
	}, RouterConfig{
		BotUsername: func() string { return "guardbot" },
		Privilege:   checker,
		Bus:         env.bus,
		Reporter: pipelineReporter(func(err error) {
			mu.Lock()
			defer mu.Unlock()
			env.faults = append(env.faults, err)
		}),
	})
	return env
}

// groupMessage builds a group message from sender.
func groupMessage(sender int64, text string) *bus.Event {
	return &bus.Event{
		Channel:   "telegram",
		Kind:      bus.KindMessage,
		MessageID: 10,
		Chat:      bus.Chat{ID: testChat, Type: bus.ChatSupergroup, Title: "Test"},
		Sender:    &bus.User{ID: sender, FirstName: "User"},
		Text:      text,
	}
}

// run routes ev and returns the result and every queued reply.
func (e *testEnv) run(t *testing.T, ev *bus.Event) (string, []string) {
	t.Helper()
	res, err := e.router.Handle(context.Background(), ev)
	require.NoError(t, err)
	return res.String(), e.drain()
}

func (e *testEnv) drain() []string {
	var out []string
	for {
		select {
		case msg := <-e.bus.Outbound:
			out = append(out, msg.Content)
		default:
			return out
		}
	}
}

func (e *testEnv) admin(userID int64) {
	e.platform.setMember(userID, telegram.ChatMember{
		Status: telegram.StatusAdministrator, CanRestrictMembers: true, CanManageChat: true,
	})
}

func pipelineReporter(fn func(error)) pipeline.FaultReporter {
	return pipeline.FaultReporterFunc(func(ctx context.Context, f pipeline.Fault) { fn(f.Err) })
}
