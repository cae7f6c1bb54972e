package rules

import (
	"context"
	"path/filepath"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dayuer/guardbot-go/internal/bus"
	"github.com/dayuer/guardbot-go/internal/commands"
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

// fakePlatform records every platform call in order.
type fakePlatform struct {
	mu      sync.Mutex
	members map[int64]telegram.ChatMember
	calls   []string
}

func newFakePlatform() *fakePlatform {
	return &fakePlatform{members: map[int64]telegram.ChatMember{
		testBot: {Status: telegram.StatusAdministrator, CanRestrictMembers: true, CanDeleteMessages: true},
	}}
}

func (f *fakePlatform) record(call string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call)
}

func (f *fakePlatform) BotID() int64 { return testBot }

func (f *fakePlatform) GetChatMember(ctx context.Context, chatID, userID int64) (telegram.ChatMember, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if m, ok := f.members[userID]; ok {
		return m, nil
	}
	return telegram.ChatMember{Status: telegram.StatusMember}, nil
}

func (f *fakePlatform) BanChatMember(ctx context.Context, chatID, userID int64) error {
	f.record("ban:" + strconv.FormatInt(userID, 10))
	return nil
}

func (f *fakePlatform) UnbanChatMember(ctx context.Context, chatID, userID int64) error {
	f.record("unban:" + strconv.FormatInt(userID, 10))
	return nil
}

func (f *fakePlatform) DeleteMessage(ctx context.Context, chatID, messageID int64) error {
	f.record("delete:" + strconv.FormatInt(messageID, 10))
	return nil
}

func (f *fakePlatform) RestrictChatMember(ctx context.Context, chatID, userID int64, perms telegram.ChatPermissions) error {
	action := "mute:"
	if perms.CanSendMessages {
		action = "unmute:"
	}
	f.record(action + strconv.FormatInt(userID, 10))
	return nil
}

func (f *fakePlatform) LeaveChat(ctx context.Context, chatID int64) error {
	f.record("leave:" + strconv.FormatInt(chatID, 10))
	return nil
}

func (f *fakePlatform) setMember(userID int64, m telegram.ChatMember) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.members[userID] = m
}

func (f *fakePlatform) callLog() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

type testEnv struct {
	store      *store.Store
	bus        *bus.MessageBus
	platform   *fakePlatform
	cache      *identcache.Cache
	dispatcher *pipeline.Dispatcher
	rules      *Rules
}

func newTestEnv(t *testing.T, opts Options, extra ...func(d *pipeline.Dispatcher, env *testEnv)) *testEnv {
	t.Helper()
	st, err := store.Open(store.DriverSQLite, filepath.Join(t.TempDir(), "guardbot.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	env := &testEnv{
		store:      st,
		bus:        bus.NewMessageBus(),
		platform:   newFakePlatform(),
		cache:      identcache.New(st, time.Hour),
		dispatcher: pipeline.NewDispatcher(nil),
	}
	checker := privilege.NewChecker(testOwner, st)
	filters := NewFilterCache(st, time.Hour)
	res := resolver.New(resolver.Config{Cache: env.cache})

	reg, err := commands.BuildDefault(commands.Deps{
		Bus:       env.bus,
		Store:     st,
		Resolver:  res,
		Privilege: checker,
		Platform:  env.platform,
		Filters:   filters,
	}, nil)
	require.NoError(t, err)
	router := commands.NewRouter(reg, []commands.Guard{commands.LevelGate(), commands.ModuleGate(st)},
		commands.RouterConfig{BotUsername: func() string { return "guardbot" }, Privilege: checker, Bus: env.bus})

	env.rules = New(Deps{
		Bus:       env.bus,
		Store:     st,
		Cache:     env.cache,
		Privilege: checker,
		Platform:  env.platform,
		Router:    router,
		Filters:   filters,
	}, opts)
	for _, fn := range extra {
		fn(env.dispatcher, env)
	}
	env.rules.Register(env.dispatcher)
	return env
}

func (e *testEnv) dispatch(ev *bus.Event) pipeline.Result {
	return e.dispatcher.Dispatch(context.Background(), ev)
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

func (e *testEnv) invocations(stage string) int64 {
	inv := e.dispatcher.Stats()["invocations"].(map[string]int64)
	return inv[stage]
}

func groupMessage(sender int64, text string) *bus.Event {
	return &bus.Event{
		Channel:   "telegram",
		Kind:      bus.KindMessage,
		MessageID: 10,
		Chat:      bus.Chat{ID: testChat, Type: bus.ChatSupergroup, Title: "Test"},
		Sender:    &bus.User{ID: sender, FirstName: "User" + strconv.FormatInt(sender, 10)},
		Text:      text,
	}
}
