package commands

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dayuer/guardbot-go/internal/bus"
	"github.com/dayuer/guardbot-go/internal/pipeline"
)

func TestParse(t *testing.T) {
	cases := []struct {
		text string
		name string
		args []string
		rest string
		ok   bool
	}{
		{"!ping", "ping", []string{}, "", true},
		{"?KICK @bob spam", "kick", []string{"@bob", "spam"}, "@bob spam", true},
		{"!ping@GuardBot", "ping", []string{}, "", true},
		{"!ping@otherbot", "", nil, "", false},
		{"hello !ping", "", nil, "", false},
		{"!", "", nil, "", false},
		{"", "", nil, "", false},
		{"/ping", "", nil, "", false},
	}
	for _, tc := range cases {
		name, args, rest, ok := Parse(tc.text, DefaultPrefixes, "guardbot")
		assert.Equal(t, tc.ok, ok, tc.text)
		if !tc.ok {
			continue
		}
		assert.Equal(t, tc.name, name, tc.text)
		assert.Equal(t, tc.args, args, tc.text)
		assert.Equal(t, tc.rest, rest, tc.text)
	}
}

func TestBuild_DuplicateNameFails(t *testing.T) {
	noop := func(ctx context.Context, c *Context) error { return nil }
	_, err := Build(
		[]Entry{{Names: []string{"save", "addnote"}, Module: "notes", Handler: noop}},
		[]Entry{{Names: []string{"AddNote"}, Module: "other", Handler: noop}},
	)
	assert.Error(t, err)
}

func TestBuild_AliasesShareEntry(t *testing.T) {
	env := newTestEnv(t, nil)
	a, ok := env.registry.Lookup("blist")
	require.True(t, ok)
	b, ok := env.registry.Lookup("BLACKLIST")
	require.True(t, ok)
	assert.Same(t, a, b)
	assert.Equal(t, "blacklist", a.Name())
}

func TestBuildDefault_ConfiguredAlias(t *testing.T) {
	env := newTestEnv(t, nil)
	_, err := BuildDefault(Deps{Bus: env.bus, Store: env.store}, map[string]string{"pong": "ping"})
	require.NoError(t, err)

	_, err = BuildDefault(Deps{Bus: env.bus, Store: env.store}, map[string]string{"x": "nosuch"})
	assert.Error(t, err)
}

func TestRouter_UnknownCommandContinues(t *testing.T) {
	env := newTestEnv(t, nil)
	res, replies := env.run(t, groupMessage(5, "!frobnicate"))
	assert.Equal(t, "continue", res)
	assert.Empty(t, replies)
}

func TestRouter_KnownCommandStops(t *testing.T) {
	env := newTestEnv(t, nil)
	res, replies := env.run(t, groupMessage(5, "!ping"))
	assert.Equal(t, "stop", res)
	require.Len(t, replies, 1)
	assert.Contains(t, replies[0], "Pong")
}

func TestRouter_SlashOnlyWithCommandEntity(t *testing.T) {
	env := newTestEnv(t, nil)
	ev := groupMessage(5, "/ping")
	assert.False(t, env.router.Accepts(ev))

	ev.IsCommand = true
	assert.True(t, env.router.Accepts(ev))
	res, _ := env.run(t, ev)
	assert.Equal(t, "stop", res)
}

func TestRouter_AcceptsOnlyNewMessages(t *testing.T) {
	env := newTestEnv(t, nil)
	ev := groupMessage(5, "!ping")
	ev.Kind = bus.KindEditedMessage
	assert.False(t, env.router.Accepts(ev))
}

func TestRouter_LevelGateSilentlyStops(t *testing.T) {
	env := newTestEnv(t, nil)
	res, replies := env.run(t, groupMessage(5, "!listmodules"))
	assert.Equal(t, "stop", res)
	assert.Empty(t, replies)

	res, replies = env.run(t, groupMessage(testOwner, "!listmodules"))
	assert.Equal(t, "stop", res)
	require.Len(t, replies, 1)
	assert.Contains(t, replies[0], "notes")
}

func TestRouter_ModuleGateOwnerBypass(t *testing.T) {
	env := newTestEnv(t, nil)
	_, err := env.store.DisableModule(context.Background(), "afk")
	require.NoError(t, err)

	_, replies := env.run(t, groupMessage(5, "!afk lunch"))
	assert.Empty(t, replies)

	_, replies = env.run(t, groupMessage(testOwner, "!afk lunch"))
	require.Len(t, replies, 1)
	assert.Contains(t, replies[0], "AFK")
}

func TestRouter_ChatDisabledCommandAllowsManagers(t *testing.T) {
	env := newTestEnv(t, nil)
	_, err := env.store.DisableCommand(context.Background(), testChat, "notes")
	require.NoError(t, err)

	_, replies := env.run(t, groupMessage(5, "!notes"))
	assert.Empty(t, replies)

	env.admin(6)
	_, replies = env.run(t, groupMessage(6, "!saved"))
	require.Len(t, replies, 1)
	assert.Contains(t, replies[0], "No notes")
}

func TestRouter_BodyFailureIsReportedAndAnswered(t *testing.T) {
	env := newTestEnv(t, nil)
	reg, err := Build([]Entry{
		{Names: []string{"boom"}, Handler: func(ctx context.Context, c *Context) error { return errors.New("db down") }},
		{Names: []string{"panic"}, Handler: func(ctx context.Context, c *Context) error { panic("oops") }},
	})
	require.NoError(t, err)

	var faults []pipeline.Fault
	r := NewRouter(reg, nil, RouterConfig{
		Bus:      env.bus,
		Reporter: pipeline.FaultReporterFunc(func(ctx context.Context, f pipeline.Fault) { faults = append(faults, f) }),
	})

	for _, text := range []string{"!boom", "!panic"} {
		res, err := r.Handle(context.Background(), groupMessage(5, text))
		require.NoError(t, err)
		assert.Equal(t, pipeline.Stop, res)
	}
	require.Len(t, faults, 2)
	assert.Equal(t, "command:boom", faults[0].Stage)
	assert.NotNil(t, faults[1].Panic)
	assert.Len(t, env.drain(), 2)
}
