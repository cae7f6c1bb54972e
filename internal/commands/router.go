package commands

import (
	"context"
	"fmt"
	"log"
	"runtime/debug"
	"strings"

	"github.com/dayuer/guardbot-go/internal/bus"
	"github.com/dayuer/guardbot-go/internal/pipeline"
	"github.com/dayuer/guardbot-go/internal/privilege"
)

// DefaultPrefixes are the command prefixes besides the platform's own '/'.
var DefaultPrefixes = []string{"!", "?"}

// Guard is a predicate evaluated before a command body. A false result
// skips the body; the event is still consumed.
type Guard struct {
	Name  string
	Allow func(ctx context.Context, c *Context, e *Entry) bool
}

// RouterConfig wires a Router.
type RouterConfig struct {
	Prefixes    []string
	BotUsername func() string
	Privilege   *privilege.Checker
	Bus         *bus.MessageBus
	Reporter    pipeline.FaultReporter
}

// Router is the pipeline stage that dispatches commands.
type Router struct {
	registry  *Registry
	guards    []Guard
	prefixes  []string
	botName   func() string
	privilege *privilege.Checker
	bus       *bus.MessageBus
	reporter  pipeline.FaultReporter
}

// NewRouter creates the router stage.
func NewRouter(reg *Registry, guards []Guard, cfg RouterConfig) *Router {
	prefixes := cfg.Prefixes
	if len(prefixes) == 0 {
		prefixes = DefaultPrefixes
	}
	botName := cfg.BotUsername
	if botName == nil {
		botName = func() string { return "" }
	}
	return &Router{
		registry:  reg,
		guards:    guards,
		prefixes:  prefixes,
		botName:   botName,
		privilege: cfg.Privilege,
		bus:       cfg.Bus,
		reporter:  cfg.Reporter,
	}
}

func (r *Router) Name() string { return "command-router" }

// Accepts new text messages that look like a command.
func (r *Router) Accepts(ev *bus.Event) bool {
	if ev.Kind != bus.KindMessage || !ev.HasText() {
		return false
	}
	_, _, _, ok := Parse(ev.Text, r.prefixesFor(ev), r.botName())
	return ok
}

// Handle runs a known command and always stops; unknown names continue.
func (r *Router) Handle(ctx context.Context, ev *bus.Event) (pipeline.Result, error) {
	name, args, rest, ok := Parse(ev.Text, r.prefixesFor(ev), r.botName())
	if !ok {
		return pipeline.Continue, nil
	}
	entry, known := r.registry.Lookup(name)
	if !known {
		return pipeline.Continue, nil
	}

	c := &Context{
		Event:   ev,
		Name:    entry.Name(),
		Invoked: name,
		Args:    args,
		ArgText: rest,
	}
	if r.privilege != nil {
		c.Level = r.privilege.Level(ctx, ev.SenderID())
	}

	for _, g := range r.guards {
		if !g.Allow(ctx, c, entry) {
			log.Printf("[Router] /%s blocked by %s for %d in %d", c.Name, g.Name, ev.SenderID(), ev.Chat.ID)
			return pipeline.Stop, nil
		}
	}

	r.invoke(ctx, entry, c)
	return pipeline.Stop, nil
}

// invoke runs the body, reporting panics and errors as faults.
func (r *Router) invoke(ctx context.Context, entry *Entry, c *Context) {
	defer func() {
		if p := recover(); p != nil {
			r.fail(ctx, c, pipeline.Fault{
				Stage: "command:" + c.Name,
				Event: c.Event,
				Err:   fmt.Errorf("panic: %v", p),
				Panic: p,
				Stack: debug.Stack(),
			})
		}
	}()
	if err := entry.Handler(ctx, c); err != nil {
		r.fail(ctx, c, pipeline.Fault{Stage: "command:" + c.Name, Event: c.Event, Err: err})
	}
}

func (r *Router) fail(ctx context.Context, c *Context, f pipeline.Fault) {
	log.Printf("[Router] ❌ /%s failed: %v", c.Name, f.Err)
	if r.reporter != nil {
		r.reporter.Report(ctx, f)
	}
	if r.bus != nil {
		r.bus.Reply(c.Event, "Something went wrong while running that command.")
	}
}

// CommandName returns the canonical name of the registered command ev invokes.
func (r *Router) CommandName(ev *bus.Event) (string, bool) {
	if !ev.HasText() {
		return "", false
	}
	name, _, _, ok := Parse(ev.Text, r.prefixesFor(ev), r.botName())
	if !ok {
		return "", false
	}
	e, known := r.registry.Lookup(name)
	if !known {
		return "", false
	}
	return e.Name(), true
}

// LooksLikeCommand reports whether ev's text starts with a command prefix.
func (r *Router) LooksLikeCommand(ev *bus.Event) bool {
	if !ev.HasText() {
		return false
	}
	_, _, _, ok := Parse(ev.Text, r.prefixesFor(ev), r.botName())
	return ok
}

func (r *Router) prefixesFor(ev *bus.Event) []string {
	if ev.IsCommand {
		return append([]string{"/"}, r.prefixes...)
	}
	return r.prefixes
}

// Parse splits text into a command name, positional args and the raw argument
// text. The name is case-folded and stripped of its prefix and of an
// "@botname" suffix; a suffix naming another bot means the command is not ours.
func Parse(text string, prefixes []string, botUsername string) (name string, args []string, rest string, ok bool) {
	if text == "" {
		return "", nil, "", false
	}
	var prefix string
	for _, p := range prefixes {
		if p != "" && strings.HasPrefix(text, p) {
			prefix = p
			break
		}
	}
	if prefix == "" {
		return "", nil, "", false
	}

	fields := strings.Fields(text)
	if len(fields) == 0 {
		return "", nil, "", false
	}
	token := strings.TrimPrefix(fields[0], prefix)
	if at := strings.IndexByte(token, '@'); at >= 0 {
		target := token[at+1:]
		if target != "" && botUsername != "" && !strings.EqualFold(target, botUsername) {
			return "", nil, "", false
		}
		token = token[:at]
	}
	name = strings.ToLower(token)
	if name == "" {
		return "", nil, "", false
	}

	rest = strings.TrimSpace(strings.TrimPrefix(text, fields[0]))
	return name, fields[1:], rest, true
}
