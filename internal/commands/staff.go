package commands

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/dayuer/guardbot-go/internal/bus"
	"github.com/dayuer/guardbot-go/internal/privilege"
)

func (b *Builtins) staffCommands() []Entry {
	return []Entry{
		{Names: []string{"adddev"}, Module: coreModule, MinLevel: privilege.Owner, Help: "<user>: grant the developer role", Handler: b.grantRole(privilege.RoleDeveloper)},
		{Names: []string{"deldev", "rmdev"}, Module: coreModule, MinLevel: privilege.Owner, Help: "<user>: revoke the developer role", Handler: b.revokeRole(privilege.RoleDeveloper)},
		{Names: []string{"addsudo"}, Module: coreModule, MinLevel: privilege.Developer, Help: "<user>: grant the sudo role", Handler: b.grantRole(privilege.RoleSudo)},
		{Names: []string{"delsudo", "rmsudo"}, Module: coreModule, MinLevel: privilege.Developer, Help: "<user>: revoke the sudo role", Handler: b.revokeRole(privilege.RoleSudo)},
		{Names: []string{"addsupport"}, Module: coreModule, MinLevel: privilege.Developer, Help: "<user>: grant the support role", Handler: b.grantRole(privilege.RoleSupport)},
		{Names: []string{"delsupport", "rmsupport"}, Module: coreModule, MinLevel: privilege.Developer, Help: "<user>: revoke the support role", Handler: b.revokeRole(privilege.RoleSupport)},
		{Names: []string{"staff"}, Module: coreModule, MinLevel: privilege.Support, Help: "list bot staff", Handler: b.listStaff},
	}
}

// staffTarget resolves the subject of a role change. Callers below the owner
// may only change roles of users strictly below their own level.
func (b *Builtins) staffTarget(ctx context.Context, c *Context) (bus.Identity, privilege.Level, bool) {
	ident, _, ok := b.targetOrReply(ctx, c)
	if !ok {
		return ident, privilege.None, false
	}
	if ident.Kind == bus.IdentityChannel {
		b.reply(c, "Only users can hold a staff role.")
		return ident, privilege.None, false
	}
	if ident.ID == b.Platform.BotID() || b.Privilege.IsOwner(ident.ID) {
		b.reply(c, "That user's role can't be changed.")
		return ident, privilege.None, false
	}
	current := b.Privilege.Level(ctx, ident.ID)
	if c.Level != privilege.Owner && current.AtLeast(c.Level) {
		b.reply(c, "You can't change the role of someone at or above your level.")
		return ident, current, false
	}
	return ident, current, true
}

func (b *Builtins) grantRole(role string) Handler {
	level := privilege.FromRole(role)
	return func(ctx context.Context, c *Context) error {
		ident, current, ok := b.staffTarget(ctx, c)
		if !ok {
			return nil
		}
		if current == level {
			b.reply(c, fmt.Sprintf("%s is already %s.", ident.DisplayName(), role))
			return nil
		}
		if err := b.Store.SetStaffRole(ctx, ident.ID, role, c.Event.SenderID()); err != nil {
			return err
		}
		log.Printf("[Commands] %d granted %s to %d (was %s)", c.Event.SenderID(), role, ident.ID, current)
		b.reply(c, fmt.Sprintf("%s is now %s.", ident.DisplayName(), role))
		return nil
	}
}

func (b *Builtins) revokeRole(role string) Handler {
	return func(ctx context.Context, c *Context) error {
		ident, current, ok := b.staffTarget(ctx, c)
		if !ok {
			return nil
		}
		if current.String() != role {
			b.reply(c, fmt.Sprintf("%s is not %s.", ident.DisplayName(), role))
			return nil
		}
		removed, err := b.Store.RemoveStaffRole(ctx, ident.ID)
		if err != nil {
			return err
		}
		if !removed {
			b.reply(c, fmt.Sprintf("%s is not %s.", ident.DisplayName(), role))
			return nil
		}
		log.Printf("[Commands] %d revoked %s from %d", c.Event.SenderID(), role, ident.ID)
		b.reply(c, fmt.Sprintf("%s is no longer %s.", ident.DisplayName(), role))
		return nil
	}
}

func (b *Builtins) listStaff(ctx context.Context, c *Context) error {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Owner: %d", b.Privilege.OwnerID())
	for _, role := range []string{privilege.RoleDeveloper, privilege.RoleSudo, privilege.RoleSupport} {
		ids, err := b.Store.StaffByRole(ctx, role)
		if err != nil {
			return err
		}
		if len(ids) == 0 {
			continue
		}
		fmt.Fprintf(&sb, "\n%s:", role)
		for _, id := range ids {
			name := fmt.Sprint(id)
			if u, err := b.Store.GetUser(ctx, id); err == nil && u != nil {
				name = fmt.Sprintf("%s (%d)", u.DisplayName(), id)
			}
			sb.WriteString("\n• " + name)
		}
	}
	b.reply(c, sb.String())
	return nil
}
