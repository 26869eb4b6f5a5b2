package entity

import (
	"context"

	"Concord/internal/bitfield"
	"Concord/internal/events"
	"Concord/internal/rest"
	"Concord/internal/shared/snowflake"
)

type OverwriteType int

const (
	OverwriteRole   OverwriteType = 0
	OverwriteMember OverwriteType = 1
)

// PermissionOverwrite 是频道上针对角色或成员的权限覆盖。
type PermissionOverwrite struct {
	Base
	channelID snowflake.ID
	typ       OverwriteType
	allow     *bitfield.BitField
	deny      *bitfield.BitField
}

func newPermissionOverwrite(c Client, channelID snowflake.ID, data Payload) *PermissionOverwrite {
	id, _ := data.ID("id")
	ow := &PermissionOverwrite{
		Base:      newBase(c, id),
		channelID: channelID,
		allow:     bitfield.Frozen(bitfield.Permissions, 0),
		deny:      bitfield.Frozen(bitfield.Permissions, 0),
	}
	ow.patch(data)
	return ow
}

func (o *PermissionOverwrite) patch(data Payload) {
	if v, ok := data.Int("type"); ok {
		o.typ = OverwriteType(v)
	}
	if v, ok := data.Get("allow"); ok {
		o.allow = bitfield.Frozen(bitfield.Permissions, v)
	}
	if v, ok := data.Get("deny"); ok {
		o.deny = bitfield.Frozen(bitfield.Permissions, v)
	}
}

func (o *PermissionOverwrite) clone() *PermissionOverwrite {
	cp := *o
	return &cp
}

func (o *PermissionOverwrite) Type() OverwriteType       { return o.typ }
func (o *PermissionOverwrite) Allow() *bitfield.BitField { return o.allow }
func (o *PermissionOverwrite) Deny() *bitfield.BitField  { return o.deny }
func (o *PermissionOverwrite) ChannelID() snowflake.ID   { return o.channelID }

func (o *PermissionOverwrite) wire() map[string]any {
	return map[string]any{
		"id":    o.id.String(),
		"type":  int(o.typ),
		"allow": o.allow.String(),
		"deny":  o.deny.String(),
	}
}

// PermissionOverwriteManager 管理单个频道的权限覆盖。
type PermissionOverwriteManager struct {
	cachingManager[snowflake.ID, *PermissionOverwrite]
	channelID snowflake.ID
	guildID   snowflake.ID
}

func newPermissionOverwriteManager(c Client, channelID, guildID snowflake.ID) *PermissionOverwriteManager {
	m := &PermissionOverwriteManager{channelID: channelID, guildID: guildID}
	m.cachingManager = newIDManager(c, CacheOverwrites, func(p Payload) *PermissionOverwrite {
		return newPermissionOverwrite(c, channelID, p)
	}, nil)
	m.parse = func(v any) (snowflake.ID, bool) {
		switch t := v.(type) {
		case *Role:
			return t.id, true
		case *Member:
			return t.userID, true
		case *User:
			return t.id, true
		default:
			return parseID(v)
		}
	}
	return m
}

// OverwriteOptions 描述一次覆盖修改，位可以是名称、位值或数组。
type OverwriteOptions struct {
	Allow any
	Deny  any
}

// Edit 写入目标（角色或成员）的覆盖；merge=true 时在已有覆盖上叠加。
func (m *PermissionOverwriteManager) Edit(ctx context.Context, target any, opts OverwriteOptions, merge bool) error {
	id, err := m.ResolveID(target)
	if err != nil {
		return err
	}
	typ := OverwriteRole
	switch target.(type) {
	case *Member, *User:
		typ = OverwriteMember
	default:
		if g := m.client.Guilds().Get(m.guildID); g != nil && g.roles.Get(id) == nil {
			typ = OverwriteMember
		}
	}

	allow, err := bitfield.Permissions.Resolve(opts.Allow)
	if err != nil {
		return err
	}
	deny, err := bitfield.Permissions.Resolve(opts.Deny)
	if err != nil {
		return err
	}
	if merge {
		m.client.Read(func() {
			if cur := m.Get(id); cur != nil {
				allow, deny = cur.allow.Bits()&^deny|allow, cur.deny.Bits()&^allow|deny
				typ = cur.typ
			}
		})
	}

	body := map[string]any{
		"type":  int(typ),
		"allow": bitfield.Frozen(bitfield.Permissions, allow).String(),
		"deny":  bitfield.Frozen(bitfield.Permissions, deny).String(),
	}
	if _, err := request(ctx, m.client, rest.MethodPut, rest.ChannelPermission(m.channelID.String(), id.String()), body); err != nil {
		return err
	}

	next := Payload{"id": id.String(), "type": float64(typ), "allow": body["allow"], "deny": body["deny"]}
	m.applyOverwrites(func(list []any) []any {
		out := make([]any, 0, len(list)+1)
		for _, item := range list {
			if p, _ := AsPayload(item); p != nil {
				if pid, _ := p.ID("id"); pid == id {
					continue
				}
			}
			out = append(out, item)
		}
		return append(out, map[string]any(next))
	})
	return nil
}

// Delete 删除目标的覆盖。
func (m *PermissionOverwriteManager) Delete(ctx context.Context, target any) error {
	id, err := m.ResolveID(target)
	if err != nil {
		return err
	}
	if _, err := request(ctx, m.client, rest.MethodDelete, rest.ChannelPermission(m.channelID.String(), id.String()), nil); err != nil {
		return err
	}
	m.applyOverwrites(func(list []any) []any {
		out := make([]any, 0, len(list))
		for _, item := range list {
			if p, _ := AsPayload(item); p != nil {
				if pid, _ := p.ID("id"); pid == id {
					continue
				}
			}
			out = append(out, item)
		}
		return out
	})
	return nil
}

// applyOverwrites 以完整覆盖列表构造 CHANNEL_UPDATE，让本地缓存和事件与网关路径一致。
func (m *PermissionOverwriteManager) applyOverwrites(mutate func([]any) []any) {
	m.client.ApplyFunc(events.ChannelUpdate, func() (Payload, bool) {
		ch := m.client.Channels().Get(m.channelID)
		if ch == nil {
			return nil, false
		}
		cur := make([]any, 0, m.cache.Len())
		for _, ow := range m.cache.Values() {
			cur = append(cur, ow.wire())
		}
		return Payload{
			"id":                    m.channelID.String(),
			"type":                  float64(ch.Type()),
			"guild_id":              m.guildID.String(),
			"permission_overwrites": mutate(cur),
		}, true
	})
}
