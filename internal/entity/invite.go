package entity

import (
	"context"
	"time"

	"Concord/internal/events"
	"Concord/internal/rest"
	"Concord/internal/shared/snowflake"
)

// InviteBaseURL 是邀请链接前缀。
const InviteBaseURL = "https://discord.gg/"

// Invite 以邀请码为键，没有 snowflake 身份。
type Invite struct {
	client       Client
	code         string
	guildID      snowflake.ID
	channelID    snowflake.ID
	inviterID    snowflake.ID
	targetUserID snowflake.ID
	targetType   int
	uses         int
	maxUses      int
	maxAge       int
	temporary    bool
	createdAt    time.Time
	expiresAt    time.Time
	deleted      bool
}

func newInvite(c Client, guildID snowflake.ID, data Payload) *Invite {
	inv := &Invite{client: c, guildID: guildID}
	inv.code, _ = data.String("code")
	inv.patch(data)
	return inv
}

func (inv *Invite) patch(data Payload) {
	if v, ok := data.ID("channel_id"); ok {
		inv.channelID = v
	} else if ch, ok := data.Object("channel"); ok && ch != nil {
		inv.channelID, _ = ch.ID("id")
	}
	if g, ok := data.Object("guild"); ok && g != nil && !inv.guildID.Valid() {
		inv.guildID, _ = g.ID("id")
	}
	if u, ok := data.Object("inviter"); ok && u != nil {
		inv.inviterID, _ = u.ID("id")
	}
	if u, ok := data.Object("target_user"); ok && u != nil {
		inv.targetUserID, _ = u.ID("id")
	}
	if v, ok := data.Int("target_type"); ok {
		inv.targetType = v
	}
	if v, ok := data.Int("uses"); ok {
		inv.uses = v
	}
	if v, ok := data.Int("max_uses"); ok {
		inv.maxUses = v
	}
	if v, ok := data.Int("max_age"); ok {
		inv.maxAge = v
	}
	if v, ok := data.Bool("temporary"); ok {
		inv.temporary = v
	}
	if v, ok := data.Time("created_at"); ok {
		inv.createdAt = v
	}
	if v, ok := data.Time("expires_at"); ok {
		inv.expiresAt = v
	}
}

func (inv *Invite) clone() *Invite {
	cp := *inv
	return &cp
}

func (inv *Invite) markDeleted()            { inv.deleted = true }
func (inv *Invite) Deleted() bool           { return inv.deleted }
func (inv *Invite) Code() string            { return inv.code }
func (inv *Invite) GuildID() snowflake.ID   { return inv.guildID }
func (inv *Invite) ChannelID() snowflake.ID { return inv.channelID }
func (inv *Invite) Uses() int               { return inv.uses }
func (inv *Invite) MaxUses() int            { return inv.maxUses }
func (inv *Invite) MaxAge() int             { return inv.maxAge }
func (inv *Invite) Temporary() bool         { return inv.temporary }
func (inv *Invite) CreatedAt() time.Time    { return inv.createdAt }
func (inv *Invite) URL() string             { return InviteBaseURL + inv.code }

// ExpiresAt 优先使用服务端下发值，否则由 created_at + max_age 推算；永久邀请返回零值。
func (inv *Invite) ExpiresAt() time.Time {
	if !inv.expiresAt.IsZero() {
		return inv.expiresAt
	}
	if inv.maxAge == 0 || inv.createdAt.IsZero() {
		return time.Time{}
	}
	return inv.createdAt.Add(time.Duration(inv.maxAge) * time.Second)
}

func (inv *Invite) Inviter() *User {
	return inv.client.Users().Get(inv.inviterID)
}

func (inv *Invite) TargetUser() *User {
	return inv.client.Users().Get(inv.targetUserID)
}

func (inv *Invite) Channel() Channel {
	return inv.client.Channels().Get(inv.channelID)
}

func (inv *Invite) Guild() *Guild {
	return inv.client.Guilds().Get(inv.guildID)
}

func (inv *Invite) Delete(ctx context.Context) error {
	if isDeleted(inv.client, inv) {
		return stale("invite", inv.code)
	}
	if g := inv.Guild(); g != nil {
		return g.invites.Delete(ctx, inv)
	}
	if _, err := request(ctx, inv.client, rest.MethodDelete, rest.Invite(inv.code), nil); err != nil {
		return err
	}
	inv.client.Apply(events.InviteDelete, Payload{"code": inv.code, "channel_id": inv.channelID.String()})
	return nil
}

type InviteCreateOptions struct {
	MaxAge    *int
	MaxUses   *int
	Temporary bool
	Unique    bool
}

func (o InviteCreateOptions) wire() map[string]any {
	body := map[string]any{"temporary": o.Temporary, "unique": o.Unique}
	setPtr(body, "max_age", o.MaxAge)
	setPtr(body, "max_uses", o.MaxUses)
	return body
}

type InviteManager struct {
	cachingManager[string, *Invite]
	guildID snowflake.ID
}

func newInviteManager(c Client, guildID snowflake.ID) *InviteManager {
	m := &InviteManager{guildID: guildID}
	m.cachingManager = cachingManager[string, *Invite]{
		client:   c,
		kind:     CacheInvites,
		cache:    NewLimitedCollection[string, *Invite](c.CacheLimit(CacheInvites), nil),
		keyField: "code",
		key:      inviteKey,
		keyOf:    func(inv *Invite) string { return inv.code },
		parse:    parseInviteCode,
		build:    func(p Payload) *Invite { return newInvite(c, guildID, p) },
		prepare: func(p Payload) {
			for _, field := range []string{"inviter", "target_user"} {
				if u, ok := p.Object(field); ok && u != nil {
					c.Users().Add(u, true)
				}
			}
		},
	}
	return m
}

func inviteKey(p Payload) (string, bool) {
	code, ok := p.String("code")
	return code, ok && code != ""
}

// parseInviteCode 接受邀请码或完整邀请链接。
func parseInviteCode(v any) (string, bool) {
	s, ok := v.(string)
	if !ok || s == "" {
		return "", false
	}
	for _, prefix := range []string{InviteBaseURL, "https://discord.com/invite/", "discord.gg/"} {
		if len(s) > len(prefix) && s[:len(prefix)] == prefix {
			return s[len(prefix):], true
		}
	}
	return s, true
}

func (m *InviteManager) FetchAll(ctx context.Context, opts FetchOptions) ([]*Invite, error) {
	raw, err := request(ctx, m.client, rest.MethodGet, rest.GuildInvites(m.guildID.String()), nil)
	if err != nil {
		return nil, err
	}
	return m.storeAll(raw, opts)
}

// Fetch 按邀请码拉取，邀请可能属于其它 guild，此时不写缓存。
func (m *InviteManager) Fetch(ctx context.Context, code any, opts FetchOptions) (*Invite, error) {
	key, err := m.ResolveID(code)
	if err != nil {
		return nil, err
	}
	if inv, ok := m.fetchCached(key, opts); ok {
		return inv, nil
	}
	raw, err := request(ctx, m.client, rest.MethodGet, rest.Invite(key), nil)
	if err != nil {
		return nil, err
	}
	data, ok := AsPayload(raw)
	if !ok {
		return nil, malformed("invite", "code")
	}
	if g, ok := data.Object("guild"); ok && g != nil {
		if gid, _ := g.ID("id"); gid != m.guildID {
			opts.NoCache = true
		}
	}
	return m.store(data, opts)
}

// Create 在频道上创建邀请，结果经 INVITE_CREATE 对账。
func (m *InviteManager) Create(ctx context.Context, channel any, opts InviteCreateOptions) (*Invite, error) {
	chID, err := m.client.Channels().resolveLive(channel)
	if err != nil {
		return nil, err
	}
	raw, err := request(ctx, m.client, rest.MethodPost, rest.ChannelInvites(chID.String()), opts.wire())
	if err != nil {
		return nil, err
	}
	data, ok := AsPayload(raw)
	if !ok {
		return nil, malformed("invite", "code")
	}
	data = data.With("guild_id", m.guildID.String()).WithDefault("channel_id", chID.String())
	m.client.Apply(events.InviteCreate, data)
	return m.applied(data)
}

// Delete 撤销邀请，结果经 INVITE_DELETE 对账。
func (m *InviteManager) Delete(ctx context.Context, invite any) error {
	code, err := m.resolveLive(invite)
	if err != nil {
		return err
	}
	var channelID string
	if inv := m.Get(code); inv != nil {
		channelID = inv.channelID.String()
	}
	if _, err := request(ctx, m.client, rest.MethodDelete, rest.Invite(code), nil); err != nil {
		return err
	}
	m.client.Apply(events.InviteDelete, Payload{"code": code, "guild_id": m.guildID.String(), "channel_id": channelID})
	return nil
}
