package entity

import (
	"context"
	"slices"

	"Concord/internal/events"
	"Concord/internal/rest"
	"Concord/internal/shared/snowflake"
)

type Emoji struct {
	Base
	guildID       snowflake.ID
	name          string
	animated      bool
	available     bool
	managed       bool
	requireColons bool
	roleIDs       []snowflake.ID
	authorID      snowflake.ID
}

func newEmoji(c Client, guildID snowflake.ID, data Payload) *Emoji {
	id, _ := data.ID("id")
	e := &Emoji{Base: newBase(c, id), guildID: guildID, available: true}
	e.patch(data)
	return e
}

func (e *Emoji) patch(data Payload) {
	if v, ok := data.String("name"); ok {
		e.name = v
	}
	if v, ok := data.Bool("animated"); ok {
		e.animated = v
	}
	if v, ok := data.Bool("available"); ok {
		e.available = v
	}
	if v, ok := data.Bool("managed"); ok {
		e.managed = v
	}
	if v, ok := data.Bool("require_colons"); ok {
		e.requireColons = v
	}
	if v, ok := data.IDs("roles"); ok {
		e.roleIDs = v
	}
	if u, ok := data.Object("user"); ok && u != nil {
		e.authorID, _ = u.ID("id")
	}
}

func (e *Emoji) clone() *Emoji {
	cp := *e
	return &cp
}

func (e *Emoji) GuildID() snowflake.ID   { return e.guildID }
func (e *Emoji) Name() string            { return e.name }
func (e *Emoji) Animated() bool          { return e.animated }
func (e *Emoji) Available() bool         { return e.available }
func (e *Emoji) Managed() bool           { return e.managed }
func (e *Emoji) RequireColons() bool     { return e.requireColons }
func (e *Emoji) RoleIDs() []snowflake.ID { return slices.Clone(e.roleIDs) }
func (e *Emoji) Author() *User           { return e.client.Users().Get(e.authorID) }

// Identifier 是 reaction 路由使用的形式 name:id。
func (e *Emoji) Identifier() string {
	if e.animated {
		return "a:" + e.name + ":" + e.id.String()
	}
	return e.name + ":" + e.id.String()
}

// String 返回消息中引用表情的格式。
func (e *Emoji) String() string {
	return "<" + e.Identifier() + ">"
}

func (e *Emoji) Guild() *Guild {
	return e.client.Guilds().Get(e.guildID)
}

// Roles 返回允许使用该表情的已缓存角色。
func (e *Emoji) Roles() []*Role {
	g := e.Guild()
	if g == nil {
		return nil
	}
	out := make([]*Role, 0, len(e.roleIDs))
	for _, id := range e.roleIDs {
		if r := g.roles.Get(id); r != nil {
			out = append(out, r)
		}
	}
	return out
}

func (e *Emoji) Equals(other *Emoji) bool {
	if e == nil || other == nil {
		return e == other
	}
	return e.id == other.id &&
		e.name == other.name &&
		e.available == other.available &&
		e.managed == other.managed &&
		e.requireColons == other.requireColons &&
		slices.Equal(e.roleIDs, other.roleIDs)
}

func (e *Emoji) manager() (*EmojiManager, error) {
	if err := e.alive("emoji"); err != nil {
		return nil, err
	}
	g := e.Guild()
	if g == nil {
		return nil, stale("guild", e.guildID.String())
	}
	return g.emojis, nil
}

func (e *Emoji) Edit(ctx context.Context, opts EmojiEditOptions) (*Emoji, error) {
	m, err := e.manager()
	if err != nil {
		return nil, err
	}
	return m.Edit(ctx, e, opts)
}

func (e *Emoji) SetName(ctx context.Context, name string) (*Emoji, error) {
	return e.Edit(ctx, EmojiEditOptions{Name: &name})
}

func (e *Emoji) Delete(ctx context.Context) error {
	m, err := e.manager()
	if err != nil {
		return err
	}
	return m.Delete(ctx, e)
}

type EmojiEditOptions struct {
	Name  *string
	Roles []snowflake.ID
}

func (o EmojiEditOptions) wire() map[string]any {
	body := map[string]any{}
	setPtr(body, "name", o.Name)
	if o.Roles != nil {
		body["roles"] = idStrings(o.Roles)
	}
	return body
}

type EmojiCreateOptions struct {
	Name string
	// Image 是 data URI，例如 data:image/png;base64,...
	Image string
	Roles []snowflake.ID
}

type EmojiManager struct {
	cachingManager[snowflake.ID, *Emoji]
	guildID snowflake.ID
}

func newEmojiManager(c Client, guildID snowflake.ID) *EmojiManager {
	m := &EmojiManager{guildID: guildID}
	m.cachingManager = newIDManager(c, CacheEmojis, func(p Payload) *Emoji { return newEmoji(c, guildID, p) }, nil)
	m.prepare = func(p Payload) {
		if u, ok := p.Object("user"); ok && u != nil {
			c.Users().Add(u, true)
		}
	}
	return m
}

func (m *EmojiManager) Fetch(ctx context.Context, id snowflake.ID, opts FetchOptions) (*Emoji, error) {
	if e, ok := m.fetchCached(id, opts); ok {
		return e, nil
	}
	raw, err := request(ctx, m.client, rest.MethodGet, rest.GuildEmoji(m.guildID.String(), id.String()), nil)
	if err != nil {
		return nil, err
	}
	return m.store(raw, opts)
}

func (m *EmojiManager) FetchAll(ctx context.Context, opts FetchOptions) ([]*Emoji, error) {
	raw, err := request(ctx, m.client, rest.MethodGet, rest.GuildEmojis(m.guildID.String()), nil)
	if err != nil {
		return nil, err
	}
	return m.storeAll(raw, opts)
}

func (m *EmojiManager) reconcile(t events.Type, raw any) (*Emoji, error) {
	data, ok := AsPayload(raw)
	if !ok {
		return nil, malformed("emoji", "id")
	}
	data = data.WithDefault("guild_id", m.guildID.String())
	m.client.Apply(t, data)
	return m.applied(data)
}

// Create 上传表情，结果经内部事件 GUILD_EMOJI_CREATE 对账。
func (m *EmojiManager) Create(ctx context.Context, opts EmojiCreateOptions) (*Emoji, error) {
	if opts.Name == "" || opts.Image == "" {
		return nil, invalidResolvable("emoji", opts.Name)
	}
	body := map[string]any{"name": opts.Name, "image": opts.Image}
	if opts.Roles != nil {
		body["roles"] = idStrings(opts.Roles)
	}
	raw, err := request(ctx, m.client, rest.MethodPost, rest.GuildEmojis(m.guildID.String()), body)
	if err != nil {
		return nil, err
	}
	return m.reconcile(events.GuildEmojiCreate, raw)
}

func (m *EmojiManager) Edit(ctx context.Context, emoji any, opts EmojiEditOptions) (*Emoji, error) {
	id, err := m.resolveLive(emoji)
	if err != nil {
		return nil, err
	}
	raw, err := request(ctx, m.client, rest.MethodPatch, rest.GuildEmoji(m.guildID.String(), id.String()), opts.wire())
	if err != nil {
		return nil, err
	}
	return m.reconcile(events.GuildEmojiUpdate, raw)
}

func (m *EmojiManager) Delete(ctx context.Context, emoji any) error {
	id, err := m.resolveLive(emoji)
	if err != nil {
		return err
	}
	if _, err := request(ctx, m.client, rest.MethodDelete, rest.GuildEmoji(m.guildID.String(), id.String()), nil); err != nil {
		return err
	}
	m.client.Apply(events.GuildEmojiDelete, Payload{"id": id.String(), "guild_id": m.guildID.String()})
	return nil
}
