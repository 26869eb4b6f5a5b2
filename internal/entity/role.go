package entity

import (
	"context"

	"Concord/internal/bitfield"
	"Concord/internal/events"
	"Concord/internal/rest"
	"Concord/internal/shared/snowflake"
)

// RoleTags 描述托管角色的来源。premium_subscriber 等字段以“出现即为真”编码。
type RoleTags struct {
	BotID                 *snowflake.ID `json:"bot_id"`
	IntegrationID         *snowflake.ID `json:"integration_id"`
	SubscriptionListingID *snowflake.ID `json:"subscription_listing_id"`
	PremiumSubscriber     bool          `json:"-"`
	AvailableForPurchase  bool          `json:"-"`
	GuildConnections      bool          `json:"-"`
}

type Role struct {
	Base
	guildID      snowflake.ID
	name         string
	color        int
	hoist        bool
	icon         *string
	unicodeEmoji *string
	rawPosition  int
	permissions  *bitfield.BitField
	managed      bool
	mentionable  bool
	flags        *bitfield.BitField
	tags         *RoleTags
}

func newRole(c Client, guildID snowflake.ID, data Payload) *Role {
	id, _ := data.ID("id")
	r := &Role{
		Base:        newBase(c, id),
		guildID:     guildID,
		permissions: bitfield.Frozen(bitfield.Permissions, 0),
		flags:       bitfield.Frozen(bitfield.RoleFlags, 0),
	}
	r.patch(data)
	return r
}

func (r *Role) patch(data Payload) {
	if v, ok := data.String("name"); ok {
		r.name = v
	}
	if v, ok := data.Int("color"); ok {
		r.color = v
	}
	if v, ok := data.Bool("hoist"); ok {
		r.hoist = v
	}
	if v, ok := data.StringPtr("icon"); ok {
		r.icon = v
	}
	if v, ok := data.StringPtr("unicode_emoji"); ok {
		r.unicodeEmoji = v
	}
	if v, ok := data.Int("position"); ok {
		r.rawPosition = v
	}
	if v, ok := data.Get("permissions"); ok {
		r.permissions = bitfield.Frozen(bitfield.Permissions, v)
	}
	if v, ok := data.Bool("managed"); ok {
		r.managed = v
	}
	if v, ok := data.Bool("mentionable"); ok {
		r.mentionable = v
	}
	if v, ok := data.Get("flags"); ok {
		r.flags = bitfield.Frozen(bitfield.RoleFlags, v)
	}
	if raw, ok := data.Object("tags"); ok {
		r.tags = nil
		if raw != nil {
			tags := &RoleTags{}
			if _, err := data.Decode("tags", tags); err == nil {
				tags.PremiumSubscriber = raw.Has("premium_subscriber")
				tags.AvailableForPurchase = raw.Has("available_for_purchase")
				tags.GuildConnections = raw.Has("guild_connections")
				r.tags = tags
			}
		}
	}
}

func (r *Role) clone() *Role {
	cp := *r
	return &cp
}

func (r *Role) GuildID() snowflake.ID           { return r.guildID }
func (r *Role) Name() string                    { return r.name }
func (r *Role) Color() int                      { return r.color }
func (r *Role) Hoist() bool                     { return r.hoist }
func (r *Role) Icon() *string                   { return r.icon }
func (r *Role) UnicodeEmoji() *string           { return r.unicodeEmoji }
func (r *Role) RawPosition() int                { return r.rawPosition }
func (r *Role) Permissions() *bitfield.BitField { return r.permissions }
func (r *Role) Managed() bool                   { return r.managed }
func (r *Role) Mentionable() bool               { return r.mentionable }
func (r *Role) Flags() *bitfield.BitField       { return r.flags }
func (r *Role) Tags() *RoleTags                 { return r.tags }

func (r *Role) Guild() *Guild {
	return r.client.Guilds().Get(r.guildID)
}

// IsEveryone 判断是否为 @everyone 角色。
func (r *Role) IsEveryone() bool {
	return r.id == r.guildID
}

// Position 按原始序号和 id 派生的位置；guild 未缓存时返回 -1。
func (r *Role) Position() int {
	g := r.Guild()
	if g == nil {
		return -1
	}
	return indexOf(g.roles.Sorted(), r.id)
}

// Compare 比较两个角色的位置，负数表示 r 更低。
func (r *Role) Compare(other *Role) int {
	return comparePositions(r, other)
}

// Members 返回持有该角色的已缓存成员。
func (r *Role) Members() []*Member {
	g := r.Guild()
	if g == nil {
		return nil
	}
	if r.IsEveryone() {
		return g.members.cache.Values()
	}
	return g.members.cache.Filter(func(m *Member) bool { return m.HasRole(r.id) })
}

func (r *Role) Equals(other *Role) bool {
	if r == nil || other == nil {
		return r == other
	}
	return r.id == other.id &&
		r.name == other.name &&
		r.color == other.color &&
		r.hoist == other.hoist &&
		r.rawPosition == other.rawPosition &&
		r.permissions.Equals(other.permissions) &&
		r.managed == other.managed &&
		r.mentionable == other.mentionable
}

func (r *Role) Edit(ctx context.Context, opts RoleEditOptions) (*Role, error) {
	if err := r.alive("role"); err != nil {
		return nil, err
	}
	g := r.Guild()
	if g == nil {
		return nil, stale("guild", r.guildID.String())
	}
	return g.roles.Edit(ctx, r, opts)
}

func (r *Role) Delete(ctx context.Context) error {
	if err := r.alive("role"); err != nil {
		return err
	}
	g := r.Guild()
	if g == nil {
		return stale("guild", r.guildID.String())
	}
	return g.roles.Delete(ctx, r)
}

func (r *Role) SetName(ctx context.Context, name string) (*Role, error) {
	return r.Edit(ctx, RoleEditOptions{Name: &name})
}

func (r *Role) SetPermissions(ctx context.Context, permissions any) (*Role, error) {
	return r.Edit(ctx, RoleEditOptions{Permissions: permissions})
}

func (r *Role) SetPosition(ctx context.Context, position int) error {
	if err := r.alive("role"); err != nil {
		return err
	}
	g := r.Guild()
	if g == nil {
		return stale("guild", r.guildID.String())
	}
	return g.roles.SetPositions(ctx, []RolePosition{{Role: r.id, Position: position}})
}

type RoleEditOptions struct {
	Name         *string
	Color        *int
	Hoist        *bool
	Mentionable  *bool
	UnicodeEmoji *string
	// Permissions 接受 BitField 能解析的任意形态
	Permissions any
}

func (o RoleEditOptions) wire() (map[string]any, error) {
	body := map[string]any{}
	setPtr(body, "name", o.Name)
	setPtr(body, "color", o.Color)
	setPtr(body, "hoist", o.Hoist)
	setPtr(body, "mentionable", o.Mentionable)
	setPtr(body, "unicode_emoji", o.UnicodeEmoji)
	if o.Permissions != nil {
		bits, err := bitfield.Permissions.Resolve(o.Permissions)
		if err != nil {
			return nil, err
		}
		body["permissions"] = bitfield.Frozen(bitfield.Permissions, bits).String()
	}
	return body, nil
}

type RolePosition struct {
	Role     any
	Position int
}

type RoleManager struct {
	cachingManager[snowflake.ID, *Role]
	guildID snowflake.ID
}

func newRoleManager(c Client, guildID snowflake.ID) *RoleManager {
	m := &RoleManager{guildID: guildID}
	m.cachingManager = newIDManager(c, CacheRoles, func(p Payload) *Role { return newRole(c, guildID, p) }, nil)
	return m
}

// Everyone 返回 @everyone 角色。
func (m *RoleManager) Everyone() *Role {
	return m.Get(m.guildID)
}

// Sorted 返回按位置从低到高排列的角色。
func (m *RoleManager) Sorted() []*Role {
	return sortPositioned(m.cache.Values())
}

// Highest 返回位置最高的角色。
func (m *RoleManager) Highest() *Role {
	roles := m.Sorted()
	if len(roles) == 0 {
		return nil
	}
	return roles[len(roles)-1]
}

func (m *RoleManager) Fetch(ctx context.Context, id snowflake.ID, opts FetchOptions) (*Role, error) {
	if r, ok := m.fetchCached(id, opts); ok {
		return r, nil
	}
	raw, err := request(ctx, m.client, rest.MethodGet, rest.GuildRole(m.guildID.String(), id.String()), nil)
	if err != nil {
		return nil, err
	}
	return m.store(raw, opts)
}

func (m *RoleManager) FetchAll(ctx context.Context, opts FetchOptions) ([]*Role, error) {
	raw, err := request(ctx, m.client, rest.MethodGet, rest.GuildRoles(m.guildID.String()), nil)
	if err != nil {
		return nil, err
	}
	return m.storeAll(raw, opts)
}

// Create 创建角色，结果经 GUILD_ROLE_CREATE 对账。
func (m *RoleManager) Create(ctx context.Context, opts RoleEditOptions) (*Role, error) {
	body, err := opts.wire()
	if err != nil {
		return nil, err
	}
	raw, err := request(ctx, m.client, rest.MethodPost, rest.GuildRoles(m.guildID.String()), body)
	if err != nil {
		return nil, err
	}
	return m.reconcile(events.GuildRoleCreate, raw)
}

func (m *RoleManager) Edit(ctx context.Context, role any, opts RoleEditOptions) (*Role, error) {
	id, err := m.resolveLive(role)
	if err != nil {
		return nil, err
	}
	body, err := opts.wire()
	if err != nil {
		return nil, err
	}
	raw, err := request(ctx, m.client, rest.MethodPatch, rest.GuildRole(m.guildID.String(), id.String()), body)
	if err != nil {
		return nil, err
	}
	return m.reconcile(events.GuildRoleUpdate, raw)
}

func (m *RoleManager) reconcile(t events.Type, raw any) (*Role, error) {
	data, ok := AsPayload(raw)
	if !ok {
		return nil, malformed("role", "id")
	}
	m.client.Apply(t, Payload{"guild_id": m.guildID.String(), "role": map[string]any(data)})
	return m.applied(data)
}

func (m *RoleManager) Delete(ctx context.Context, role any) error {
	id, err := m.resolveLive(role)
	if err != nil {
		return err
	}
	if _, err := request(ctx, m.client, rest.MethodDelete, rest.GuildRole(m.guildID.String(), id.String()), nil); err != nil {
		return err
	}
	m.client.Apply(events.GuildRoleDelete, Payload{"guild_id": m.guildID.String(), "role_id": id.String()})
	return nil
}

// SetPositions 批量调整角色顺序，结果经内部事件 GUILD_ROLES_POSITION_UPDATE 对账。
func (m *RoleManager) SetPositions(ctx context.Context, positions []RolePosition) error {
	body := make([]map[string]any, 0, len(positions))
	for _, p := range positions {
		id, err := m.resolveLive(p.Role)
		if err != nil {
			return err
		}
		body = append(body, map[string]any{"id": id.String(), "position": p.Position})
	}
	raw, err := request(ctx, m.client, rest.MethodPatch, rest.GuildRoles(m.guildID.String()), body)
	if err != nil {
		return err
	}
	roles := make([]any, 0, len(positions))
	for _, item := range AsPayloads(raw) {
		roles = append(roles, map[string]any{"id": item["id"], "position": item["position"]})
	}
	if len(roles) == 0 {
		for _, b := range body {
			roles = append(roles, b)
		}
	}
	m.client.Apply(events.GuildRolesPositionUpdate, Payload{"guild_id": m.guildID.String(), "roles": roles})
	return nil
}
