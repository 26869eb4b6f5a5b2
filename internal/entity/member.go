package entity

import (
	"context"
	"net/url"
	"slices"
	"time"

	"Concord/internal/bitfield"
	"Concord/internal/events"
	"Concord/internal/rest"
	"Concord/internal/shared/snowflake"
)

// Member 是用户在某个 guild 中的身份，以用户 id 为键。
type Member struct {
	client                     Client
	guildID                    snowflake.ID
	userID                     snowflake.ID
	nick                       *string
	avatar                     *string
	roleIDs                    []snowflake.ID
	joinedAt                   time.Time
	premiumSince               time.Time
	communicationDisabledUntil time.Time
	pending                    bool
	deaf                       bool
	mute                       bool
	flags                      *bitfield.BitField
	deleted                    bool
}

func newMember(c Client, guildID snowflake.ID, data Payload) *Member {
	m := &Member{client: c, guildID: guildID, flags: bitfield.Frozen(bitfield.MemberFlags, 0)}
	m.userID, _ = memberKey(data)
	m.patch(data)
	return m
}

func memberKey(p Payload) (snowflake.ID, bool) {
	if u, ok := p.Object("user"); ok && u != nil {
		return idKey(u, "id")
	}
	return idKey(p, "user_id")
}

func (m *Member) patch(data Payload) {
	if v, ok := data.StringPtr("nick"); ok {
		m.nick = v
	}
	if v, ok := data.StringPtr("avatar"); ok {
		m.avatar = v
	}
	if v, ok := data.IDs("roles"); ok {
		m.roleIDs = v
	}
	if v, ok := data.Time("joined_at"); ok {
		m.joinedAt = v
	}
	if v, ok := data.Time("premium_since"); ok {
		m.premiumSince = v
	}
	if v, ok := data.Time("communication_disabled_until"); ok {
		m.communicationDisabledUntil = v
	}
	if v, ok := data.Bool("pending"); ok {
		m.pending = v
	}
	if v, ok := data.Bool("deaf"); ok {
		m.deaf = v
	}
	if v, ok := data.Bool("mute"); ok {
		m.mute = v
	}
	if v, ok := data.Get("flags"); ok {
		m.flags = bitfield.Frozen(bitfield.MemberFlags, v)
	}
}

func (m *Member) clone() *Member {
	cp := *m
	cp.roleIDs = slices.Clone(m.roleIDs)
	return &cp
}

func (m *Member) markDeleted()              { m.deleted = true }
func (m *Member) Deleted() bool             { return m.deleted }
func (m *Member) ID() snowflake.ID          { return m.userID }
func (m *Member) GuildID() snowflake.ID     { return m.guildID }
func (m *Member) Nick() *string             { return m.nick }
func (m *Member) Avatar() *string           { return m.avatar }
func (m *Member) JoinedAt() time.Time       { return m.joinedAt }
func (m *Member) PremiumSince() time.Time   { return m.premiumSince }
func (m *Member) Pending() bool             { return m.pending }
func (m *Member) Flags() *bitfield.BitField { return m.flags }
func (m *Member) User() *User               { return m.client.Users().Get(m.userID) }
func (m *Member) Guild() *Guild             { return m.client.Guilds().Get(m.guildID) }

func (m *Member) RoleIDs() []snowflake.ID {
	return slices.Clone(m.roleIDs)
}

func (m *Member) HasRole(id snowflake.ID) bool {
	return id == m.guildID || slices.Contains(m.roleIDs, id)
}

// CommunicationDisabledUntil 返回禁言截止时间，未禁言时为零值。
func (m *Member) CommunicationDisabledUntil() time.Time {
	return m.communicationDisabledUntil
}

func (m *Member) IsCommunicationDisabled() bool {
	return !m.communicationDisabledUntil.IsZero() && m.communicationDisabledUntil.After(time.Now())
}

func (m *Member) DisplayName() string {
	if m.nick != nil && *m.nick != "" {
		return *m.nick
	}
	if u := m.User(); u != nil {
		return u.DisplayName()
	}
	return ""
}

// Roles 返回成员持有的已缓存角色（含 @everyone），按位置从低到高排列。
// 未缓存的角色 id 被忽略。
func (m *Member) Roles() []*Role {
	g := m.Guild()
	if g == nil {
		return nil
	}
	out := make([]*Role, 0, len(m.roleIDs)+1)
	if everyone := g.roles.Get(m.guildID); everyone != nil {
		out = append(out, everyone)
	}
	for _, id := range m.roleIDs {
		if r := g.roles.Get(id); r != nil && id != m.guildID {
			out = append(out, r)
		}
	}
	return sortPositioned(out)
}

func (m *Member) HighestRole() *Role {
	roles := m.Roles()
	if len(roles) == 0 {
		return nil
	}
	return roles[len(roles)-1]
}

// Permissions 计算 guild 级权限：所有者和管理员拥有全部权限。
func (m *Member) Permissions() *bitfield.BitField {
	g := m.Guild()
	if g != nil && g.ownerID == m.userID {
		return bitfield.Frozen(bitfield.Permissions, bitfield.Permissions.All())
	}
	var bits bitfield.Bit
	for _, r := range m.Roles() {
		bits |= r.permissions.Bits()
	}
	if bits&bitfield.Administrator != 0 {
		return bitfield.Frozen(bitfield.Permissions, bitfield.Permissions.All())
	}
	return bitfield.Frozen(bitfield.Permissions, bits)
}

// PermissionsIn 计算成员在指定频道的权限。
func (m *Member) PermissionsIn(channel any) (*bitfield.BitField, error) {
	ch, err := m.client.Channels().Resolve(channel)
	if err != nil {
		return nil, err
	}
	switch t := ch.(type) {
	case GuildChannel:
		return t.PermissionsFor(m, true), nil
	case *ThreadChannel:
		return t.PermissionsFor(m, true), nil
	default:
		return nil, invalidResolvable("channel", channel)
	}
}

func (m *Member) Presence() *Presence {
	g := m.Guild()
	if g == nil {
		return nil
	}
	return g.presences.Get(m.userID)
}

func (m *Member) VoiceState() *VoiceState {
	g := m.Guild()
	if g == nil {
		return nil
	}
	return g.voiceStates.Get(m.userID)
}

func (m *Member) Equals(other *Member) bool {
	if m == nil || other == nil {
		return m == other
	}
	return m.userID == other.userID &&
		m.guildID == other.guildID &&
		ptrEqual(m.nick, other.nick) &&
		ptrEqual(m.avatar, other.avatar) &&
		slices.Equal(m.roleIDs, other.roleIDs) &&
		m.communicationDisabledUntil.Equal(other.communicationDisabledUntil) &&
		m.pending == other.pending
}

func (m *Member) alive() error {
	if isDeleted(m.client, m) {
		return stale("member", m.userID.String())
	}
	return nil
}

func (m *Member) manager() (*MemberManager, error) {
	if err := m.alive(); err != nil {
		return nil, err
	}
	g := m.Guild()
	if g == nil {
		return nil, stale("guild", m.guildID.String())
	}
	return g.members, nil
}

func (m *Member) Edit(ctx context.Context, opts MemberEditOptions) (*Member, error) {
	mm, err := m.manager()
	if err != nil {
		return nil, err
	}
	return mm.Edit(ctx, m, opts)
}

func (m *Member) SetNick(ctx context.Context, nick *string) (*Member, error) {
	if nick == nil {
		empty := ""
		nick = &empty
	}
	return m.Edit(ctx, MemberEditOptions{Nick: nick})
}

// Timeout 禁言到 until；零值表示解除禁言。
func (m *Member) Timeout(ctx context.Context, until time.Time) (*Member, error) {
	return m.Edit(ctx, MemberEditOptions{CommunicationDisabledUntil: &until})
}

func (m *Member) Kick(ctx context.Context) error {
	mm, err := m.manager()
	if err != nil {
		return err
	}
	return mm.Kick(ctx, m)
}

func (m *Member) AddRole(ctx context.Context, role any) (*Member, error) {
	mm, err := m.manager()
	if err != nil {
		return nil, err
	}
	return mm.AddRole(ctx, m, role)
}

func (m *Member) RemoveRole(ctx context.Context, role any) (*Member, error) {
	mm, err := m.manager()
	if err != nil {
		return nil, err
	}
	return mm.RemoveRole(ctx, m, role)
}

type MemberEditOptions struct {
	Nick  *string
	Roles []any
	Mute  *bool
	Deaf  *bool
	// Channel 移动语音频道；指向零 id 时断开连接
	Channel                    *snowflake.ID
	CommunicationDisabledUntil *time.Time
}

type MemberManager struct {
	cachingManager[snowflake.ID, *Member]
	guildID snowflake.ID
}

func newMemberManager(c Client, guildID snowflake.ID) *MemberManager {
	m := &MemberManager{guildID: guildID}
	self := func(mem *Member) bool { return mem.userID == c.UserID() }
	m.cachingManager = newIDManager(c, CacheMembers, func(p Payload) *Member { return newMember(c, guildID, p) }, self)
	m.keyField = "user.id"
	m.key = memberKey
	m.parse = func(v any) (snowflake.ID, bool) {
		switch t := v.(type) {
		case *User:
			return t.id, true
		case *ThreadMember:
			return t.userID, true
		case *Message:
			return t.authorID, t.authorID.Valid()
		default:
			return parseID(v)
		}
	}
	// 成员附带完整用户对象
	m.prepare = func(p Payload) {
		if u, ok := p.Object("user"); ok && u != nil && u.Has("username") {
			c.Users().Add(u, true)
		}
	}
	return m
}

func (m *MemberManager) Me() *Member {
	return m.Get(m.client.UserID())
}

func (m *MemberManager) Fetch(ctx context.Context, user any, opts FetchOptions) (*Member, error) {
	id, err := m.ResolveID(user)
	if err != nil {
		return nil, err
	}
	if mem, ok := m.fetchCached(id, opts); ok {
		return mem, nil
	}
	raw, err := request(ctx, m.client, rest.MethodGet, rest.GuildMember(m.guildID.String(), id.String()), nil)
	if err != nil {
		return nil, err
	}
	return m.store(raw, opts)
}

// FetchAll 按 after 游标分页拉取全部成员。
func (m *MemberManager) FetchAll(ctx context.Context, opts FetchOptions) ([]*Member, error) {
	const page = 1000
	var (
		out   []*Member
		after = "0"
	)
	for {
		query := url.Values{"limit": {itoa(page)}, "after": {after}}
		raw, err := m.client.REST().Request(ctx, rest.GuildMembers(m.guildID.String()), rest.MethodGet, nil, query)
		if err != nil {
			return out, err
		}
		items := AsPayloads(raw)
		batch, err := m.storeAll(items, opts)
		if err != nil {
			return out, err
		}
		out = append(out, batch...)
		if len(items) < page || len(batch) == 0 {
			return out, nil
		}
		after = batch[len(batch)-1].userID.String()
	}
}

func (m *MemberManager) patchMember(ctx context.Context, id snowflake.ID, body map[string]any) (*Member, error) {
	raw, err := request(ctx, m.client, rest.MethodPatch, rest.GuildMember(m.guildID.String(), id.String()), body)
	if err != nil {
		return nil, err
	}
	data, ok := AsPayload(raw)
	if !ok {
		return nil, malformed("member", "user.id")
	}
	return m.reconcile(data)
}

func (m *MemberManager) reconcile(data Payload) (*Member, error) {
	data = data.With("guild_id", m.guildID.String())
	m.client.Apply(events.GuildMemberUpdate, data)
	return m.applied(data)
}

// Edit 修改成员，结果经 GUILD_MEMBER_UPDATE 对账。
func (m *MemberManager) Edit(ctx context.Context, user any, opts MemberEditOptions) (*Member, error) {
	id, err := m.resolveLive(user)
	if err != nil {
		return nil, err
	}
	body := map[string]any{}
	setPtr(body, "nick", opts.Nick)
	setPtr(body, "mute", opts.Mute)
	setPtr(body, "deaf", opts.Deaf)
	if opts.Roles != nil {
		ids := make([]string, 0, len(opts.Roles))
		for _, r := range opts.Roles {
			rid, err := m.roleID(r)
			if err != nil {
				return nil, err
			}
			ids = append(ids, rid.String())
		}
		body["roles"] = ids
	}
	if opts.Channel != nil {
		body["channel_id"] = nullableID(*opts.Channel)
	}
	if opts.CommunicationDisabledUntil != nil {
		if opts.CommunicationDisabledUntil.IsZero() {
			body["communication_disabled_until"] = nil
		} else {
			body["communication_disabled_until"] = opts.CommunicationDisabledUntil.UTC().Format(time.RFC3339)
		}
	}
	return m.patchMember(ctx, id, body)
}

func (m *MemberManager) roleID(role any) (snowflake.ID, error) {
	if r, ok := role.(*Role); ok {
		return r.id, nil
	}
	id, ok := parseID(role)
	if !ok {
		return 0, invalidResolvable("role", role)
	}
	return id, nil
}

// Kick 移除成员，结果经 GUILD_MEMBER_REMOVE 对账。
func (m *MemberManager) Kick(ctx context.Context, user any) error {
	id, err := m.resolveLive(user)
	if err != nil {
		return err
	}
	if _, err := request(ctx, m.client, rest.MethodDelete, rest.GuildMember(m.guildID.String(), id.String()), nil); err != nil {
		return err
	}
	m.client.Apply(events.GuildMemberRemove, Payload{
		"guild_id": m.guildID.String(),
		"user":     map[string]any{"id": id.String()},
	})
	return nil
}

func (m *MemberManager) AddRole(ctx context.Context, user, role any) (*Member, error) {
	return m.changeRole(ctx, user, role, rest.MethodPut)
}

func (m *MemberManager) RemoveRole(ctx context.Context, user, role any) (*Member, error) {
	return m.changeRole(ctx, user, role, rest.MethodDelete)
}

func (m *MemberManager) changeRole(ctx context.Context, user, role any, method string) (*Member, error) {
	id, err := m.resolveLive(user)
	if err != nil {
		return nil, err
	}
	if r, ok := role.(*Role); ok && isDeleted(m.client, r) {
		return nil, stale("role", r.id.String())
	}
	rid, err := m.roleID(role)
	if err != nil {
		return nil, err
	}
	if _, err := request(ctx, m.client, method, rest.GuildMemberRole(m.guildID.String(), id.String(), rid.String()), nil); err != nil {
		return nil, err
	}
	// 角色列表在写锁内基于当前缓存计算，并发的增删不会互相覆盖
	var data Payload
	m.client.ApplyFunc(events.GuildMemberUpdate, func() (Payload, bool) {
		cur := m.Get(id)
		if cur == nil {
			return nil, false
		}
		roles := slices.DeleteFunc(slices.Clone(cur.roleIDs), func(x snowflake.ID) bool { return x == rid })
		if method == rest.MethodPut {
			roles = append(roles, rid)
		}
		data = Payload{
			"guild_id": m.guildID.String(),
			"user":     map[string]any{"id": id.String()},
			"roles":    idStrings(roles),
		}
		return data, true
	})
	if data == nil {
		// 成员未缓存：返回只含已知角色变化的不缓存实例
		var roles []snowflake.ID
		if method == rest.MethodPut {
			roles = append(roles, rid)
		}
		data = Payload{
			"guild_id": m.guildID.String(),
			"user":     map[string]any{"id": id.String()},
			"roles":    idStrings(roles),
		}
	}
	return m.applied(data)
}
