package entity

import (
	"context"

	"Concord/internal/bitfield"
	"Concord/internal/events"
	"Concord/internal/rest"
	"Concord/internal/shared/snowflake"
)

type User struct {
	Base
	username      string
	globalName    *string
	discriminator string
	avatar        *string
	banner        *string
	accentColor   *int
	bot           bool
	system        bool
	flags         *bitfield.BitField
}

func newUser(c Client, data Payload) *User {
	id, _ := data.ID("id")
	u := &User{Base: newBase(c, id)}
	u.patch(data)
	return u
}

func (u *User) patch(data Payload) {
	if v, ok := data.String("username"); ok {
		u.username = v
	}
	if v, ok := data.StringPtr("global_name"); ok {
		u.globalName = v
	}
	if v, ok := data.String("discriminator"); ok {
		u.discriminator = v
	}
	if v, ok := data.StringPtr("avatar"); ok {
		u.avatar = v
	}
	if v, ok := data.StringPtr("banner"); ok {
		u.banner = v
	}
	if v, ok := data.IntPtr("accent_color"); ok {
		u.accentColor = v
	}
	// bot/system 只在首次出现时确定，部分 payload 不带这两个字段
	if v, ok := data.Bool("bot"); ok {
		u.bot = v
	}
	if v, ok := data.Bool("system"); ok {
		u.system = v
	}
	if v, ok := data.Get("public_flags"); ok {
		u.flags = bitfield.Frozen(bitfield.UserFlags, v)
	}
}

func (u *User) clone() *User {
	cp := *u
	return &cp
}

func (u *User) Username() string          { return u.username }
func (u *User) GlobalName() *string       { return u.globalName }
func (u *User) Discriminator() string     { return u.discriminator }
func (u *User) Avatar() *string           { return u.avatar }
func (u *User) Banner() *string           { return u.banner }
func (u *User) AccentColor() *int         { return u.accentColor }
func (u *User) Bot() bool                 { return u.bot }
func (u *User) System() bool              { return u.system }
func (u *User) Flags() *bitfield.BitField { return u.flags }

// DisplayName 优先 global_name，其次 username。
func (u *User) DisplayName() string {
	if u.globalName != nil && *u.globalName != "" {
		return *u.globalName
	}
	return u.username
}

// Equals 比较线上可见字段。
func (u *User) Equals(other *User) bool {
	if u == nil || other == nil {
		return u == other
	}
	return u.id == other.id &&
		u.username == other.username &&
		ptrEqual(u.globalName, other.globalName) &&
		u.discriminator == other.discriminator &&
		ptrEqual(u.avatar, other.avatar) &&
		u.bot == other.bot &&
		u.flags.Equals(other.flags)
}

// CreateDM 打开与该用户的私聊频道。
func (u *User) CreateDM(ctx context.Context) (*DMChannel, error) {
	return u.client.Users().CreateDM(ctx, u)
}

type UserManager struct {
	cachingManager[snowflake.ID, *User]
}

func newUserManager(c Client) *UserManager {
	m := &UserManager{}
	self := func(u *User) bool { return u.id == c.UserID() }
	m.cachingManager = newIDManager(c, CacheUsers, func(p Payload) *User { return newUser(c, p) }, self)
	m.parse = func(v any) (snowflake.ID, bool) {
		switch t := v.(type) {
		case *Member:
			return t.userID, t.userID.Valid()
		case *ThreadMember:
			return t.userID, t.userID.Valid()
		case *Message:
			return t.authorID, t.authorID.Valid()
		default:
			return parseID(v)
		}
	}
	return m
}

// NewUserManager 构造客户端级用户 manager。
func NewUserManager(c Client) *UserManager { return newUserManager(c) }

// Me 返回当前登录的用户。
func (m *UserManager) Me() *User {
	return m.Get(m.client.UserID())
}

func (m *UserManager) Fetch(ctx context.Context, id snowflake.ID, opts FetchOptions) (*User, error) {
	if u, ok := m.fetchCached(id, opts); ok {
		return u, nil
	}
	raw, err := request(ctx, m.client, rest.MethodGet, rest.User(id.String()), nil)
	if err != nil {
		return nil, err
	}
	return m.store(raw, opts)
}

// CreateDM 打开私聊；已缓存的 DM 频道直接返回。
func (m *UserManager) CreateDM(ctx context.Context, user any) (*DMChannel, error) {
	id, err := m.resolveLive(user)
	if err != nil {
		return nil, err
	}
	if dm := m.dmChannel(id); dm != nil {
		return dm, nil
	}
	raw, err := request(ctx, m.client, rest.MethodPost, rest.UserChannels(), map[string]any{"recipient_id": id.String()})
	if err != nil {
		return nil, err
	}
	data, ok := AsPayload(raw)
	if !ok {
		return nil, malformed("channel", "id")
	}
	m.client.Apply(events.ChannelCreate, data)
	ch, err := m.client.Channels().applied(data)
	if err != nil {
		return nil, err
	}
	dm, _ := ch.(*DMChannel)
	return dm, nil
}

func (m *UserManager) dmChannel(userID snowflake.ID) *DMChannel {
	ch, ok := m.client.Channels().Cache().Find(func(ch Channel) bool {
		dm, ok := ch.(*DMChannel)
		return ok && dm.recipientID == userID
	})
	if !ok {
		return nil
	}
	return ch.(*DMChannel)
}

// EditMe 修改当前用户资料，结果经 USER_UPDATE 对账。
func (m *UserManager) EditMe(ctx context.Context, opts UserEditOptions) (*User, error) {
	raw, err := request(ctx, m.client, rest.MethodPatch, rest.CurrentUser(), opts.wire())
	if err != nil {
		return nil, err
	}
	data, ok := AsPayload(raw)
	if !ok {
		return nil, malformed("user", "id")
	}
	m.client.Apply(events.UserUpdate, data)
	return m.applied(data)
}

type UserEditOptions struct {
	Username *string
	Avatar   *string
	Banner   *string
}

func (o UserEditOptions) wire() map[string]any {
	body := map[string]any{}
	setPtr(body, "username", o.Username)
	setPtr(body, "avatar", o.Avatar)
	setPtr(body, "banner", o.Banner)
	return body
}
