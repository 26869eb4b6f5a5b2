package entity

import (
	"context"
	"net/url"
	"time"

	"Concord/internal/bitfield"
	"Concord/internal/events"
	"Concord/internal/rest"
	"Concord/internal/shared/snowflake"
)

type ThreadChannel struct {
	baseChannel
	textState
	guildID             snowflake.ID
	parentID            snowflake.ID
	ownerID             snowflake.ID
	name                string
	archived            bool
	locked              bool
	invitable           bool
	autoArchiveDuration int
	archiveTimestamp    time.Time
	createTimestamp     time.Time
	memberCount         int
	messageCount        int
	totalMessageSent    int
	appliedTags         []snowflake.ID
	members             *ThreadMemberManager
}

func newThreadChannel(c Client, data Payload) *ThreadChannel {
	ch := &ThreadChannel{}
	ch.init(c, data)
	ch.guildID, _ = data.ID("guild_id")
	ch.initText(c, ch.id, ch.guildID)
	ch.members = newThreadMemberManager(c, ch.id, ch.guildID)
	ch.patch(data)
	return ch
}

func (t *ThreadChannel) patch(data Payload) {
	t.patchBase(data)
	t.patchText(data)
	if v, ok := data.ID("guild_id"); ok && v.Valid() {
		t.guildID = v
	}
	if v, ok := data.ID("parent_id"); ok {
		t.parentID = v
	}
	if v, ok := data.ID("owner_id"); ok {
		t.ownerID = v
	}
	if v, ok := data.String("name"); ok {
		t.name = v
	}
	if meta, ok := data.Object("thread_metadata"); ok && meta != nil {
		if v, ok := meta.Bool("archived"); ok {
			t.archived = v
		}
		if v, ok := meta.Bool("locked"); ok {
			t.locked = v
		}
		if v, ok := meta.Bool("invitable"); ok {
			t.invitable = v
		}
		if v, ok := meta.Int("auto_archive_duration"); ok {
			t.autoArchiveDuration = v
		}
		if v, ok := meta.Time("archive_timestamp"); ok {
			t.archiveTimestamp = v
		}
		if v, ok := meta.Time("create_timestamp"); ok {
			t.createTimestamp = v
		}
	}
	if v, ok := data.Int("member_count"); ok {
		t.memberCount = v
	}
	if v, ok := data.Int("message_count"); ok {
		t.messageCount = v
	}
	if v, ok := data.Int("total_message_sent"); ok {
		t.totalMessageSent = v
	}
	if v, ok := data.IDs("applied_tags"); ok {
		t.appliedTags = v
	}
	// 当前用户在线程中的成员信息
	if m, ok := data.Object("member"); ok && m != nil {
		t.members.Add(m.WithDefault("id", t.id.String()).WithDefault("user_id", t.client.UserID().String()), true)
	}
}

func (t *ThreadChannel) clone() Channel {
	cp := *t
	return &cp
}

func (t *ThreadChannel) GuildID() snowflake.ID         { return t.guildID }
func (t *ThreadChannel) ParentID() snowflake.ID        { return t.parentID }
func (t *ThreadChannel) OwnerID() snowflake.ID         { return t.ownerID }
func (t *ThreadChannel) Name() string                  { return t.name }
func (t *ThreadChannel) Archived() bool                { return t.archived }
func (t *ThreadChannel) Locked() bool                  { return t.locked }
func (t *ThreadChannel) Invitable() bool               { return t.invitable }
func (t *ThreadChannel) AutoArchiveDuration() int      { return t.autoArchiveDuration }
func (t *ThreadChannel) ArchiveTimestamp() time.Time   { return t.archiveTimestamp }
func (t *ThreadChannel) MemberCount() int              { return t.memberCount }
func (t *ThreadChannel) MessageCount() int             { return t.messageCount }
func (t *ThreadChannel) TotalMessageSent() int         { return t.totalMessageSent }
func (t *ThreadChannel) Members() *ThreadMemberManager { return t.members }

func (t *ThreadChannel) AppliedTags() []snowflake.ID {
	out := make([]snowflake.ID, len(t.appliedTags))
	copy(out, t.appliedTags)
	return out
}

// CreatedAt 优先使用 thread_metadata.create_timestamp（旧线程没有该字段）。
func (t *ThreadChannel) CreatedAt() time.Time {
	if !t.createTimestamp.IsZero() {
		return t.createTimestamp
	}
	return t.Base.CreatedAt()
}

func (t *ThreadChannel) Guild() *Guild {
	return t.client.Guilds().Get(t.guildID)
}

// Parent 返回父频道（文字/公告/论坛/媒体），未缓存时返回 nil。
func (t *ThreadChannel) Parent() ThreadParent {
	p, _ := t.client.Channels().Get(t.parentID).(ThreadParent)
	return p
}

// PermissionsFor 线程继承父频道权限。
func (t *ThreadChannel) PermissionsFor(member *Member, checkAdmin bool) *bitfield.BitField {
	p := t.Parent()
	if p == nil {
		return nil
	}
	return p.PermissionsFor(member, checkAdmin)
}

type ThreadEditOptions struct {
	Name                *string
	Archived            *bool
	Locked              *bool
	Invitable           *bool
	AutoArchiveDuration *int
	RateLimitPerUser    *int
	AppliedTags         []snowflake.ID
}

func (o ThreadEditOptions) wire() map[string]any {
	body := map[string]any{}
	setPtr(body, "name", o.Name)
	setPtr(body, "archived", o.Archived)
	setPtr(body, "locked", o.Locked)
	setPtr(body, "invitable", o.Invitable)
	setPtr(body, "auto_archive_duration", o.AutoArchiveDuration)
	setPtr(body, "rate_limit_per_user", o.RateLimitPerUser)
	if o.AppliedTags != nil {
		body["applied_tags"] = idStrings(o.AppliedTags)
	}
	return body
}

func (t *ThreadChannel) Edit(ctx context.Context, opts ThreadEditOptions) (*ThreadChannel, error) {
	if err := t.alive("thread"); err != nil {
		return nil, err
	}
	ch, err := editChannel(ctx, t.client, t.id, opts.wire())
	if err != nil {
		return nil, err
	}
	th, _ := ch.(*ThreadChannel)
	return th, nil
}

func (t *ThreadChannel) SetArchived(ctx context.Context, archived bool) (*ThreadChannel, error) {
	return t.Edit(ctx, ThreadEditOptions{Archived: &archived})
}

func (t *ThreadChannel) SetLocked(ctx context.Context, locked bool) (*ThreadChannel, error) {
	return t.Edit(ctx, ThreadEditOptions{Locked: &locked})
}

func (t *ThreadChannel) Delete(ctx context.Context) error {
	if err := t.alive("thread"); err != nil {
		return err
	}
	return deleteChannel(ctx, t.client, t.id)
}

// Join 让当前用户加入线程。
func (t *ThreadChannel) Join(ctx context.Context) error {
	return t.members.AddUser(ctx, "@me")
}

func (t *ThreadChannel) Leave(ctx context.Context) error {
	return t.members.RemoveUser(ctx, "@me")
}

// ThreadManager 是父频道下线程的视图，实例由全局频道缓存持有。
type ThreadManager struct {
	client    Client
	channelID snowflake.ID
	guildID   snowflake.ID
	cache     *Collection[snowflake.ID, *ThreadChannel]
}

func newThreadManager(c Client, channelID, guildID snowflake.ID) *ThreadManager {
	return &ThreadManager{
		client:    c,
		channelID: channelID,
		guildID:   guildID,
		cache:     NewLimitedCollection[snowflake.ID, *ThreadChannel](c.CacheLimit(CacheThreads), nil),
	}
}

func (m *ThreadManager) Cache() *Collection[snowflake.ID, *ThreadChannel] { return m.cache }

func (m *ThreadManager) Get(id snowflake.ID) *ThreadChannel {
	t, _ := m.cache.Get(id)
	return t
}

// Resolve 实例原样返回，id 查缓存。
func (m *ThreadManager) Resolve(v any) (*ThreadChannel, error) {
	if t, ok := v.(*ThreadChannel); ok {
		return t, nil
	}
	id, ok := parseID(v)
	if !ok {
		return nil, invalidResolvable("thread", v)
	}
	return m.Get(id), nil
}

// Add 把线程写入全局频道缓存并挂到父频道下。
func (m *ThreadManager) Add(data Payload, cache bool) (*ThreadChannel, error) {
	data = data.WithDefault("parent_id", m.channelID.String())
	if m.guildID.Valid() {
		data = data.WithDefault("guild_id", m.guildID.String())
	}
	ch, err := m.client.Channels().Add(data, cache)
	if err != nil {
		return nil, err
	}
	t, ok := ch.(*ThreadChannel)
	if !ok {
		return nil, malformed("thread", "type")
	}
	if cache {
		m.cache.Set(t.id, t)
	}
	return t, nil
}

type ThreadCreateOptions struct {
	Name                string
	AutoArchiveDuration int
	Type                ChannelType
	Invitable           *bool
	RateLimitPerUser    *int
	// StartMessage 非 0 时从该消息开线程。
	StartMessage snowflake.ID
	// Message 论坛/媒体频道开帖时的首条消息。
	Message     *MessageCreateOptions
	AppliedTags []snowflake.ID
}

func (o ThreadCreateOptions) wire() map[string]any {
	body := map[string]any{"name": o.Name}
	if o.AutoArchiveDuration > 0 {
		body["auto_archive_duration"] = o.AutoArchiveDuration
	}
	if o.Type != 0 && !o.StartMessage.Valid() {
		body["type"] = int(o.Type)
	}
	setPtr(body, "invitable", o.Invitable)
	setPtr(body, "rate_limit_per_user", o.RateLimitPerUser)
	if o.Message != nil {
		body["message"] = o.Message.wire("")
	}
	if o.AppliedTags != nil {
		body["applied_tags"] = idStrings(o.AppliedTags)
	}
	return body
}

func (m *ThreadManager) Create(ctx context.Context, opts ThreadCreateOptions) (*ThreadChannel, error) {
	route := rest.ChannelThreads(m.channelID.String())
	if opts.StartMessage.Valid() {
		route = rest.ChannelMessageThreads(m.channelID.String(), opts.StartMessage.String())
	}
	raw, err := request(ctx, m.client, rest.MethodPost, route, opts.wire())
	if err != nil {
		return nil, err
	}
	data, ok := AsPayload(raw)
	if !ok {
		return nil, malformed("thread", "id")
	}
	data = data.WithDefault("guild_id", m.guildID.String()).With("newly_created", true)
	m.client.Apply(events.ThreadCreate, data)
	ch, err := m.client.Channels().applied(data)
	if err != nil {
		return nil, err
	}
	t, _ := ch.(*ThreadChannel)
	return t, nil
}

// Fetch 拉取单个线程。
func (m *ThreadManager) Fetch(ctx context.Context, id snowflake.ID, opts FetchOptions) (*ThreadChannel, error) {
	ch, err := m.client.Channels().Fetch(ctx, id, opts)
	if err != nil {
		return nil, err
	}
	t, _ := ch.(*ThreadChannel)
	return t, nil
}

// FetchActive 拉取 guild 下全部活跃线程，只返回属于本频道的部分。
func (m *ThreadManager) FetchActive(ctx context.Context, opts FetchOptions) ([]*ThreadChannel, error) {
	raw, err := request(ctx, m.client, rest.MethodGet, rest.GuildActiveThreads(m.guildID.String()), nil)
	if err != nil {
		return nil, err
	}
	return m.storeThreadList(raw, opts), nil
}

// FetchArchived 拉取已归档线程，public=false 时拉取私有线程。
func (m *ThreadManager) FetchArchived(ctx context.Context, public bool, limit int, opts FetchOptions) ([]*ThreadChannel, error) {
	visibility := "private"
	if public {
		visibility = "public"
	}
	var query url.Values
	if limit > 0 {
		query = url.Values{"limit": {itoa(limit)}}
	}
	raw, err := m.client.REST().Request(ctx, rest.ChannelArchivedThreads(m.channelID.String(), visibility), rest.MethodGet, nil, query)
	if err != nil {
		return nil, err
	}
	return m.storeThreadList(raw, opts), nil
}

// storeThreadList 处理 {threads:[...], members:[...]} 响应。
func (m *ThreadManager) storeThreadList(raw any, opts FetchOptions) []*ThreadChannel {
	data, _ := AsPayload(raw)
	threads, _ := data.Objects("threads")
	members, _ := data.Objects("members")
	var out []*ThreadChannel
	m.client.Write(func() {
		for _, item := range threads {
			ch, err := m.client.Channels().Add(item.WithDefault("guild_id", m.guildID.String()), !opts.NoCache)
			if err != nil {
				continue
			}
			t, ok := ch.(*ThreadChannel)
			if !ok {
				continue
			}
			if t.parentID == m.channelID {
				out = append(out, t)
			}
		}
		for _, mem := range members {
			threadID, _ := mem.ID("id")
			if t, ok := m.client.Channels().Get(threadID).(*ThreadChannel); ok {
				t.members.Add(mem, !opts.NoCache)
			}
		}
	})
	return out
}

type ThreadMember struct {
	client        Client
	threadID      snowflake.ID
	userID        snowflake.ID
	joinTimestamp time.Time
	flags         *bitfield.BitField
	deleted       bool
}

func newThreadMember(c Client, threadID snowflake.ID, data Payload) *ThreadMember {
	tm := &ThreadMember{client: c, threadID: threadID}
	tm.userID, _ = data.ID("user_id")
	tm.patch(data)
	return tm
}

func (tm *ThreadMember) patch(data Payload) {
	if v, ok := data.Time("join_timestamp"); ok {
		tm.joinTimestamp = v
	}
	if v, ok := data.Get("flags"); ok {
		tm.flags = bitfield.Frozen(bitfield.ThreadMemberFlags, v)
	}
}

func (tm *ThreadMember) clone() *ThreadMember {
	cp := *tm
	return &cp
}

func (tm *ThreadMember) markDeleted()              { tm.deleted = true }
func (tm *ThreadMember) Deleted() bool             { return tm.deleted }
func (tm *ThreadMember) ID() snowflake.ID          { return tm.userID }
func (tm *ThreadMember) ThreadID() snowflake.ID    { return tm.threadID }
func (tm *ThreadMember) JoinedAt() time.Time       { return tm.joinTimestamp }
func (tm *ThreadMember) Flags() *bitfield.BitField { return tm.flags }
func (tm *ThreadMember) User() *User               { return tm.client.Users().Get(tm.userID) }

func (tm *ThreadMember) Thread() *ThreadChannel {
	t, _ := tm.client.Channels().Get(tm.threadID).(*ThreadChannel)
	return t
}

// GuildMember 解析对应的 guild 成员，未缓存时返回 nil。
func (tm *ThreadMember) GuildMember() *Member {
	t := tm.Thread()
	if t == nil {
		return nil
	}
	g := t.Guild()
	if g == nil {
		return nil
	}
	return g.members.Get(tm.userID)
}

type ThreadMemberManager struct {
	cachingManager[snowflake.ID, *ThreadMember]
	threadID snowflake.ID
	guildID  snowflake.ID
}

func newThreadMemberManager(c Client, threadID, guildID snowflake.ID) *ThreadMemberManager {
	m := &ThreadMemberManager{threadID: threadID, guildID: guildID}
	self := func(tm *ThreadMember) bool { return tm.userID == c.UserID() }
	m.cachingManager = newIDManager(c, CacheThreadMembers, func(p Payload) *ThreadMember { return newThreadMember(c, threadID, p) }, self)
	m.keyField = "user_id"
	m.key = func(p Payload) (snowflake.ID, bool) { return idKey(p, "user_id") }
	m.parse = func(v any) (snowflake.ID, bool) {
		switch t := v.(type) {
		case *User:
			return t.id, true
		case *Member:
			return t.userID, true
		default:
			return parseID(v)
		}
	}
	// THREAD_MEMBERS_UPDATE 等会附带 guild 成员
	m.prepare = func(p Payload) {
		gm, ok := p.Object("member")
		if !ok || gm == nil {
			return
		}
		if g := c.Guilds().Get(guildID); g != nil {
			g.members.Add(gm, true)
		}
	}
	return m
}

// Me 返回当前用户的线程成员信息。
func (m *ThreadMemberManager) Me() *ThreadMember {
	return m.Get(m.client.UserID())
}

func (m *ThreadMemberManager) userRoute(user any) (string, error) {
	if s, ok := user.(string); ok && s == "@me" {
		return rest.ThreadMember(m.threadID.String(), "@me"), nil
	}
	id, err := m.ResolveID(user)
	if err != nil {
		return "", err
	}
	return rest.ThreadMember(m.threadID.String(), id.String()), nil
}

func (m *ThreadMemberManager) userID(user any) snowflake.ID {
	if s, ok := user.(string); ok && s == "@me" {
		return m.client.UserID()
	}
	id, _ := m.ResolveID(user)
	return id
}

// AddUser 把用户加入线程，结果经 THREAD_MEMBERS_UPDATE 对账。
func (m *ThreadMemberManager) AddUser(ctx context.Context, user any) error {
	route, err := m.userRoute(user)
	if err != nil {
		return err
	}
	if _, err := request(ctx, m.client, rest.MethodPut, route, nil); err != nil {
		return err
	}
	m.client.Apply(events.ThreadMembersUpdate, Payload{
		"id":            m.threadID.String(),
		"guild_id":      m.guildID.String(),
		"added_members": []any{map[string]any{"id": m.threadID.String(), "user_id": m.userID(user).String()}},
	})
	return nil
}

func (m *ThreadMemberManager) RemoveUser(ctx context.Context, user any) error {
	route, err := m.userRoute(user)
	if err != nil {
		return err
	}
	if _, err := request(ctx, m.client, rest.MethodDelete, route, nil); err != nil {
		return err
	}
	m.client.Apply(events.ThreadMembersUpdate, Payload{
		"id":                 m.threadID.String(),
		"guild_id":           m.guildID.String(),
		"removed_member_ids": []any{m.userID(user).String()},
	})
	return nil
}

func (m *ThreadMemberManager) Fetch(ctx context.Context, user any, opts FetchOptions) (*ThreadMember, error) {
	id, err := m.ResolveID(user)
	if err != nil {
		return nil, err
	}
	if tm, ok := m.fetchCached(id, opts); ok {
		return tm, nil
	}
	raw, err := m.client.REST().Request(ctx, rest.ThreadMember(m.threadID.String(), id.String()), rest.MethodGet, nil, url.Values{"with_member": {"true"}})
	if err != nil {
		return nil, err
	}
	return m.store(raw, opts)
}

func (m *ThreadMemberManager) FetchAll(ctx context.Context, opts FetchOptions) ([]*ThreadMember, error) {
	raw, err := m.client.REST().Request(ctx, rest.ThreadMembers(m.threadID.String()), rest.MethodGet, nil, url.Values{"with_member": {"true"}})
	if err != nil {
		return nil, err
	}
	return m.storeAll(raw, opts)
}
