package entity

import (
	"context"

	"Concord/internal/bitfield"
	"Concord/internal/events"
	"Concord/internal/rest"
	"Concord/internal/shared/snowflake"
)

// ChannelManager 是全局频道缓存，所有频道实例的唯一持有者；
// guild 频道视图、父频道的线程视图在 linked/unlinked 中同步。
type ChannelManager struct {
	cachingManager[snowflake.ID, Channel]
}

func NewChannelManager(c Client) *ChannelManager {
	m := &ChannelManager{}
	m.cachingManager = newIDManager(c, CacheChannels, func(p Payload) Channel { return newChannel(c, p) }, nil)
	m.replace = m.replaceOnTypeChange
	m.linked = m.link
	m.unlinked = m.unlink
	return m
}

// replaceOnTypeChange 频道类型变化时通过工厂重建实例，并迁移已缓存的消息。
func (m *ChannelManager) replaceOnTypeChange(cur Channel, data Payload) (Channel, bool) {
	t, ok := data.Int("type")
	if !ok || ChannelType(t) == cur.Type() {
		return nil, false
	}
	next := newChannel(m.client, data)
	if from, ok := cur.(TextBased); ok {
		if to, ok := next.(TextBased); ok {
			from.Messages().cache.Each(func(id snowflake.ID, msg *Message) bool {
				to.Messages().cache.Set(id, msg)
				return true
			})
		}
	}
	return next, true
}

func (m *ChannelManager) link(ch Channel) {
	gs, ok := ch.(GuildScoped)
	if !ok {
		return
	}
	if g := m.client.Guilds().Get(gs.GuildID()); g != nil {
		g.channels.cache.Set(ch.ID(), ch)
	}
	if t, ok := ch.(*ThreadChannel); ok {
		if p := t.Parent(); p != nil {
			p.Threads().cache.Set(t.id, t)
		}
	}
}

func (m *ChannelManager) unlink(ch Channel) {
	gs, ok := ch.(GuildScoped)
	if !ok {
		return
	}
	if g := m.client.Guilds().Get(gs.GuildID()); g != nil {
		g.channels.cache.Delete(ch.ID())
	}
	if t, ok := ch.(*ThreadChannel); ok {
		if p := t.Parent(); p != nil {
			p.Threads().cache.Delete(t.id)
		}
	}
}

func (m *ChannelManager) Fetch(ctx context.Context, id snowflake.ID, opts FetchOptions) (Channel, error) {
	if ch, ok := m.fetchCached(id, opts); ok {
		return ch, nil
	}
	raw, err := request(ctx, m.client, rest.MethodGet, rest.Channel(id.String()), nil)
	if err != nil {
		return nil, err
	}
	return m.store(raw, opts)
}

// Edit 修改任意频道（含线程）。
func (m *ChannelManager) Edit(ctx context.Context, channel any, opts ChannelEditOptions) (Channel, error) {
	id, err := m.resolveLive(channel)
	if err != nil {
		return nil, err
	}
	return editChannel(ctx, m.client, id, opts.wire())
}

func (m *ChannelManager) Delete(ctx context.Context, channel any) error {
	id, err := m.resolveLive(channel)
	if err != nil {
		return err
	}
	return deleteChannel(ctx, m.client, id)
}

type ChannelEditOptions struct {
	Name             *string
	Type             *ChannelType
	Position         *int
	Topic            *string
	NSFW             *bool
	RateLimitPerUser *int
	Bitrate          *int
	UserLimit        *int
	// Parent 置为 0 表示移出分类。
	Parent               *snowflake.ID
	RTCRegion            *string
	PermissionOverwrites []OverwriteData
	Flags                any
}

// OverwriteData 是创建/编辑频道时携带的权限覆盖。
type OverwriteData struct {
	ID    snowflake.ID
	Type  OverwriteType
	Allow any
	Deny  any
}

func (o OverwriteData) wire() map[string]any {
	allow, _ := bitfield.Permissions.Resolve(o.Allow)
	deny, _ := bitfield.Permissions.Resolve(o.Deny)
	return map[string]any{
		"id":    o.ID.String(),
		"type":  int(o.Type),
		"allow": bitfield.Frozen(bitfield.Permissions, allow).String(),
		"deny":  bitfield.Frozen(bitfield.Permissions, deny).String(),
	}
}

func (o ChannelEditOptions) wire() map[string]any {
	body := map[string]any{}
	setPtr(body, "name", o.Name)
	if o.Type != nil {
		body["type"] = int(*o.Type)
	}
	setPtr(body, "position", o.Position)
	setPtr(body, "topic", o.Topic)
	setPtr(body, "nsfw", o.NSFW)
	setPtr(body, "rate_limit_per_user", o.RateLimitPerUser)
	setPtr(body, "bitrate", o.Bitrate)
	setPtr(body, "user_limit", o.UserLimit)
	setPtr(body, "rtc_region", o.RTCRegion)
	if o.Parent != nil {
		if o.Parent.Valid() {
			body["parent_id"] = o.Parent.String()
		} else {
			body["parent_id"] = nil
		}
	}
	if o.PermissionOverwrites != nil {
		list := make([]any, 0, len(o.PermissionOverwrites))
		for _, ow := range o.PermissionOverwrites {
			list = append(list, ow.wire())
		}
		body["permission_overwrites"] = list
	}
	if o.Flags != nil {
		if bits, err := bitfield.ChannelFlags.Resolve(o.Flags); err == nil {
			body["flags"] = uint64(bits)
		}
	}
	return body
}

type ChannelCreateOptions struct {
	Name                 string
	Type                 ChannelType
	Topic                *string
	Bitrate              *int
	UserLimit            *int
	RateLimitPerUser     *int
	Position             *int
	Parent               snowflake.ID
	NSFW                 *bool
	PermissionOverwrites []OverwriteData
}

func (o ChannelCreateOptions) wire() map[string]any {
	body := ChannelEditOptions{
		Topic:                o.Topic,
		Bitrate:              o.Bitrate,
		UserLimit:            o.UserLimit,
		RateLimitPerUser:     o.RateLimitPerUser,
		Position:             o.Position,
		NSFW:                 o.NSFW,
		PermissionOverwrites: o.PermissionOverwrites,
	}.wire()
	body["name"] = o.Name
	body["type"] = int(o.Type)
	if o.Parent.Valid() {
		body["parent_id"] = o.Parent.String()
	}
	return body
}

// ChannelPosition 是批量调整位置的一项。
type ChannelPosition struct {
	Channel         snowflake.ID
	Position        int
	Parent          *snowflake.ID
	LockPermissions *bool
}

// GuildChannelManager 是 guild 下频道（含线程）的视图。
type GuildChannelManager struct {
	client  Client
	guildID snowflake.ID
	cache   *Collection[snowflake.ID, Channel]
}

func newGuildChannelManager(c Client, guildID snowflake.ID) *GuildChannelManager {
	return &GuildChannelManager{
		client:  c,
		guildID: guildID,
		cache:   NewCollection[snowflake.ID, Channel](),
	}
}

func (m *GuildChannelManager) Cache() *Collection[snowflake.ID, Channel] { return m.cache }

func (m *GuildChannelManager) Get(id snowflake.ID) Channel {
	ch, _ := m.cache.Get(id)
	return ch
}

func (m *GuildChannelManager) Resolve(v any) (Channel, error) {
	if ch, ok := v.(Channel); ok {
		return ch, nil
	}
	id, ok := parseID(v)
	if !ok {
		return nil, invalidResolvable("channel", v)
	}
	return m.Get(id), nil
}

// Add 写入全局频道缓存，guild_id 缺席时补齐。
// guild 自身构造期间尚未入缓存，这里直接挂到视图上。
func (m *GuildChannelManager) Add(data Payload, cache bool) (Channel, error) {
	ch, err := m.client.Channels().Add(data.WithDefault("guild_id", m.guildID.String()), cache)
	if err != nil {
		return nil, err
	}
	if cache {
		m.cache.Set(ch.ID(), ch)
	}
	return ch, nil
}

// prune 移出全局缓存已不再持有的频道。guild 构造期间尚未入全局缓存，
// 此时因上限淘汰的频道无法经 unlink 找到这个视图。
func (m *GuildChannelManager) prune() {
	for _, ch := range m.cache.Values() {
		if cur, ok := m.client.Channels().cache.Get(ch.ID()); !ok || cur != ch {
			m.cache.Delete(ch.ID())
		}
	}
}

// sync 用完整快照同步非线程频道：快照外的频道被删除。
func (m *GuildChannelManager) sync(items []Payload) []error {
	var errs []error
	keep := make(map[snowflake.ID]struct{}, len(items))
	for _, item := range items {
		if id, ok := idKey(item, "id"); ok {
			keep[id] = struct{}{}
		}
	}
	for _, ch := range m.cache.Values() {
		if ch.Type().IsThread() {
			continue
		}
		if _, ok := keep[ch.ID()]; !ok {
			m.client.Channels().Remove(ch.ID())
		}
	}
	for _, item := range items {
		if _, err := m.Add(item, true); err != nil {
			errs = append(errs, err)
		}
	}
	return errs
}

// Sorted 返回非线程频道，按 (分类顺序, 同组派生位置) 排列。
func (m *GuildChannelManager) Sorted() []GuildChannel {
	all := filterGuildChannels(m.client, m.guildID, func(GuildChannel) bool { return true })
	categories := make([]GuildChannel, 0)
	byParent := make(map[snowflake.ID][]GuildChannel)
	for _, gc := range all {
		if gc.Type() == ChannelGuildCategory {
			categories = append(categories, gc)
			continue
		}
		byParent[gc.ParentID()] = append(byParent[gc.ParentID()], gc)
	}
	sortChildren := func(items []GuildChannel) []GuildChannel {
		return sortPositionedBy(items, func(gc GuildChannel) int { return int(gc.Type().sortGroup()[0]) })
	}
	out := sortChildren(byParent[0])
	for _, cat := range sortPositioned(categories) {
		out = append(out, cat)
		out = append(out, sortChildren(byParent[cat.ID()])...)
	}
	return out
}

func (m *GuildChannelManager) Create(ctx context.Context, opts ChannelCreateOptions) (GuildChannel, error) {
	raw, err := request(ctx, m.client, rest.MethodPost, rest.GuildChannels(m.guildID.String()), opts.wire())
	if err != nil {
		return nil, err
	}
	data, ok := AsPayload(raw)
	if !ok {
		return nil, malformed("channel", "id")
	}
	data = data.WithDefault("guild_id", m.guildID.String())
	m.client.Apply(events.ChannelCreate, data)
	ch, err := m.client.Channels().applied(data)
	if err != nil {
		return nil, err
	}
	gc, _ := ch.(GuildChannel)
	return gc, nil
}

func (m *GuildChannelManager) Edit(ctx context.Context, channel any, opts ChannelEditOptions) (Channel, error) {
	return m.client.Channels().Edit(ctx, channel, opts)
}

func (m *GuildChannelManager) Delete(ctx context.Context, channel any) error {
	return m.client.Channels().Delete(ctx, channel)
}

func (m *GuildChannelManager) Fetch(ctx context.Context, id snowflake.ID, opts FetchOptions) (Channel, error) {
	return m.client.Channels().Fetch(ctx, id, opts)
}

// FetchAll 拉取 guild 的全部频道（不含线程）。
func (m *GuildChannelManager) FetchAll(ctx context.Context, opts FetchOptions) ([]Channel, error) {
	raw, err := request(ctx, m.client, rest.MethodGet, rest.GuildChannels(m.guildID.String()), nil)
	if err != nil {
		return nil, err
	}
	items := AsPayloads(raw)
	out := make([]Channel, 0, len(items))
	m.client.Write(func() {
		for _, item := range items {
			if ch, err := m.Add(item, !opts.NoCache); err == nil {
				out = append(out, ch)
			}
		}
	})
	return out, nil
}

// SetPositions 批量调整位置，结果经 GUILD_CHANNELS_POSITION_UPDATE 对账。
func (m *GuildChannelManager) SetPositions(ctx context.Context, positions []ChannelPosition) error {
	body := make([]any, 0, len(positions))
	for _, p := range positions {
		item := map[string]any{"id": p.Channel.String(), "position": p.Position}
		if p.Parent != nil {
			if p.Parent.Valid() {
				item["parent_id"] = p.Parent.String()
			} else {
				item["parent_id"] = nil
			}
		}
		setPtr(item, "lock_permissions", p.LockPermissions)
		body = append(body, item)
	}
	if _, err := request(ctx, m.client, rest.MethodPatch, rest.GuildChannels(m.guildID.String()), body); err != nil {
		return err
	}
	m.client.Apply(events.GuildChannelsPositionUpdate, Payload{
		"guild_id": m.guildID.String(),
		"channels": body,
	})
	return nil
}
