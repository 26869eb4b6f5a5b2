package entity

import (
	"context"
	"slices"

	"Concord/internal/bitfield"
	"Concord/internal/events"
	"Concord/internal/rest"
	"Concord/internal/shared/snowflake"
)

// GuildChannel 是 guild 下可排序、带权限覆盖的频道（不含线程）。
type GuildChannel interface {
	GuildScoped
	RawPosition() int
	Position() int
	ParentID() snowflake.ID
	Parent() *CategoryChannel
	PermissionOverwrites() *PermissionOverwriteManager
	PermissionsFor(member *Member, checkAdmin bool) *bitfield.BitField
	guildBase() *guildChannel
}

type guildChannel struct {
	baseChannel
	guildID     snowflake.ID
	name        string
	rawPosition int
	parentID    snowflake.ID
	overwrites  *PermissionOverwriteManager
}

func (c *guildChannel) initGuild(cl Client, data Payload) {
	c.init(cl, data)
	c.guildID, _ = data.ID("guild_id")
	c.overwrites = newPermissionOverwriteManager(cl, c.id, c.guildID)
}

func (c *guildChannel) patchGuild(data Payload) {
	c.patchBase(data)
	if v, ok := data.ID("guild_id"); ok && v.Valid() {
		c.guildID = v
	}
	if v, ok := data.String("name"); ok {
		c.name = v
	}
	if v, ok := data.Int("position"); ok {
		c.rawPosition = v
	}
	if v, ok := data.ID("parent_id"); ok {
		c.parentID = v
	}
	if items, ok := data.Objects("permission_overwrites"); ok {
		c.overwrites.Sync(items)
	}
}

func (c *guildChannel) guildBase() *guildChannel                          { return c }
func (c *guildChannel) GuildID() snowflake.ID                             { return c.guildID }
func (c *guildChannel) Name() string                                      { return c.name }
func (c *guildChannel) RawPosition() int                                  { return c.rawPosition }
func (c *guildChannel) ParentID() snowflake.ID                            { return c.parentID }
func (c *guildChannel) PermissionOverwrites() *PermissionOverwriteManager { return c.overwrites }

// Guild 按 id 解析所属 guild，未缓存时返回 nil。
func (c *guildChannel) Guild() *Guild {
	return c.client.Guilds().Get(c.guildID)
}

func (c *guildChannel) Parent() *CategoryChannel {
	if !c.parentID.Valid() {
		return nil
	}
	cat, _ := c.client.Channels().Get(c.parentID).(*CategoryChannel)
	return cat
}

// Position 每次读取时按同组兄弟频道重新计算：先比原始序号，再按 id 升序。
func (c *guildChannel) Position() int {
	group := c.typ.sortGroup()
	isCategory := c.typ == ChannelGuildCategory
	siblings := filterGuildChannels(c.client, c.guildID, func(gc GuildChannel) bool {
		return slices.Contains(group, gc.Type()) && (isCategory || gc.ParentID() == c.parentID)
	})
	return indexOf(sortPositioned(siblings), c.id)
}

// PermissionsFor 计算成员在该频道的最终权限；guild 未缓存时返回 nil。
func (c *guildChannel) PermissionsFor(member *Member, checkAdmin bool) *bitfield.BitField {
	g := c.Guild()
	if g == nil || member == nil {
		return nil
	}
	if checkAdmin && member.userID == g.ownerID {
		return bitfield.Frozen(bitfield.Permissions, bitfield.Permissions.All())
	}
	roles := member.Roles()
	var bits bitfield.Bit
	for _, r := range roles {
		bits |= r.permissions.Bits()
	}
	if checkAdmin && bits&bitfield.Administrator != 0 {
		return bitfield.Frozen(bitfield.Permissions, bitfield.Permissions.All())
	}

	if ow := c.overwrites.Get(c.guildID); ow != nil {
		bits = bits&^ow.deny.Bits() | ow.allow.Bits()
	}
	var allow, deny bitfield.Bit
	for _, r := range roles {
		if r.id == c.guildID {
			continue
		}
		if ow := c.overwrites.Get(r.id); ow != nil {
			allow |= ow.allow.Bits()
			deny |= ow.deny.Bits()
		}
	}
	bits = bits&^deny | allow
	if ow := c.overwrites.Get(member.userID); ow != nil && ow.typ == OverwriteMember {
		bits = bits&^ow.deny.Bits() | ow.allow.Bits()
	}
	return bitfield.Frozen(bitfield.Permissions, bits)
}

// RolePermissions 计算角色在该频道的权限（everyone 覆盖 + 角色覆盖）。
func (c *guildChannel) RolePermissions(role *Role, checkAdmin bool) *bitfield.BitField {
	if role == nil {
		return nil
	}
	bits := role.permissions.Bits()
	if checkAdmin && bits&bitfield.Administrator != 0 {
		return bitfield.Frozen(bitfield.Permissions, bitfield.Permissions.All())
	}
	if ow := c.overwrites.Get(c.guildID); ow != nil {
		bits = bits&^ow.deny.Bits() | ow.allow.Bits()
	}
	if ow := c.overwrites.Get(role.id); ow != nil && role.id != c.guildID {
		bits = bits&^ow.deny.Bits() | ow.allow.Bits()
	}
	return bitfield.Frozen(bitfield.Permissions, bits)
}

// Edit 修改频道，结果经 CHANNEL_UPDATE 对账。
func (c *guildChannel) Edit(ctx context.Context, opts ChannelEditOptions) (Channel, error) {
	if err := c.alive("channel"); err != nil {
		return nil, err
	}
	return editChannel(ctx, c.client, c.id, opts.wire())
}

func (c *guildChannel) Delete(ctx context.Context) error {
	if err := c.alive("channel"); err != nil {
		return err
	}
	return deleteChannel(ctx, c.client, c.id)
}

func (c *guildChannel) SetName(ctx context.Context, name string) (Channel, error) {
	return c.Edit(ctx, ChannelEditOptions{Name: &name})
}

func (c *guildChannel) SetPosition(ctx context.Context, position int) error {
	if err := c.alive("channel"); err != nil {
		return err
	}
	g := c.Guild()
	if g == nil {
		return stale("guild", c.guildID.String())
	}
	return g.channels.SetPositions(ctx, []ChannelPosition{{Channel: c.id, Position: position}})
}

func editChannel(ctx context.Context, c Client, id snowflake.ID, body map[string]any) (Channel, error) {
	raw, err := request(ctx, c, rest.MethodPatch, rest.Channel(id.String()), body)
	if err != nil {
		return nil, err
	}
	data, ok := AsPayload(raw)
	if !ok {
		return nil, malformed("channel", "id")
	}
	t := events.ChannelUpdate
	if typ, _ := data.Int("type"); ChannelType(typ).IsThread() {
		t = events.ThreadUpdate
	}
	c.Apply(t, data)
	return c.Channels().applied(data)
}

func deleteChannel(ctx context.Context, c Client, id snowflake.ID) error {
	raw, err := request(ctx, c, rest.MethodDelete, rest.Channel(id.String()), nil)
	if err != nil {
		return err
	}
	data, ok := AsPayload(raw)
	if !ok {
		data = Payload{"id": id.String()}
		c.Read(func() {
			if ch := c.Channels().Get(id); ch != nil {
				data["type"] = float64(ch.Type())
			}
		})
	}
	t := events.ChannelDelete
	if typ, _ := data.Int("type"); ChannelType(typ).IsThread() {
		t = events.ThreadDelete
	}
	c.Apply(t, data)
	return nil
}

// filterGuildChannels 扫描 guild 下的频道；guild 未缓存时退化为扫描全局频道缓存。
func filterGuildChannels(c Client, guildID snowflake.ID, keep func(GuildChannel) bool) []GuildChannel {
	var out []GuildChannel
	collect := func(_ snowflake.ID, ch Channel) bool {
		gc, ok := ch.(GuildChannel)
		if ok && gc.GuildID() == guildID && keep(gc) {
			out = append(out, gc)
		}
		return true
	}
	if g := c.Guilds().Get(guildID); g != nil {
		g.channels.cache.Each(collect)
	} else {
		c.Channels().Cache().Each(collect)
	}
	return out
}

type TextChannel struct {
	guildChannel
	textState
	topic                      *string
	nsfw                       bool
	defaultAutoArchiveDuration int
	defaultThreadRateLimit     int
	threads                    *ThreadManager
}

func newTextChannel(c Client, data Payload) *TextChannel {
	ch := &TextChannel{}
	ch.initGuild(c, data)
	ch.initText(c, ch.id, ch.guildID)
	ch.threads = newThreadManager(c, ch.id, ch.guildID)
	ch.patch(data)
	return ch
}

func (c *TextChannel) patch(data Payload) {
	c.patchGuild(data)
	c.patchText(data)
	if v, ok := data.StringPtr("topic"); ok {
		c.topic = v
	}
	if v, ok := data.Bool("nsfw"); ok {
		c.nsfw = v
	}
	if v, ok := data.Int("default_auto_archive_duration"); ok {
		c.defaultAutoArchiveDuration = v
	}
	if v, ok := data.Int("default_thread_rate_limit_per_user"); ok {
		c.defaultThreadRateLimit = v
	}
}

func (c *TextChannel) clone() Channel {
	cp := *c
	return &cp
}

func (c *TextChannel) Topic() *string { return c.topic }
func (c *TextChannel) NSFW() bool     { return c.nsfw }
func (c *TextChannel) DefaultAutoArchiveDuration() int {
	return c.defaultAutoArchiveDuration
}
func (c *TextChannel) Threads() *ThreadManager { return c.threads }

func (c *TextChannel) SetTopic(ctx context.Context, topic string) (Channel, error) {
	return c.Edit(ctx, ChannelEditOptions{Topic: &topic})
}

// AnnouncementChannel 与文字频道字段一致，消息可被跨服转发。
type AnnouncementChannel struct {
	TextChannel
}

func newAnnouncementChannel(c Client, data Payload) *AnnouncementChannel {
	ch := &AnnouncementChannel{}
	ch.initGuild(c, data)
	ch.initText(c, ch.id, ch.guildID)
	ch.threads = newThreadManager(c, ch.id, ch.guildID)
	ch.patch(data)
	return ch
}

func (c *AnnouncementChannel) clone() Channel {
	cp := *c
	return &cp
}

type VoiceChannel struct {
	guildChannel
	textState
	bitrate          int
	userLimit        int
	rtcRegion        *string
	videoQualityMode int
	nsfw             bool
}

func newVoiceChannel(c Client, data Payload) *VoiceChannel {
	ch := &VoiceChannel{}
	ch.initGuild(c, data)
	ch.initText(c, ch.id, ch.guildID)
	ch.patch(data)
	return ch
}

func (c *VoiceChannel) patch(data Payload) {
	c.patchGuild(data)
	c.patchText(data)
	c.patchVoice(data)
}

func (c *VoiceChannel) patchVoice(data Payload) {
	if v, ok := data.Int("bitrate"); ok {
		c.bitrate = v
	}
	if v, ok := data.Int("user_limit"); ok {
		c.userLimit = v
	}
	if v, ok := data.StringPtr("rtc_region"); ok {
		c.rtcRegion = v
	}
	if v, ok := data.Int("video_quality_mode"); ok {
		c.videoQualityMode = v
	}
	if v, ok := data.Bool("nsfw"); ok {
		c.nsfw = v
	}
}

func (c *VoiceChannel) clone() Channel {
	cp := *c
	return &cp
}

func (c *VoiceChannel) Bitrate() int          { return c.bitrate }
func (c *VoiceChannel) UserLimit() int        { return c.userLimit }
func (c *VoiceChannel) RTCRegion() *string    { return c.rtcRegion }
func (c *VoiceChannel) VideoQualityMode() int { return c.videoQualityMode }
func (c *VoiceChannel) NSFW() bool            { return c.nsfw }

// Members 由 guild 的语音状态派生：当前连接在该频道的成员。
func (c *VoiceChannel) Members() []*Member {
	return voiceMembers(c.client, c.guildID, c.id)
}

// Full 判断是否已满员（userLimit=0 表示不限）。
func (c *VoiceChannel) Full() bool {
	return c.userLimit > 0 && len(c.Members()) >= c.userLimit
}

func voiceMembers(c Client, guildID, channelID snowflake.ID) []*Member {
	g := c.Guilds().Get(guildID)
	if g == nil {
		return nil
	}
	var out []*Member
	g.voiceStates.cache.Each(func(_ snowflake.ID, vs *VoiceState) bool {
		if vs.channelID == channelID {
			if m := g.members.Get(vs.userID); m != nil {
				out = append(out, m)
			}
		}
		return true
	})
	return out
}

type StageChannel struct {
	VoiceChannel
	topic *string
}

func newStageChannel(c Client, data Payload) *StageChannel {
	ch := &StageChannel{}
	ch.initGuild(c, data)
	ch.initText(c, ch.id, ch.guildID)
	ch.patch(data)
	return ch
}

func (c *StageChannel) patch(data Payload) {
	c.VoiceChannel.patch(data)
	if v, ok := data.StringPtr("topic"); ok {
		c.topic = v
	}
}

func (c *StageChannel) clone() Channel {
	cp := *c
	return &cp
}

func (c *StageChannel) Topic() *string { return c.topic }

type CategoryChannel struct {
	guildChannel
}

func newCategoryChannel(c Client, data Payload) *CategoryChannel {
	ch := &CategoryChannel{}
	ch.initGuild(c, data)
	ch.patch(data)
	return ch
}

func (c *CategoryChannel) patch(data Payload) {
	c.patchGuild(data)
}

func (c *CategoryChannel) clone() Channel {
	cp := *c
	return &cp
}

// Children 返回 parent 指向该分类的频道，按派生位置排序。
func (c *CategoryChannel) Children() []GuildChannel {
	children := filterGuildChannels(c.client, c.guildID, func(gc GuildChannel) bool {
		return gc.ParentID() == c.id
	})
	slices.SortStableFunc(children, func(a, b GuildChannel) int {
		if ga, gb := a.Type().sortGroup()[0], b.Type().sortGroup()[0]; ga != gb {
			return int(ga) - int(gb)
		}
		return comparePositions(a, b)
	})
	return children
}

// DirectoryChannel 是学生中心目录频道，只有名称。
type DirectoryChannel struct {
	baseChannel
	guildID snowflake.ID
	name    string
}

func newDirectoryChannel(c Client, data Payload) *DirectoryChannel {
	ch := &DirectoryChannel{}
	ch.init(c, data)
	ch.patch(data)
	return ch
}

func (c *DirectoryChannel) patch(data Payload) {
	c.patchBase(data)
	if v, ok := data.ID("guild_id"); ok && v.Valid() {
		c.guildID = v
	}
	if v, ok := data.String("name"); ok {
		c.name = v
	}
}

func (c *DirectoryChannel) clone() Channel {
	cp := *c
	return &cp
}

func (c *DirectoryChannel) GuildID() snowflake.ID { return c.guildID }
func (c *DirectoryChannel) Name() string          { return c.name }
func (c *DirectoryChannel) Guild() *Guild         { return c.client.Guilds().Get(c.guildID) }
