package entity

import (
	"time"

	"Concord/internal/bitfield"
	"Concord/internal/shared/snowflake"
)

type ChannelType int

const (
	ChannelGuildText          ChannelType = 0
	ChannelDM                 ChannelType = 1
	ChannelGuildVoice         ChannelType = 2
	ChannelGroupDM            ChannelType = 3
	ChannelGuildCategory      ChannelType = 4
	ChannelGuildAnnouncement  ChannelType = 5
	ChannelAnnouncementThread ChannelType = 10
	ChannelPublicThread       ChannelType = 11
	ChannelPrivateThread      ChannelType = 12
	ChannelGuildStageVoice    ChannelType = 13
	ChannelGuildDirectory     ChannelType = 14
	ChannelGuildForum         ChannelType = 15
	ChannelGuildMedia         ChannelType = 16
)

func (t ChannelType) IsThread() bool {
	return t == ChannelAnnouncementThread || t == ChannelPublicThread || t == ChannelPrivateThread
}

func (t ChannelType) IsVoiceBased() bool {
	return t == ChannelGuildVoice || t == ChannelGuildStageVoice
}

// sortGroup 返回参与同一派生排序的类型集合。
func (t ChannelType) sortGroup() []ChannelType {
	switch t {
	case ChannelGuildText, ChannelGuildAnnouncement, ChannelGuildForum, ChannelGuildMedia:
		return []ChannelType{ChannelGuildText, ChannelGuildAnnouncement, ChannelGuildForum, ChannelGuildMedia}
	case ChannelGuildVoice, ChannelGuildStageVoice:
		return []ChannelType{ChannelGuildVoice, ChannelGuildStageVoice}
	default:
		return []ChannelType{t}
	}
}

// Channel 是所有频道变体的公共契约，具体类型由 newChannel 按 type 选择。
type Channel interface {
	Identified
	cached[Channel]
	Type() ChannelType
	Flags() *bitfield.BitField
	base() *baseChannel
}

// GuildScoped 是属于某个 guild 的频道（含帖子线程）。
type GuildScoped interface {
	Channel
	GuildID() snowflake.ID
	Guild() *Guild
	Name() string
}

// TextBased 是可以收发消息的频道。
type TextBased interface {
	Channel
	Messages() *MessageManager
	LastMessageID() snowflake.ID
	LastPinTimestamp() time.Time
	text() *textState
}

// ThreadParent 是可以承载线程的频道。
type ThreadParent interface {
	GuildChannel
	Threads() *ThreadManager
}

var channelFactory map[ChannelType]func(Client, Payload) Channel

func init() {
	channelFactory = map[ChannelType]func(Client, Payload) Channel{
		ChannelGuildText:          func(c Client, p Payload) Channel { return newTextChannel(c, p) },
		ChannelDM:                 func(c Client, p Payload) Channel { return newDMChannel(c, p) },
		ChannelGuildVoice:         func(c Client, p Payload) Channel { return newVoiceChannel(c, p) },
		ChannelGroupDM:            func(c Client, p Payload) Channel { return newGroupDMChannel(c, p) },
		ChannelGuildCategory:      func(c Client, p Payload) Channel { return newCategoryChannel(c, p) },
		ChannelGuildAnnouncement:  func(c Client, p Payload) Channel { return newAnnouncementChannel(c, p) },
		ChannelAnnouncementThread: func(c Client, p Payload) Channel { return newThreadChannel(c, p) },
		ChannelPublicThread:       func(c Client, p Payload) Channel { return newThreadChannel(c, p) },
		ChannelPrivateThread:      func(c Client, p Payload) Channel { return newThreadChannel(c, p) },
		ChannelGuildStageVoice:    func(c Client, p Payload) Channel { return newStageChannel(c, p) },
		ChannelGuildDirectory:     func(c Client, p Payload) Channel { return newDirectoryChannel(c, p) },
		ChannelGuildForum:         func(c Client, p Payload) Channel { return newForumChannel(c, p) },
		ChannelGuildMedia:         func(c Client, p Payload) Channel { return newMediaChannel(c, p) },
	}
}

// newChannel 是频道变体唯一的构造入口；未知类型构造为 UnknownChannel。
func newChannel(c Client, data Payload) Channel {
	t, _ := data.Int("type")
	build, ok := channelFactory[ChannelType(t)]
	if !ok {
		return newUnknownChannel(c, data)
	}
	ch := build(c, data)
	if tb, ok := ch.(TextBased); ok {
		tb.text().messages.channel = ch
	}
	return ch
}

type baseChannel struct {
	Base
	typ   ChannelType
	flags *bitfield.BitField
}

func (c *baseChannel) init(cl Client, data Payload) {
	id, _ := data.ID("id")
	t, _ := data.Int("type")
	c.Base = newBase(cl, id)
	c.typ = ChannelType(t)
	c.flags = bitfield.Frozen(bitfield.ChannelFlags, 0)
}

func (c *baseChannel) patchBase(data Payload) {
	if v, ok := data.Get("flags"); ok {
		c.flags = bitfield.Frozen(bitfield.ChannelFlags, v)
	}
}

func (c *baseChannel) base() *baseChannel        { return c }
func (c *baseChannel) Type() ChannelType         { return c.typ }
func (c *baseChannel) Flags() *bitfield.BitField { return c.flags }

// textState 是文字类频道共享的消息状态。
type textState struct {
	lastMessageID    snowflake.ID
	lastPinTimestamp time.Time
	rateLimitPerUser int
	messages         *MessageManager
}

func (t *textState) initText(c Client, channelID, guildID snowflake.ID) {
	t.messages = newMessageManager(c, channelID, guildID)
}

func (t *textState) patchText(data Payload) {
	if v, ok := data.ID("last_message_id"); ok {
		t.lastMessageID = v
	}
	if v, ok := data.Time("last_pin_timestamp"); ok {
		t.lastPinTimestamp = v
	}
	if v, ok := data.Int("rate_limit_per_user"); ok {
		t.rateLimitPerUser = v
	}
}

func (t *textState) text() *textState            { return t }
func (t *textState) Messages() *MessageManager   { return t.messages }
func (t *textState) LastMessageID() snowflake.ID { return t.lastMessageID }
func (t *textState) LastPinTimestamp() time.Time { return t.lastPinTimestamp }
func (t *textState) RateLimitPerUser() int       { return t.rateLimitPerUser }

// LastMessage 返回缓存中的最后一条消息。
func (t *textState) LastMessage() *Message {
	return t.messages.Get(t.lastMessageID)
}

// UnknownChannel 承载未识别的频道类型，只保留公共字段。
type UnknownChannel struct {
	baseChannel
	guildID snowflake.ID
	name    string
}

func newUnknownChannel(c Client, data Payload) *UnknownChannel {
	ch := &UnknownChannel{}
	ch.init(c, data)
	ch.patch(data)
	return ch
}

func (c *UnknownChannel) patch(data Payload) {
	c.patchBase(data)
	if v, ok := data.ID("guild_id"); ok {
		c.guildID = v
	}
	if v, ok := data.String("name"); ok {
		c.name = v
	}
}

func (c *UnknownChannel) clone() Channel {
	cp := *c
	return &cp
}

func (c *UnknownChannel) GuildID() snowflake.ID { return c.guildID }
func (c *UnknownChannel) Name() string          { return c.name }
