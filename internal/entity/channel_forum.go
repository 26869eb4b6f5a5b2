package entity

import (
	"Concord/internal/shared/snowflake"
)

type ForumTag struct {
	ID        snowflake.ID  `json:"id"`
	Name      string        `json:"name"`
	Moderated bool          `json:"moderated"`
	EmojiID   *snowflake.ID `json:"emoji_id"`
	EmojiName *string       `json:"emoji_name"`
}

type DefaultReaction struct {
	EmojiID   *snowflake.ID `json:"emoji_id"`
	EmojiName *string       `json:"emoji_name"`
}

// ForumChannel 只承载帖子线程，本身不收发消息。
type ForumChannel struct {
	guildChannel
	topic                      *string
	nsfw                       bool
	availableTags              []ForumTag
	defaultReactionEmoji       *DefaultReaction
	defaultThreadRateLimit     int
	defaultAutoArchiveDuration int
	defaultSortOrder           *int
	defaultForumLayout         int
	rateLimitPerUser           int
	threads                    *ThreadManager
}

func newForumChannel(c Client, data Payload) *ForumChannel {
	ch := &ForumChannel{}
	ch.initForum(c, data)
	ch.patch(data)
	return ch
}

func (c *ForumChannel) initForum(cl Client, data Payload) {
	c.initGuild(cl, data)
	c.threads = newThreadManager(cl, c.id, c.guildID)
}

func (c *ForumChannel) patch(data Payload) {
	c.patchGuild(data)
	if v, ok := data.StringPtr("topic"); ok {
		c.topic = v
	}
	if v, ok := data.Bool("nsfw"); ok {
		c.nsfw = v
	}
	if data.Has("available_tags") {
		var tags []ForumTag
		if _, err := data.Decode("available_tags", &tags); err == nil {
			c.availableTags = tags
		}
	}
	if v, ok := data.Get("default_reaction_emoji"); ok {
		if v == nil {
			c.defaultReactionEmoji = nil
		} else {
			r := &DefaultReaction{}
			if _, err := data.Decode("default_reaction_emoji", r); err == nil {
				c.defaultReactionEmoji = r
			}
		}
	}
	if v, ok := data.Int("default_thread_rate_limit_per_user"); ok {
		c.defaultThreadRateLimit = v
	}
	if v, ok := data.Int("default_auto_archive_duration"); ok {
		c.defaultAutoArchiveDuration = v
	}
	if v, ok := data.IntPtr("default_sort_order"); ok {
		c.defaultSortOrder = v
	}
	if v, ok := data.Int("default_forum_layout"); ok {
		c.defaultForumLayout = v
	}
	if v, ok := data.Int("rate_limit_per_user"); ok {
		c.rateLimitPerUser = v
	}
}

func (c *ForumChannel) clone() Channel {
	cp := *c
	return &cp
}

func (c *ForumChannel) Topic() *string                         { return c.topic }
func (c *ForumChannel) NSFW() bool                             { return c.nsfw }
func (c *ForumChannel) DefaultReactionEmoji() *DefaultReaction { return c.defaultReactionEmoji }
func (c *ForumChannel) DefaultSortOrder() *int                 { return c.defaultSortOrder }
func (c *ForumChannel) DefaultForumLayout() int                { return c.defaultForumLayout }
func (c *ForumChannel) Threads() *ThreadManager                { return c.threads }

func (c *ForumChannel) AvailableTags() []ForumTag {
	out := make([]ForumTag, len(c.availableTags))
	copy(out, c.availableTags)
	return out
}

// Tag 按 id 查找可用标签。
func (c *ForumChannel) Tag(id snowflake.ID) (ForumTag, bool) {
	for _, t := range c.availableTags {
		if t.ID == id {
			return t, true
		}
	}
	return ForumTag{}, false
}

// MediaChannel 是以媒体为主的帖子频道，字段与论坛一致。
type MediaChannel struct {
	ForumChannel
}

func newMediaChannel(c Client, data Payload) *MediaChannel {
	ch := &MediaChannel{}
	ch.initForum(c, data)
	ch.patch(data)
	return ch
}

func (c *MediaChannel) clone() Channel {
	cp := *c
	return &cp
}
