// Package events 定义网关 dispatch 类型名与对外发出的事件名。
//
// 对外事件名与参数顺序属于兼容面：
//   - 创建/删除类事件携带单个实体，例如 roleDelete(role)
//   - 更新类事件携带 (old, updated)，old 为修改前的浅拷贝
//   - 少数事件在实体之后追加额外参数，见各常量注释
package events

// Type 是网关 dispatch 的 t 字段。
type Type = string

// Name 是对外发出的事件名。
type Name = string

const (
	Ready   Type = "READY"
	Resumed Type = "RESUMED"

	UserUpdate Type = "USER_UPDATE"

	GuildCreate Type = "GUILD_CREATE"
	GuildUpdate Type = "GUILD_UPDATE"
	GuildDelete Type = "GUILD_DELETE"

	GuildRoleCreate Type = "GUILD_ROLE_CREATE"
	GuildRoleUpdate Type = "GUILD_ROLE_UPDATE"
	GuildRoleDelete Type = "GUILD_ROLE_DELETE"

	ChannelCreate     Type = "CHANNEL_CREATE"
	ChannelUpdate     Type = "CHANNEL_UPDATE"
	ChannelDelete     Type = "CHANNEL_DELETE"
	ChannelPinsUpdate Type = "CHANNEL_PINS_UPDATE"

	ThreadCreate        Type = "THREAD_CREATE"
	ThreadUpdate        Type = "THREAD_UPDATE"
	ThreadDelete        Type = "THREAD_DELETE"
	ThreadListSync      Type = "THREAD_LIST_SYNC"
	ThreadMemberUpdate  Type = "THREAD_MEMBER_UPDATE"
	ThreadMembersUpdate Type = "THREAD_MEMBERS_UPDATE"

	GuildMemberAdd    Type = "GUILD_MEMBER_ADD"
	GuildMemberUpdate Type = "GUILD_MEMBER_UPDATE"
	GuildMemberRemove Type = "GUILD_MEMBER_REMOVE"
	GuildMembersChunk Type = "GUILD_MEMBERS_CHUNK"
	PresenceUpdate    Type = "PRESENCE_UPDATE"

	MessageCreate     Type = "MESSAGE_CREATE"
	MessageUpdate     Type = "MESSAGE_UPDATE"
	MessageDelete     Type = "MESSAGE_DELETE"
	MessageDeleteBulk Type = "MESSAGE_DELETE_BULK"

	VoiceStateUpdate Type = "VOICE_STATE_UPDATE"

	GuildScheduledEventCreate Type = "GUILD_SCHEDULED_EVENT_CREATE"
	GuildScheduledEventUpdate Type = "GUILD_SCHEDULED_EVENT_UPDATE"
	GuildScheduledEventDelete Type = "GUILD_SCHEDULED_EVENT_DELETE"

	AutoModerationRuleCreate Type = "AUTO_MODERATION_RULE_CREATE"
	AutoModerationRuleUpdate Type = "AUTO_MODERATION_RULE_UPDATE"
	AutoModerationRuleDelete Type = "AUTO_MODERATION_RULE_DELETE"

	InviteCreate Type = "INVITE_CREATE"
	InviteDelete Type = "INVITE_DELETE"

	GuildEmojisUpdate   Type = "GUILD_EMOJIS_UPDATE"
	GuildStickersUpdate Type = "GUILD_STICKERS_UPDATE"
)

// 仅由 REST 变更路径触发的内部类型，网关不会下发。
const (
	GuildEmojiCreate            Type = "GUILD_EMOJI_CREATE"
	GuildEmojiUpdate            Type = "GUILD_EMOJI_UPDATE"
	GuildEmojiDelete            Type = "GUILD_EMOJI_DELETE"
	GuildStickerCreate          Type = "GUILD_STICKER_CREATE"
	GuildStickerUpdate          Type = "GUILD_STICKER_UPDATE"
	GuildStickerDelete          Type = "GUILD_STICKER_DELETE"
	GuildChannelsPositionUpdate Type = "GUILD_CHANNELS_POSITION_UPDATE"
	GuildRolesPositionUpdate    Type = "GUILD_ROLES_POSITION_UPDATE"
)

const (
	ClientReady  Name = "ready"
	ShardResume  Name = "resumed"
	UserUpdated  Name = "userUpdate"
	GuildCreated Name = "guildCreate"
	GuildUpdated Name = "guildUpdate"
	GuildDeleted Name = "guildDelete"
	// GuildUnavailable(guild)：服务端故障导致 guild 暂不可用，实体保留在缓存中。
	GuildUnavailable Name = "guildUnavailable"
	// GuildAvailable(guild)：不可用的 guild 重新下发完整快照。
	GuildAvailable Name = "guildAvailable"

	RoleCreated Name = "roleCreate"
	RoleUpdated Name = "roleUpdate"
	RoleDeleted Name = "roleDelete"

	ChannelCreated Name = "channelCreate"
	ChannelUpdated Name = "channelUpdate"
	ChannelDeleted Name = "channelDelete"
	// ChannelPinsUpdated(channel, lastPinTimestamp)
	ChannelPinsUpdated Name = "channelPinsUpdate"

	// ThreadCreated(thread, newlyCreated)
	ThreadCreated Name = "threadCreate"
	ThreadUpdated Name = "threadUpdate"
	ThreadDeleted Name = "threadDelete"
	// ThreadListSynced(threads, guild)
	ThreadListSynced    Name = "threadListSync"
	ThreadMemberUpdated Name = "threadMemberUpdate"
	// ThreadMembersUpdated(added, removed, thread)
	ThreadMembersUpdated Name = "threadMembersUpdate"

	GuildMemberAdded   Name = "guildMemberAdd"
	GuildMemberUpdated Name = "guildMemberUpdate"
	GuildMemberRemoved Name = "guildMemberRemove"
	// GuildMembersChunked(members, guild, chunk)
	GuildMembersChunked Name = "guildMembersChunk"
	PresenceUpdated     Name = "presenceUpdate"

	MessageCreated Name = "messageCreate"
	MessageUpdated Name = "messageUpdate"
	MessageDeleted Name = "messageDelete"
	// MessageBulkDeleted(messages, channel)
	MessageBulkDeleted Name = "messageDeleteBulk"

	VoiceStateUpdated Name = "voiceStateUpdate"

	ScheduledEventCreated Name = "guildScheduledEventCreate"
	ScheduledEventUpdated Name = "guildScheduledEventUpdate"
	ScheduledEventDeleted Name = "guildScheduledEventDelete"

	AutoModerationRuleCreated Name = "autoModerationRuleCreate"
	AutoModerationRuleUpdated Name = "autoModerationRuleUpdate"
	AutoModerationRuleDeleted Name = "autoModerationRuleDelete"

	InviteCreated Name = "inviteCreate"
	InviteDeleted Name = "inviteDelete"

	EmojiCreated   Name = "emojiCreate"
	EmojiUpdated   Name = "emojiUpdate"
	EmojiDeleted   Name = "emojiDelete"
	StickerCreated Name = "stickerCreate"
	StickerUpdated Name = "stickerUpdate"
	StickerDeleted Name = "stickerDelete"
)
