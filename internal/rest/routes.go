package rest

import "net/url"

const (
	MethodGet    = "GET"
	MethodPost   = "POST"
	MethodPatch  = "PATCH"
	MethodPut    = "PUT"
	MethodDelete = "DELETE"
)

func Gateway() string { return "/gateway/bot" }

func User(id string) string      { return "/users/" + id }
func CurrentUser() string        { return "/users/@me" }
func UserChannels() string       { return "/users/@me/channels" }
func UserGuild(id string) string { return "/users/@me/guilds/" + id }

func Guild(id string) string         { return "/guilds/" + id }
func GuildChannels(id string) string { return Guild(id) + "/channels" }
func GuildRoles(id string) string    { return Guild(id) + "/roles" }
func GuildRole(guildID, roleID string) string {
	return GuildRoles(guildID) + "/" + roleID
}
func GuildMembers(id string) string { return Guild(id) + "/members" }
func GuildMember(guildID, userID string) string {
	return GuildMembers(guildID) + "/" + userID
}
func GuildMemberRole(guildID, userID, roleID string) string {
	return GuildMember(guildID, userID) + "/roles/" + roleID
}
func GuildActiveThreads(id string) string { return Guild(id) + "/threads/active" }
func GuildVoiceState(guildID, userID string) string {
	return Guild(guildID) + "/voice-states/" + userID
}
func GuildScheduledEvents(id string) string { return Guild(id) + "/scheduled-events" }
func GuildScheduledEvent(guildID, eventID string) string {
	return GuildScheduledEvents(guildID) + "/" + eventID
}
func GuildAutoModerationRules(id string) string { return Guild(id) + "/auto-moderation/rules" }
func GuildAutoModerationRule(guildID, ruleID string) string {
	return GuildAutoModerationRules(guildID) + "/" + ruleID
}
func GuildInvites(id string) string  { return Guild(id) + "/invites" }
func GuildStickers(id string) string { return Guild(id) + "/stickers" }
func GuildSticker(guildID, stickerID string) string {
	return GuildStickers(guildID) + "/" + stickerID
}
func GuildEmojis(id string) string { return Guild(id) + "/emojis" }
func GuildEmoji(guildID, emojiID string) string {
	return GuildEmojis(guildID) + "/" + emojiID
}

func Channel(id string) string         { return "/channels/" + id }
func ChannelMessages(id string) string { return Channel(id) + "/messages" }
func ChannelMessage(channelID, messageID string) string {
	return ChannelMessages(channelID) + "/" + messageID
}
func ChannelBulkDelete(id string) string { return ChannelMessages(id) + "/bulk-delete" }
func ChannelPins(id string) string       { return Channel(id) + "/pins" }
func ChannelPin(channelID, messageID string) string {
	return ChannelPins(channelID) + "/" + messageID
}
func ChannelPermission(channelID, overwriteID string) string {
	return Channel(channelID) + "/permissions/" + overwriteID
}
func ChannelInvites(id string) string { return Channel(id) + "/invites" }
func ChannelThreads(id string) string { return Channel(id) + "/threads" }
func ChannelMessageThreads(channelID, messageID string) string {
	return ChannelMessage(channelID, messageID) + "/threads"
}
func ChannelArchivedThreads(id, visibility string) string {
	return ChannelThreads(id) + "/archived/" + visibility
}
func ThreadMembers(id string) string { return Channel(id) + "/thread-members" }
func ThreadMember(threadID, userID string) string {
	return ThreadMembers(threadID) + "/" + userID
}

func Invite(code string) string { return "/invites/" + url.PathEscape(code) }
func Sticker(id string) string  { return "/stickers/" + id }
