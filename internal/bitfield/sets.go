package bitfield

func bit(n uint) Bit { return 1 << n }

// 权限位。
const (
	CreateInstantInvite              = Bit(1 << 0)
	KickMembers                      = Bit(1 << 1)
	BanMembers                       = Bit(1 << 2)
	Administrator                    = Bit(1 << 3)
	ManageChannels                   = Bit(1 << 4)
	ManageGuild                      = Bit(1 << 5)
	AddReactions                     = Bit(1 << 6)
	ViewAuditLog                     = Bit(1 << 7)
	PrioritySpeaker                  = Bit(1 << 8)
	Stream                           = Bit(1 << 9)
	ViewChannel                      = Bit(1 << 10)
	SendMessages                     = Bit(1 << 11)
	SendTTSMessages                  = Bit(1 << 12)
	ManageMessages                   = Bit(1 << 13)
	EmbedLinks                       = Bit(1 << 14)
	AttachFiles                      = Bit(1 << 15)
	ReadMessageHistory               = Bit(1 << 16)
	MentionEveryone                  = Bit(1 << 17)
	UseExternalEmojis                = Bit(1 << 18)
	ViewGuildInsights                = Bit(1 << 19)
	Connect                          = Bit(1 << 20)
	Speak                            = Bit(1 << 21)
	MuteMembers                      = Bit(1 << 22)
	DeafenMembers                    = Bit(1 << 23)
	MoveMembers                      = Bit(1 << 24)
	UseVAD                           = Bit(1 << 25)
	ChangeNickname                   = Bit(1 << 26)
	ManageNicknames                  = Bit(1 << 27)
	ManageRoles                      = Bit(1 << 28)
	ManageWebhooks                   = Bit(1 << 29)
	ManageGuildExpressions           = Bit(1 << 30)
	UseApplicationCommands           = Bit(1 << 31)
	RequestToSpeak                   = Bit(1 << 32)
	ManageEvents                     = Bit(1 << 33)
	ManageThreads                    = Bit(1 << 34)
	CreatePublicThreads              = Bit(1 << 35)
	CreatePrivateThreads             = Bit(1 << 36)
	UseExternalStickers              = Bit(1 << 37)
	SendMessagesInThreads            = Bit(1 << 38)
	UseEmbeddedActivities            = Bit(1 << 39)
	ModerateMembers                  = Bit(1 << 40)
	ViewCreatorMonetizationAnalytics = Bit(1 << 41)
	UseSoundboard                    = Bit(1 << 42)
	CreateGuildExpressions           = Bit(1 << 43)
	CreateEvents                     = Bit(1 << 44)
	UseExternalSounds                = Bit(1 << 45)
	SendVoiceMessages                = Bit(1 << 46)
	SendPolls                        = Bit(1 << 49)
	UseExternalApps                  = Bit(1 << 50)
)

var Permissions = NewFlagSet("permissions",
	Flag{"CREATE_INSTANT_INVITE", CreateInstantInvite},
	Flag{"KICK_MEMBERS", KickMembers},
	Flag{"BAN_MEMBERS", BanMembers},
	Flag{"ADMINISTRATOR", Administrator},
	Flag{"MANAGE_CHANNELS", ManageChannels},
	Flag{"MANAGE_GUILD", ManageGuild},
	Flag{"ADD_REACTIONS", AddReactions},
	Flag{"VIEW_AUDIT_LOG", ViewAuditLog},
	Flag{"PRIORITY_SPEAKER", PrioritySpeaker},
	Flag{"STREAM", Stream},
	Flag{"VIEW_CHANNEL", ViewChannel},
	Flag{"SEND_MESSAGES", SendMessages},
	Flag{"SEND_TTS_MESSAGES", SendTTSMessages},
	Flag{"MANAGE_MESSAGES", ManageMessages},
	Flag{"EMBED_LINKS", EmbedLinks},
	Flag{"ATTACH_FILES", AttachFiles},
	Flag{"READ_MESSAGE_HISTORY", ReadMessageHistory},
	Flag{"MENTION_EVERYONE", MentionEveryone},
	Flag{"USE_EXTERNAL_EMOJIS", UseExternalEmojis},
	Flag{"VIEW_GUILD_INSIGHTS", ViewGuildInsights},
	Flag{"CONNECT", Connect},
	Flag{"SPEAK", Speak},
	Flag{"MUTE_MEMBERS", MuteMembers},
	Flag{"DEAFEN_MEMBERS", DeafenMembers},
	Flag{"MOVE_MEMBERS", MoveMembers},
	Flag{"USE_VAD", UseVAD},
	Flag{"CHANGE_NICKNAME", ChangeNickname},
	Flag{"MANAGE_NICKNAMES", ManageNicknames},
	Flag{"MANAGE_ROLES", ManageRoles},
	Flag{"MANAGE_WEBHOOKS", ManageWebhooks},
	Flag{"MANAGE_GUILD_EXPRESSIONS", ManageGuildExpressions},
	Flag{"USE_APPLICATION_COMMANDS", UseApplicationCommands},
	Flag{"REQUEST_TO_SPEAK", RequestToSpeak},
	Flag{"MANAGE_EVENTS", ManageEvents},
	Flag{"MANAGE_THREADS", ManageThreads},
	Flag{"CREATE_PUBLIC_THREADS", CreatePublicThreads},
	Flag{"CREATE_PRIVATE_THREADS", CreatePrivateThreads},
	Flag{"USE_EXTERNAL_STICKERS", UseExternalStickers},
	Flag{"SEND_MESSAGES_IN_THREADS", SendMessagesInThreads},
	Flag{"USE_EMBEDDED_ACTIVITIES", UseEmbeddedActivities},
	Flag{"MODERATE_MEMBERS", ModerateMembers},
	Flag{"VIEW_CREATOR_MONETIZATION_ANALYTICS", ViewCreatorMonetizationAnalytics},
	Flag{"USE_SOUNDBOARD", UseSoundboard},
	Flag{"CREATE_GUILD_EXPRESSIONS", CreateGuildExpressions},
	Flag{"CREATE_EVENTS", CreateEvents},
	Flag{"USE_EXTERNAL_SOUNDS", UseExternalSounds},
	Flag{"SEND_VOICE_MESSAGES", SendVoiceMessages},
	Flag{"SEND_POLLS", SendPolls},
	Flag{"USE_EXTERNAL_APPS", UseExternalApps},
).WithOverride("ADMINISTRATOR")

// Intents 是 IDENTIFY 时声明的订阅范围。
var Intents = NewFlagSet("intents",
	Flag{"GUILDS", bit(0)},
	Flag{"GUILD_MEMBERS", bit(1)},
	Flag{"GUILD_MODERATION", bit(2)},
	Flag{"GUILD_EXPRESSIONS", bit(3)},
	Flag{"GUILD_INTEGRATIONS", bit(4)},
	Flag{"GUILD_WEBHOOKS", bit(5)},
	Flag{"GUILD_INVITES", bit(6)},
	Flag{"GUILD_VOICE_STATES", bit(7)},
	Flag{"GUILD_PRESENCES", bit(8)},
	Flag{"GUILD_MESSAGES", bit(9)},
	Flag{"GUILD_MESSAGE_REACTIONS", bit(10)},
	Flag{"GUILD_MESSAGE_TYPING", bit(11)},
	Flag{"DIRECT_MESSAGES", bit(12)},
	Flag{"DIRECT_MESSAGE_REACTIONS", bit(13)},
	Flag{"DIRECT_MESSAGE_TYPING", bit(14)},
	Flag{"MESSAGE_CONTENT", bit(15)},
	Flag{"GUILD_SCHEDULED_EVENTS", bit(16)},
	Flag{"AUTO_MODERATION_CONFIGURATION", bit(20)},
	Flag{"AUTO_MODERATION_EXECUTION", bit(21)},
	Flag{"GUILD_MESSAGE_POLLS", bit(24)},
	Flag{"DIRECT_MESSAGE_POLLS", bit(25)},
)

var ChannelFlags = NewFlagSet("channel_flags",
	Flag{"PINNED", bit(1)},
	Flag{"REQUIRE_TAG", bit(4)},
	Flag{"HIDE_MEDIA_DOWNLOAD_OPTIONS", bit(15)},
)

var MessageFlags = NewFlagSet("message_flags",
	Flag{"CROSSPOSTED", bit(0)},
	Flag{"IS_CROSSPOST", bit(1)},
	Flag{"SUPPRESS_EMBEDS", bit(2)},
	Flag{"SOURCE_MESSAGE_DELETED", bit(3)},
	Flag{"URGENT", bit(4)},
	Flag{"HAS_THREAD", bit(5)},
	Flag{"EPHEMERAL", bit(6)},
	Flag{"LOADING", bit(7)},
	Flag{"FAILED_TO_MENTION_SOME_ROLES_IN_THREAD", bit(8)},
	Flag{"SUPPRESS_NOTIFICATIONS", bit(12)},
	Flag{"IS_VOICE_MESSAGE", bit(13)},
)

var UserFlags = NewFlagSet("user_flags",
	Flag{"STAFF", bit(0)},
	Flag{"PARTNER", bit(1)},
	Flag{"HYPESQUAD", bit(2)},
	Flag{"BUG_HUNTER_LEVEL_1", bit(3)},
	Flag{"HYPESQUAD_ONLINE_HOUSE_1", bit(6)},
	Flag{"HYPESQUAD_ONLINE_HOUSE_2", bit(7)},
	Flag{"HYPESQUAD_ONLINE_HOUSE_3", bit(8)},
	Flag{"PREMIUM_EARLY_SUPPORTER", bit(9)},
	Flag{"TEAM_PSEUDO_USER", bit(10)},
	Flag{"BUG_HUNTER_LEVEL_2", bit(14)},
	Flag{"VERIFIED_BOT", bit(16)},
	Flag{"VERIFIED_DEVELOPER", bit(17)},
	Flag{"CERTIFIED_MODERATOR", bit(18)},
	Flag{"BOT_HTTP_INTERACTIONS", bit(19)},
	Flag{"ACTIVE_DEVELOPER", bit(22)},
)

var SystemChannelFlags = NewFlagSet("system_channel_flags",
	Flag{"SUPPRESS_JOIN_NOTIFICATIONS", bit(0)},
	Flag{"SUPPRESS_PREMIUM_SUBSCRIPTIONS", bit(1)},
	Flag{"SUPPRESS_GUILD_REMINDER_NOTIFICATIONS", bit(2)},
	Flag{"SUPPRESS_JOIN_NOTIFICATION_REPLIES", bit(3)},
	Flag{"SUPPRESS_ROLE_SUBSCRIPTION_PURCHASE_NOTIFICATIONS", bit(4)},
	Flag{"SUPPRESS_ROLE_SUBSCRIPTION_PURCHASE_NOTIFICATION_REPLIES", bit(5)},
)

var MemberFlags = NewFlagSet("member_flags",
	Flag{"DID_REJOIN", bit(0)},
	Flag{"COMPLETED_ONBOARDING", bit(1)},
	Flag{"BYPASSES_VERIFICATION", bit(2)},
	Flag{"STARTED_ONBOARDING", bit(3)},
)

var RoleFlags = NewFlagSet("role_flags",
	Flag{"IN_PROMPT", bit(0)},
)

var ThreadMemberFlags = NewFlagSet("thread_member_flags",
	Flag{"HAS_INTERACTED", bit(0)},
	Flag{"ALL_MESSAGES", bit(1)},
	Flag{"ONLY_MENTIONS", bit(2)},
	Flag{"NO_MESSAGES", bit(3)},
)
