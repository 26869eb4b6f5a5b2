package entity

import (
	"context"
	"net/url"
	"time"

	"Concord/internal/bitfield"
	"Concord/internal/events"
	"Concord/internal/rest"
	"Concord/internal/shared/snowflake"
	"Concord/modules/kit/logx"
)

type Guild struct {
	Base
	name                        string
	icon                        *string
	splash                      *string
	banner                      *string
	description                 *string
	ownerID                     snowflake.ID
	available                   bool
	large                       bool
	memberCount                 int
	afkChannelID                snowflake.ID
	afkTimeout                  int
	systemChannelID             snowflake.ID
	systemChannelFlags          *bitfield.BitField
	rulesChannelID              snowflake.ID
	publicUpdatesChannelID      snowflake.ID
	verificationLevel           int
	explicitContentFilter       int
	defaultMessageNotifications int
	mfaLevel                    int
	nsfwLevel                   int
	premiumTier                 int
	premiumSubscriptionCount    int
	preferredLocale             string
	vanityURLCode               *string
	features                    []string
	maxMembers                  *int
	joinedAt                    time.Time

	channels            *GuildChannelManager
	roles               *RoleManager
	members             *MemberManager
	presences           *PresenceManager
	voiceStates         *VoiceStateManager
	scheduledEvents     *ScheduledEventManager
	autoModerationRules *AutoModerationRuleManager
	invites             *InviteManager
	stickers            *StickerManager
	emojis              *EmojiManager
}

func newGuild(c Client, data Payload) *Guild {
	id, _ := data.ID("id")
	g := &Guild{
		Base:               newBase(c, id),
		available:          true,
		systemChannelFlags: bitfield.Frozen(bitfield.SystemChannelFlags, 0),
	}
	g.channels = newGuildChannelManager(c, id)
	g.roles = newRoleManager(c, id)
	g.members = newMemberManager(c, id)
	g.presences = newPresenceManager(c, id)
	g.voiceStates = newVoiceStateManager(c, id, g.members)
	g.scheduledEvents = newScheduledEventManager(c, id)
	g.autoModerationRules = newAutoModerationRuleManager(c, id)
	g.invites = newInviteManager(c, id)
	g.stickers = newStickerManager(c, id)
	g.emojis = newEmojiManager(c, id)
	g.patch(data)
	return g
}

func (g *Guild) patch(data Payload) {
	if v, ok := data.Bool("unavailable"); ok {
		g.available = !v
	}
	if v, ok := data.String("name"); ok {
		g.name = v
	}
	if v, ok := data.StringPtr("icon"); ok {
		g.icon = v
	}
	if v, ok := data.StringPtr("splash"); ok {
		g.splash = v
	}
	if v, ok := data.StringPtr("banner"); ok {
		g.banner = v
	}
	if v, ok := data.StringPtr("description"); ok {
		g.description = v
	}
	if v, ok := data.ID("owner_id"); ok {
		g.ownerID = v
	}
	if v, ok := data.Bool("large"); ok {
		g.large = v
	}
	if v, ok := data.Int("member_count"); ok {
		g.memberCount = v
	} else if v, ok := data.Int("approximate_member_count"); ok {
		g.memberCount = v
	}
	if v, ok := data.ID("afk_channel_id"); ok {
		g.afkChannelID = v
	}
	if v, ok := data.Int("afk_timeout"); ok {
		g.afkTimeout = v
	}
	if v, ok := data.ID("system_channel_id"); ok {
		g.systemChannelID = v
	}
	if v, ok := data.Get("system_channel_flags"); ok {
		g.systemChannelFlags = bitfield.Frozen(bitfield.SystemChannelFlags, v)
	}
	if v, ok := data.ID("rules_channel_id"); ok {
		g.rulesChannelID = v
	}
	if v, ok := data.ID("public_updates_channel_id"); ok {
		g.publicUpdatesChannelID = v
	}
	if v, ok := data.Int("verification_level"); ok {
		g.verificationLevel = v
	}
	if v, ok := data.Int("explicit_content_filter"); ok {
		g.explicitContentFilter = v
	}
	if v, ok := data.Int("default_message_notifications"); ok {
		g.defaultMessageNotifications = v
	}
	if v, ok := data.Int("mfa_level"); ok {
		g.mfaLevel = v
	}
	if v, ok := data.Int("nsfw_level"); ok {
		g.nsfwLevel = v
	}
	if v, ok := data.Int("premium_tier"); ok {
		g.premiumTier = v
	}
	if v, ok := data.Int("premium_subscription_count"); ok {
		g.premiumSubscriptionCount = v
	}
	if v, ok := data.String("preferred_locale"); ok {
		g.preferredLocale = v
	}
	if v, ok := data.StringPtr("vanity_url_code"); ok {
		g.vanityURLCode = v
	}
	if v, ok := data.Strings("features"); ok {
		g.features = v
	}
	if v, ok := data.IntPtr("max_members"); ok {
		g.maxMembers = v
	}
	if v, ok := data.Time("joined_at"); ok {
		g.joinedAt = v
	}

	// 以下集合字段都是完整快照
	if items, ok := data.Objects("roles"); ok {
		g.skipped(CacheRoles, g.roles.Sync(items))
	}
	if items, ok := data.Objects("channels"); ok {
		g.skipped(CacheChannels, g.channels.sync(items))
	}
	if items, ok := data.Objects("threads"); ok {
		for _, item := range items {
			if _, err := g.channels.Add(item, true); err != nil {
				g.skipped(CacheThreads, []error{err})
			}
		}
	}
	g.channels.prune()
	// 大 guild 的成员列表不完整，只合并不删除
	if items, ok := data.Objects("members"); ok {
		_, errs := g.members.AddAll(items, true)
		g.skipped(CacheMembers, errs)
	}
	if items, ok := data.Objects("presences"); ok {
		_, errs := g.presences.AddAll(items, true)
		g.skipped(CachePresences, errs)
	}
	if items, ok := data.Objects("voice_states"); ok {
		g.skipped(CacheVoiceStates, g.voiceStates.Sync(items))
	}
	if items, ok := data.Objects("guild_scheduled_events"); ok {
		g.skipped(CacheScheduledEvents, g.scheduledEvents.Sync(items))
	}
	if items, ok := data.Objects("stickers"); ok {
		g.skipped(CacheStickers, g.stickers.Sync(items))
	}
	if items, ok := data.Objects("emojis"); ok {
		g.skipped(CacheEmojis, g.emojis.Sync(items))
	}
}

// skipped 记录快照中被跳过的畸形记录，其余记录照常处理。
func (g *Guild) skipped(kind string, errs []error) {
	for _, err := range errs {
		logx.ReportDropWithLoggerContext(context.Background(), g.client.Logger(),
			logx.NewDropLog(kind, "malformed_snapshot_entry", err))
	}
}

func (g *Guild) clone() *Guild {
	cp := *g
	return &cp
}

func (g *Guild) Name() string                                    { return g.name }
func (g *Guild) Icon() *string                                   { return g.icon }
func (g *Guild) Splash() *string                                 { return g.splash }
func (g *Guild) Banner() *string                                 { return g.banner }
func (g *Guild) Description() *string                            { return g.description }
func (g *Guild) OwnerID() snowflake.ID                           { return g.ownerID }
func (g *Guild) Available() bool                                 { return g.available }
func (g *Guild) Large() bool                                     { return g.large }
func (g *Guild) MemberCount() int                                { return g.memberCount }
func (g *Guild) AFKTimeout() int                                 { return g.afkTimeout }
func (g *Guild) SystemChannelFlags() *bitfield.BitField          { return g.systemChannelFlags }
func (g *Guild) VerificationLevel() int                          { return g.verificationLevel }
func (g *Guild) ExplicitContentFilter() int                      { return g.explicitContentFilter }
func (g *Guild) MFALevel() int                                   { return g.mfaLevel }
func (g *Guild) NSFWLevel() int                                  { return g.nsfwLevel }
func (g *Guild) PremiumTier() int                                { return g.premiumTier }
func (g *Guild) PremiumSubscriptionCount() int                   { return g.premiumSubscriptionCount }
func (g *Guild) PreferredLocale() string                         { return g.preferredLocale }
func (g *Guild) VanityURLCode() *string                          { return g.vanityURLCode }
func (g *Guild) JoinedAt() time.Time                             { return g.joinedAt }
func (g *Guild) Channels() *GuildChannelManager                  { return g.channels }
func (g *Guild) Roles() *RoleManager                             { return g.roles }
func (g *Guild) Members() *MemberManager                         { return g.members }
func (g *Guild) Presences() *PresenceManager                     { return g.presences }
func (g *Guild) VoiceStates() *VoiceStateManager                 { return g.voiceStates }
func (g *Guild) ScheduledEvents() *ScheduledEventManager         { return g.scheduledEvents }
func (g *Guild) AutoModerationRules() *AutoModerationRuleManager { return g.autoModerationRules }
func (g *Guild) Invites() *InviteManager                         { return g.invites }
func (g *Guild) Stickers() *StickerManager                       { return g.stickers }
func (g *Guild) Emojis() *EmojiManager                           { return g.emojis }

func (g *Guild) Features() []string {
	out := make([]string, len(g.features))
	copy(out, g.features)
	return out
}

// Everyone 返回 @everyone 角色（id 与 guild 相同）。
func (g *Guild) Everyone() *Role {
	return g.roles.Get(g.id)
}

// Owner 返回所有者成员，未缓存时返回 nil。
func (g *Guild) Owner() *Member {
	return g.members.Get(g.ownerID)
}

// Me 返回当前用户在该 guild 的成员信息。
func (g *Guild) Me() *Member {
	return g.members.Get(g.client.UserID())
}

func (g *Guild) channel(id snowflake.ID) Channel {
	if !id.Valid() {
		return nil
	}
	return g.client.Channels().Get(id)
}

func (g *Guild) AFKChannel() Channel           { return g.channel(g.afkChannelID) }
func (g *Guild) SystemChannel() Channel        { return g.channel(g.systemChannelID) }
func (g *Guild) RulesChannel() Channel         { return g.channel(g.rulesChannelID) }
func (g *Guild) PublicUpdatesChannel() Channel { return g.channel(g.publicUpdatesChannelID) }

type GuildEditOptions struct {
	Name                        *string
	Description                 *string
	VerificationLevel           *int
	DefaultMessageNotifications *int
	ExplicitContentFilter       *int
	AFKChannel                  *snowflake.ID
	AFKTimeout                  *int
	SystemChannel               *snowflake.ID
	SystemChannelFlags          any
	PreferredLocale             *string
}

func (o GuildEditOptions) wire() map[string]any {
	body := map[string]any{}
	setPtr(body, "name", o.Name)
	setPtr(body, "description", o.Description)
	setPtr(body, "verification_level", o.VerificationLevel)
	setPtr(body, "default_message_notifications", o.DefaultMessageNotifications)
	setPtr(body, "explicit_content_filter", o.ExplicitContentFilter)
	setPtr(body, "afk_timeout", o.AFKTimeout)
	setPtr(body, "preferred_locale", o.PreferredLocale)
	if o.AFKChannel != nil {
		body["afk_channel_id"] = nullableID(*o.AFKChannel)
	}
	if o.SystemChannel != nil {
		body["system_channel_id"] = nullableID(*o.SystemChannel)
	}
	if o.SystemChannelFlags != nil {
		if bits, err := bitfield.SystemChannelFlags.Resolve(o.SystemChannelFlags); err == nil {
			body["system_channel_flags"] = uint64(bits)
		}
	}
	return body
}

// Edit 修改 guild，结果经 GUILD_UPDATE 对账。
func (g *Guild) Edit(ctx context.Context, opts GuildEditOptions) (*Guild, error) {
	if err := g.alive("guild"); err != nil {
		return nil, err
	}
	raw, err := request(ctx, g.client, rest.MethodPatch, rest.Guild(g.id.String()), opts.wire())
	if err != nil {
		return nil, err
	}
	data, ok := AsPayload(raw)
	if !ok {
		return nil, malformed("guild", "id")
	}
	g.client.Apply(events.GuildUpdate, data)
	return g.client.Guilds().applied(data)
}

func (g *Guild) SetName(ctx context.Context, name string) (*Guild, error) {
	return g.Edit(ctx, GuildEditOptions{Name: &name})
}

// Leave 退出 guild，结果经 GUILD_DELETE 对账。
func (g *Guild) Leave(ctx context.Context) error {
	if err := g.alive("guild"); err != nil {
		return err
	}
	var owner snowflake.ID
	g.client.Read(func() { owner = g.ownerID })
	if owner == g.client.UserID() {
		return ErrOwnerCannotLeave.WithData("guild_id", g.id.String())
	}
	if _, err := request(ctx, g.client, rest.MethodDelete, rest.UserGuild(g.id.String()), nil); err != nil {
		return err
	}
	g.client.Apply(events.GuildDelete, Payload{"id": g.id.String()})
	return nil
}

func nullableID(id snowflake.ID) any {
	if !id.Valid() {
		return nil
	}
	return id.String()
}

type GuildManager struct {
	cachingManager[snowflake.ID, *Guild]
}

func NewGuildManager(c Client) *GuildManager {
	m := &GuildManager{}
	m.cachingManager = newIDManager(c, CacheGuilds, func(p Payload) *Guild { return newGuild(c, p) }, nil)
	m.parse = func(v any) (snowflake.ID, bool) {
		switch t := v.(type) {
		case GuildScoped:
			return t.GuildID(), t.GuildID().Valid()
		case *Role:
			return t.guildID, true
		case *Member:
			return t.guildID, true
		default:
			return parseID(v)
		}
	}
	// guild 删除时，它的频道一并从全局缓存移除；被淘汰时只移出，不打 tombstone
	m.unlinked = func(g *Guild) {
		for _, ch := range g.channels.cache.Values() {
			if g.deleted {
				c.Channels().Remove(ch.ID())
			} else {
				c.Channels().Evict(ch.ID())
			}
		}
	}
	return m
}

// Fetch 拉取 guild（含角色、表情、贴纸，不含频道和成员）。
func (m *GuildManager) Fetch(ctx context.Context, id snowflake.ID, opts FetchOptions) (*Guild, error) {
	if g, ok := m.fetchCached(id, opts); ok {
		return g, nil
	}
	raw, err := m.client.REST().Request(ctx, rest.Guild(id.String()), rest.MethodGet, nil, url.Values{"with_counts": {"true"}})
	if err != nil {
		return nil, err
	}
	return m.store(raw, opts)
}

// Leave 退出 guild。
func (m *GuildManager) Leave(ctx context.Context, guild any) error {
	id, err := m.resolveLive(guild)
	if err != nil {
		return err
	}
	if g := m.Get(id); g != nil {
		return g.Leave(ctx)
	}
	if _, err := request(ctx, m.client, rest.MethodDelete, rest.UserGuild(id.String()), nil); err != nil {
		return err
	}
	m.client.Apply(events.GuildDelete, Payload{"id": id.String()})
	return nil
}
