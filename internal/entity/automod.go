package entity

import (
	"context"
	"slices"

	"Concord/internal/events"
	"Concord/internal/rest"
	"Concord/internal/shared/snowflake"
)

const (
	AutoModTriggerKeyword       = 1
	AutoModTriggerSpam          = 3
	AutoModTriggerKeywordPreset = 4
	AutoModTriggerMentionSpam   = 5
	AutoModTriggerMemberProfile = 6
)

const (
	AutoModActionBlockMessage     = 1
	AutoModActionSendAlertMessage = 2
	AutoModActionTimeout          = 3
	AutoModActionBlockInteraction = 4
)

type AutoModTriggerMetadata struct {
	KeywordFilter                []string `json:"keyword_filter,omitempty"`
	RegexPatterns                []string `json:"regex_patterns,omitempty"`
	Presets                      []int    `json:"presets,omitempty"`
	AllowList                    []string `json:"allow_list,omitempty"`
	MentionTotalLimit            *int     `json:"mention_total_limit,omitempty"`
	MentionRaidProtectionEnabled bool     `json:"mention_raid_protection_enabled,omitempty"`
}

type AutoModActionMetadata struct {
	ChannelID       *snowflake.ID `json:"channel_id,omitempty"`
	DurationSeconds *int          `json:"duration_seconds,omitempty"`
	CustomMessage   *string       `json:"custom_message,omitempty"`
}

type AutoModAction struct {
	Type     int                   `json:"type"`
	Metadata AutoModActionMetadata `json:"metadata"`
}

type AutoModerationRule struct {
	Base
	guildID         snowflake.ID
	name            string
	creatorID       snowflake.ID
	eventType       int
	triggerType     int
	triggerMetadata AutoModTriggerMetadata
	actions         []AutoModAction
	enabled         bool
	exemptRoles     []snowflake.ID
	exemptChannels  []snowflake.ID
}

func newAutoModerationRule(c Client, guildID snowflake.ID, data Payload) *AutoModerationRule {
	id, _ := data.ID("id")
	r := &AutoModerationRule{Base: newBase(c, id), guildID: guildID}
	r.patch(data)
	return r
}

func (r *AutoModerationRule) patch(data Payload) {
	if v, ok := data.String("name"); ok {
		r.name = v
	}
	if v, ok := data.ID("creator_id"); ok {
		r.creatorID = v
	}
	if v, ok := data.Int("event_type"); ok {
		r.eventType = v
	}
	if v, ok := data.Int("trigger_type"); ok {
		r.triggerType = v
	}
	if _, ok := data.Get("trigger_metadata"); ok {
		var md AutoModTriggerMetadata
		if _, err := data.Decode("trigger_metadata", &md); err == nil {
			r.triggerMetadata = md
		}
	}
	if _, ok := data.Get("actions"); ok {
		var acts []AutoModAction
		if _, err := data.Decode("actions", &acts); err == nil {
			r.actions = acts
		}
	}
	if v, ok := data.Bool("enabled"); ok {
		r.enabled = v
	}
	if v, ok := data.IDs("exempt_roles"); ok {
		r.exemptRoles = v
	}
	if v, ok := data.IDs("exempt_channels"); ok {
		r.exemptChannels = v
	}
}

func (r *AutoModerationRule) clone() *AutoModerationRule {
	cp := *r
	return &cp
}

func (r *AutoModerationRule) GuildID() snowflake.ID                   { return r.guildID }
func (r *AutoModerationRule) Name() string                            { return r.name }
func (r *AutoModerationRule) CreatorID() snowflake.ID                 { return r.creatorID }
func (r *AutoModerationRule) EventType() int                          { return r.eventType }
func (r *AutoModerationRule) TriggerType() int                        { return r.triggerType }
func (r *AutoModerationRule) TriggerMetadata() AutoModTriggerMetadata { return r.triggerMetadata }
func (r *AutoModerationRule) Enabled() bool                           { return r.enabled }
func (r *AutoModerationRule) ExemptRoleIDs() []snowflake.ID           { return slices.Clone(r.exemptRoles) }
func (r *AutoModerationRule) ExemptChannelIDs() []snowflake.ID        { return slices.Clone(r.exemptChannels) }
func (r *AutoModerationRule) Actions() []AutoModAction                { return slices.Clone(r.actions) }

func (r *AutoModerationRule) Guild() *Guild {
	return r.client.Guilds().Get(r.guildID)
}

func (r *AutoModerationRule) manager() (*AutoModerationRuleManager, error) {
	if err := r.alive("auto_moderation_rule"); err != nil {
		return nil, err
	}
	g := r.Guild()
	if g == nil {
		return nil, stale("guild", r.guildID.String())
	}
	return g.autoModerationRules, nil
}

func (r *AutoModerationRule) Edit(ctx context.Context, opts AutoModerationRuleOptions) (*AutoModerationRule, error) {
	m, err := r.manager()
	if err != nil {
		return nil, err
	}
	return m.Edit(ctx, r, opts)
}

func (r *AutoModerationRule) SetEnabled(ctx context.Context, enabled bool) (*AutoModerationRule, error) {
	return r.Edit(ctx, AutoModerationRuleOptions{Enabled: &enabled})
}

func (r *AutoModerationRule) Delete(ctx context.Context) error {
	m, err := r.manager()
	if err != nil {
		return err
	}
	return m.Delete(ctx, r)
}

type AutoModerationRuleOptions struct {
	Name            *string
	EventType       *int
	TriggerType     *int
	TriggerMetadata *AutoModTriggerMetadata
	Actions         []AutoModAction
	Enabled         *bool
	ExemptRoles     []snowflake.ID
	ExemptChannels  []snowflake.ID
}

func (o AutoModerationRuleOptions) wire() map[string]any {
	body := map[string]any{}
	setPtr(body, "name", o.Name)
	setPtr(body, "event_type", o.EventType)
	setPtr(body, "trigger_type", o.TriggerType)
	setPtr(body, "enabled", o.Enabled)
	if o.TriggerMetadata != nil {
		body["trigger_metadata"] = o.TriggerMetadata
	}
	if o.Actions != nil {
		body["actions"] = o.Actions
	}
	if o.ExemptRoles != nil {
		body["exempt_roles"] = idStrings(o.ExemptRoles)
	}
	if o.ExemptChannels != nil {
		body["exempt_channels"] = idStrings(o.ExemptChannels)
	}
	return body
}

type AutoModerationRuleManager struct {
	cachingManager[snowflake.ID, *AutoModerationRule]
	guildID snowflake.ID
}

func newAutoModerationRuleManager(c Client, guildID snowflake.ID) *AutoModerationRuleManager {
	m := &AutoModerationRuleManager{guildID: guildID}
	m.cachingManager = newIDManager(c, CacheAutoModerationRules, func(p Payload) *AutoModerationRule { return newAutoModerationRule(c, guildID, p) }, nil)
	return m
}

func (m *AutoModerationRuleManager) Fetch(ctx context.Context, id snowflake.ID, opts FetchOptions) (*AutoModerationRule, error) {
	if r, ok := m.fetchCached(id, opts); ok {
		return r, nil
	}
	raw, err := request(ctx, m.client, rest.MethodGet, rest.GuildAutoModerationRule(m.guildID.String(), id.String()), nil)
	if err != nil {
		return nil, err
	}
	return m.store(raw, opts)
}

func (m *AutoModerationRuleManager) FetchAll(ctx context.Context, opts FetchOptions) ([]*AutoModerationRule, error) {
	raw, err := request(ctx, m.client, rest.MethodGet, rest.GuildAutoModerationRules(m.guildID.String()), nil)
	if err != nil {
		return nil, err
	}
	return m.storeAll(raw, opts)
}

func (m *AutoModerationRuleManager) reconcile(t events.Type, raw any) (*AutoModerationRule, error) {
	data, ok := AsPayload(raw)
	if !ok {
		return nil, malformed("auto_moderation_rule", "id")
	}
	data = data.WithDefault("guild_id", m.guildID.String())
	m.client.Apply(t, data)
	return m.applied(data)
}

func (m *AutoModerationRuleManager) Create(ctx context.Context, opts AutoModerationRuleOptions) (*AutoModerationRule, error) {
	raw, err := request(ctx, m.client, rest.MethodPost, rest.GuildAutoModerationRules(m.guildID.String()), opts.wire())
	if err != nil {
		return nil, err
	}
	return m.reconcile(events.AutoModerationRuleCreate, raw)
}

func (m *AutoModerationRuleManager) Edit(ctx context.Context, rule any, opts AutoModerationRuleOptions) (*AutoModerationRule, error) {
	id, err := m.resolveLive(rule)
	if err != nil {
		return nil, err
	}
	raw, err := request(ctx, m.client, rest.MethodPatch, rest.GuildAutoModerationRule(m.guildID.String(), id.String()), opts.wire())
	if err != nil {
		return nil, err
	}
	return m.reconcile(events.AutoModerationRuleUpdate, raw)
}

func (m *AutoModerationRuleManager) Delete(ctx context.Context, rule any) error {
	id, err := m.resolveLive(rule)
	if err != nil {
		return err
	}
	if _, err := request(ctx, m.client, rest.MethodDelete, rest.GuildAutoModerationRule(m.guildID.String(), id.String()), nil); err != nil {
		return err
	}
	m.client.Apply(events.AutoModerationRuleDelete, Payload{"id": id.String(), "guild_id": m.guildID.String()})
	return nil
}
