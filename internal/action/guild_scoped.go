package action

import (
	"Concord/internal/entity"
	"Concord/internal/events"
)

// handleVoiceStateUpdate 首次加入语音时 old 是“未连接”的空状态。
func handleVoiceStateUpdate(c entity.Client, data entity.Payload) []entity.Result {
	g := guildOf(c, data)
	if g == nil {
		return drop(c, events.VoiceStateUpdate, reasonGuildUncached, nil)
	}
	old, cur, existed, err := g.VoiceStates().Upsert(data)
	if err != nil {
		return drop(c, events.VoiceStateUpdate, reasonMalformed, err)
	}
	if !existed {
		old = entity.NewEmptyVoiceState(c, g.ID(), cur.ID())
	}
	return []entity.Result{entity.Change(events.VoiceStateUpdated, old, cur)}
}

func handleScheduledEventCreate(c entity.Client, data entity.Payload) []entity.Result {
	g := guildOf(c, data)
	if g == nil {
		return drop(c, events.GuildScheduledEventCreate, reasonGuildUncached, nil)
	}
	ev, err := g.ScheduledEvents().Add(data, true)
	if err != nil {
		return drop(c, events.GuildScheduledEventCreate, reasonMalformed, err)
	}
	return []entity.Result{entity.Single(events.ScheduledEventCreated, ev)}
}

// handleScheduledEventUpdate 未缓存时按新建处理，old 为 nil。
func handleScheduledEventUpdate(c entity.Client, data entity.Payload) []entity.Result {
	g := guildOf(c, data)
	if g == nil {
		return drop(c, events.GuildScheduledEventUpdate, reasonGuildUncached, nil)
	}
	old, cur, existed, err := g.ScheduledEvents().Upsert(data)
	if err != nil {
		return drop(c, events.GuildScheduledEventUpdate, reasonMalformed, err)
	}
	if !existed {
		return []entity.Result{entity.Change(events.ScheduledEventUpdated, nil, cur)}
	}
	return []entity.Result{entity.Change(events.ScheduledEventUpdated, old, cur)}
}

func handleScheduledEventDelete(c entity.Client, data entity.Payload) []entity.Result {
	g := guildOf(c, data)
	if g == nil {
		return drop(c, events.GuildScheduledEventDelete, reasonGuildUncached, nil)
	}
	id, ok := data.ID("id")
	if !ok || !id.Valid() {
		return drop(c, events.GuildScheduledEventDelete, reasonMalformed, entity.ErrMalformedPayload)
	}
	ev, ok := g.ScheduledEvents().Remove(id)
	if !ok {
		return drop(c, events.GuildScheduledEventDelete, reasonEntityUncached, nil)
	}
	return []entity.Result{entity.Single(events.ScheduledEventDeleted, ev)}
}

func handleAutoModRuleCreate(c entity.Client, data entity.Payload) []entity.Result {
	g := guildOf(c, data)
	if g == nil {
		return drop(c, events.AutoModerationRuleCreate, reasonGuildUncached, nil)
	}
	rule, err := g.AutoModerationRules().Add(data, true)
	if err != nil {
		return drop(c, events.AutoModerationRuleCreate, reasonMalformed, err)
	}
	return []entity.Result{entity.Single(events.AutoModerationRuleCreated, rule)}
}

func handleAutoModRuleUpdate(c entity.Client, data entity.Payload) []entity.Result {
	g := guildOf(c, data)
	if g == nil {
		return drop(c, events.AutoModerationRuleUpdate, reasonGuildUncached, nil)
	}
	old, cur, existed, err := g.AutoModerationRules().Upsert(data)
	if err != nil {
		return drop(c, events.AutoModerationRuleUpdate, reasonMalformed, err)
	}
	if !existed {
		return []entity.Result{entity.Change(events.AutoModerationRuleUpdated, nil, cur)}
	}
	return []entity.Result{entity.Change(events.AutoModerationRuleUpdated, old, cur)}
}

func handleAutoModRuleDelete(c entity.Client, data entity.Payload) []entity.Result {
	g := guildOf(c, data)
	if g == nil {
		return drop(c, events.AutoModerationRuleDelete, reasonGuildUncached, nil)
	}
	id, ok := data.ID("id")
	if !ok || !id.Valid() {
		return drop(c, events.AutoModerationRuleDelete, reasonMalformed, entity.ErrMalformedPayload)
	}
	rule, ok := g.AutoModerationRules().Remove(id)
	if !ok {
		return drop(c, events.AutoModerationRuleDelete, reasonEntityUncached, nil)
	}
	return []entity.Result{entity.Single(events.AutoModerationRuleDeleted, rule)}
}

func handleInviteCreate(c entity.Client, data entity.Payload) []entity.Result {
	g := guildOf(c, data)
	if g == nil {
		return drop(c, events.InviteCreate, reasonGuildUncached, nil)
	}
	inv, err := g.Invites().Add(data, true)
	if err != nil {
		return drop(c, events.InviteCreate, reasonMalformed, err)
	}
	return []entity.Result{entity.Single(events.InviteCreated, inv)}
}

func handleInviteDelete(c entity.Client, data entity.Payload) []entity.Result {
	g := guildOf(c, data)
	if g == nil {
		return drop(c, events.InviteDelete, reasonGuildUncached, nil)
	}
	code, ok := data.String("code")
	if !ok || code == "" {
		return drop(c, events.InviteDelete, reasonMalformed, entity.ErrMalformedPayload)
	}
	inv, ok := g.Invites().Remove(code)
	if !ok {
		return drop(c, events.InviteDelete, reasonEntityUncached, nil)
	}
	return []entity.Result{entity.Single(events.InviteDeleted, inv)}
}
