// Package action 把网关 dispatch（以及 REST 变更后的同形 payload）对账进实体缓存。
//
// 处理器只修改缓存，不做任何网络调用，也不能回调 Client.Apply / Client.Write；
// 调用方负责在全局写锁内执行处理器并在释放锁之后发出事件。
package action

import (
	"context"
	"slices"

	"Concord/internal/entity"
	"Concord/internal/events"
	"Concord/modules/kit/logx"
)

// Handler 对账一次事件，返回按顺序发出的结果；丢弃时返回 nil。
type Handler func(c entity.Client, data entity.Payload) []entity.Result

type Dispatcher struct {
	handlers map[events.Type]Handler
}

func NewDispatcher() *Dispatcher {
	d := &Dispatcher{
		handlers: make(map[events.Type]Handler),
	}
	d.registerAll()
	return d
}

func (d *Dispatcher) registerAll() {
	d.register(events.Ready, handleReady)
	d.register(events.Resumed, handleResumed)
	d.register(events.UserUpdate, handleUserUpdate)

	d.register(events.GuildCreate, handleGuildCreate)
	d.register(events.GuildUpdate, handleGuildUpdate)
	d.register(events.GuildDelete, handleGuildDelete)

	d.register(events.GuildRoleCreate, handleRoleCreate)
	d.register(events.GuildRoleUpdate, handleRoleUpdate)
	d.register(events.GuildRoleDelete, handleRoleDelete)
	d.register(events.GuildRolesPositionUpdate, handleRolesPositionUpdate)

	d.register(events.ChannelCreate, handleChannelCreate)
	d.register(events.ChannelUpdate, handleChannelUpdate)
	d.register(events.ChannelDelete, handleChannelDelete)
	d.register(events.ChannelPinsUpdate, handleChannelPinsUpdate)
	d.register(events.GuildChannelsPositionUpdate, handleChannelsPositionUpdate)

	d.register(events.ThreadCreate, handleThreadCreate)
	d.register(events.ThreadUpdate, handleThreadUpdate)
	d.register(events.ThreadDelete, handleThreadDelete)
	d.register(events.ThreadListSync, handleThreadListSync)
	d.register(events.ThreadMemberUpdate, handleThreadMemberUpdate)
	d.register(events.ThreadMembersUpdate, handleThreadMembersUpdate)

	d.register(events.GuildMemberAdd, handleMemberAdd)
	d.register(events.GuildMemberUpdate, handleMemberUpdate)
	d.register(events.GuildMemberRemove, handleMemberRemove)
	d.register(events.GuildMembersChunk, handleMembersChunk)
	d.register(events.PresenceUpdate, handlePresenceUpdate)

	d.register(events.MessageCreate, handleMessageCreate)
	d.register(events.MessageUpdate, handleMessageUpdate)
	d.register(events.MessageDelete, handleMessageDelete)
	d.register(events.MessageDeleteBulk, handleMessageDeleteBulk)

	d.register(events.VoiceStateUpdate, handleVoiceStateUpdate)

	d.register(events.GuildScheduledEventCreate, handleScheduledEventCreate)
	d.register(events.GuildScheduledEventUpdate, handleScheduledEventUpdate)
	d.register(events.GuildScheduledEventDelete, handleScheduledEventDelete)

	d.register(events.AutoModerationRuleCreate, handleAutoModRuleCreate)
	d.register(events.AutoModerationRuleUpdate, handleAutoModRuleUpdate)
	d.register(events.AutoModerationRuleDelete, handleAutoModRuleDelete)

	d.register(events.InviteCreate, handleInviteCreate)
	d.register(events.InviteDelete, handleInviteDelete)

	d.register(events.GuildEmojisUpdate, handleEmojisUpdate)
	d.register(events.GuildEmojiCreate, handleEmojiCreate)
	d.register(events.GuildEmojiUpdate, handleEmojiUpdate)
	d.register(events.GuildEmojiDelete, handleEmojiDelete)

	d.register(events.GuildStickersUpdate, handleStickersUpdate)
	d.register(events.GuildStickerCreate, handleStickerCreate)
	d.register(events.GuildStickerUpdate, handleStickerUpdate)
	d.register(events.GuildStickerDelete, handleStickerDelete)
}

func (d *Dispatcher) register(t events.Type, h Handler) {
	if _, dup := d.handlers[t]; dup {
		panic("action: duplicate handler for " + t)
	}
	d.handlers[t] = h
}

// Handle 执行 t 对应的处理器；未知类型返回 ok=false，调用方直接忽略。
func (d *Dispatcher) Handle(c entity.Client, t events.Type, data entity.Payload) (results []entity.Result, ok bool) {
	h, ok := d.handlers[t]
	if !ok {
		return nil, false
	}
	if data == nil {
		return drop(c, t, reasonMalformed, entity.ErrMalformedPayload), true
	}
	return h(c, data), true
}

func (d *Dispatcher) Has(t events.Type) bool {
	_, ok := d.handlers[t]
	return ok
}

// Types 返回已注册的事件类型（排序后）。
func (d *Dispatcher) Types() []events.Type {
	out := make([]events.Type, 0, len(d.handlers))
	for t := range d.handlers {
		out = append(out, t)
	}
	slices.Sort(out)
	return out
}

const (
	reasonMalformed       = "malformed_payload"
	reasonGuildUncached   = "guild_not_cached"
	reasonChannelUncached = "channel_not_cached"
	reasonEntityUncached  = "entity_not_cached"
)

// DropRecorder 是 Client 可选实现的丢弃计数接口。
type DropRecorder interface {
	RecordDrop(t events.Type, reason string)
}

// drop 记录被丢弃的事件并返回 nil：未缓存走 Debug，畸形 payload 走 Warn。
func drop(c entity.Client, t events.Type, reason string, err error) []entity.Result {
	logx.ReportDropWithLoggerContext(context.Background(), c.Logger(), logx.NewDropLog(t, reason, err))
	if r, ok := c.(DropRecorder); ok {
		r.RecordDrop(t, reason)
	}
	return nil
}

// guildOf 按 guild_id 定位已缓存的 guild。
func guildOf(c entity.Client, data entity.Payload) *entity.Guild {
	id, ok := data.ID("guild_id")
	if !ok || !id.Valid() {
		return nil
	}
	return c.Guilds().Get(id)
}
