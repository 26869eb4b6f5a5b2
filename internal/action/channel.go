package action

import (
	"Concord/internal/entity"
	"Concord/internal/events"
)

// channelGuildReady 判断 guild 频道所属的 guild 是否已缓存；私聊频道总是通过。
func channelGuildReady(c entity.Client, data entity.Payload) bool {
	id, ok := data.ID("guild_id")
	if !ok || !id.Valid() {
		return true
	}
	return c.Guilds().Get(id) != nil
}

func handleChannelCreate(c entity.Client, data entity.Payload) []entity.Result {
	return channelCreated(c, events.ChannelCreate, data, func(ch entity.Channel) entity.Result {
		return entity.Single(events.ChannelCreated, ch)
	})
}

func channelCreated(c entity.Client, t events.Type, data entity.Payload, result func(entity.Channel) entity.Result) []entity.Result {
	if !channelGuildReady(c, data) {
		return drop(c, t, reasonGuildUncached, nil)
	}
	id, _ := data.ID("id")
	existed := c.Channels().Cache().Has(id)
	ch, err := c.Channels().Add(data, true)
	if err != nil {
		return drop(c, t, reasonMalformed, err)
	}
	if existed {
		return nil
	}
	return []entity.Result{result(ch)}
}

func handleChannelUpdate(c entity.Client, data entity.Payload) []entity.Result {
	return channelUpdated(c, events.ChannelUpdate, events.ChannelUpdated, data)
}

// channelUpdated 类型变化时 updated 是工厂重建的新实例，old 是原实例。
func channelUpdated(c entity.Client, t events.Type, name events.Name, data entity.Payload) []entity.Result {
	old, cur, ok, err := c.Channels().Update(data)
	if err != nil {
		return drop(c, t, reasonMalformed, err)
	}
	if !ok {
		return drop(c, t, reasonChannelUncached, nil)
	}
	return []entity.Result{entity.Change(name, old, cur)}
}

func handleChannelDelete(c entity.Client, data entity.Payload) []entity.Result {
	return channelDeleted(c, events.ChannelDelete, events.ChannelDeleted, data)
}

func channelDeleted(c entity.Client, t events.Type, name events.Name, data entity.Payload) []entity.Result {
	id, ok := data.ID("id")
	if !ok || !id.Valid() {
		return drop(c, t, reasonMalformed, entity.ErrMalformedPayload)
	}
	ch, ok := c.Channels().Remove(id)
	if !ok {
		return drop(c, t, reasonChannelUncached, nil)
	}
	return []entity.Result{entity.Single(name, ch)}
}

func handleChannelPinsUpdate(c entity.Client, data entity.Payload) []entity.Result {
	id, ok := data.ID("channel_id")
	if !ok || !id.Valid() {
		return drop(c, events.ChannelPinsUpdate, reasonMalformed, entity.ErrMalformedPayload)
	}
	if _, ok := c.Channels().Get(id).(entity.TextBased); !ok {
		return drop(c, events.ChannelPinsUpdate, reasonChannelUncached, nil)
	}
	ts, _ := data.Get("last_pin_timestamp")
	ch, err := c.Channels().Add(entity.Payload{"id": id.String(), "last_pin_timestamp": ts}, true)
	if err != nil {
		return drop(c, events.ChannelPinsUpdate, reasonMalformed, err)
	}
	tb := ch.(entity.TextBased)
	return []entity.Result{entity.Single(events.ChannelPinsUpdated, ch, tb.LastPinTimestamp())}
}

// handleChannelsPositionUpdate 只改原始序号和父分类，不发事件。
func handleChannelsPositionUpdate(c entity.Client, data entity.Payload) []entity.Result {
	if guildOf(c, data) == nil {
		return drop(c, events.GuildChannelsPositionUpdate, reasonGuildUncached, nil)
	}
	items, _ := data.Objects("channels")
	for _, item := range items {
		patch := entity.Payload{"id": item["id"], "position": item["position"]}
		if parent, ok := item.Get("parent_id"); ok {
			patch["parent_id"] = parent
		}
		if _, _, _, err := c.Channels().Update(patch); err != nil {
			drop(c, events.GuildChannelsPositionUpdate, reasonMalformed, err)
		}
	}
	return nil
}
