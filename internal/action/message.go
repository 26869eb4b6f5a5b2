package action

import (
	"Concord/internal/entity"
	"Concord/internal/events"
)

func textChannelOf(c entity.Client, data entity.Payload) entity.TextBased {
	id, ok := data.ID("channel_id")
	if !ok || !id.Valid() {
		return nil
	}
	tb, _ := c.Channels().Get(id).(entity.TextBased)
	return tb
}

// handleMessageCreate 重复下发（REST 回写后网关再推送）不再发事件。
func handleMessageCreate(c entity.Client, data entity.Payload) []entity.Result {
	ch := textChannelOf(c, data)
	if ch == nil {
		return drop(c, events.MessageCreate, reasonChannelUncached, nil)
	}
	id, _ := data.ID("id")
	existed := ch.Messages().Cache().Has(id)
	msg, err := ch.Messages().Add(data, true)
	if err != nil {
		return drop(c, events.MessageCreate, reasonMalformed, err)
	}
	if existed {
		return nil
	}
	c.Channels().Add(entity.Payload{"id": ch.ID().String(), "last_message_id": msg.ID().String()}, true)
	return []entity.Result{entity.Single(events.MessageCreated, msg)}
}

func handleMessageUpdate(c entity.Client, data entity.Payload) []entity.Result {
	ch := textChannelOf(c, data)
	if ch == nil {
		return drop(c, events.MessageUpdate, reasonChannelUncached, nil)
	}
	old, cur, ok, err := ch.Messages().Update(data)
	if err != nil {
		return drop(c, events.MessageUpdate, reasonMalformed, err)
	}
	if !ok {
		return drop(c, events.MessageUpdate, reasonEntityUncached, nil)
	}
	return []entity.Result{entity.Change(events.MessageUpdated, old, cur)}
}

func handleMessageDelete(c entity.Client, data entity.Payload) []entity.Result {
	ch := textChannelOf(c, data)
	if ch == nil {
		return drop(c, events.MessageDelete, reasonChannelUncached, nil)
	}
	id, ok := data.ID("id")
	if !ok || !id.Valid() {
		return drop(c, events.MessageDelete, reasonMalformed, entity.ErrMalformedPayload)
	}
	msg, ok := ch.Messages().Remove(id)
	if !ok {
		return drop(c, events.MessageDelete, reasonEntityUncached, nil)
	}
	return []entity.Result{entity.Single(events.MessageDeleted, msg)}
}

// handleMessageDeleteBulk 产生 messageDeleteBulk(messages, channel)，只包含已缓存的消息。
func handleMessageDeleteBulk(c entity.Client, data entity.Payload) []entity.Result {
	ch := textChannelOf(c, data)
	if ch == nil {
		return drop(c, events.MessageDeleteBulk, reasonChannelUncached, nil)
	}
	ids, _ := data.IDs("ids")
	removed := make([]*entity.Message, 0, len(ids))
	for _, id := range ids {
		if msg, ok := ch.Messages().Remove(id); ok {
			removed = append(removed, msg)
		}
	}
	if len(removed) == 0 {
		return drop(c, events.MessageDeleteBulk, reasonEntityUncached, nil)
	}
	return []entity.Result{entity.Single(events.MessageBulkDeleted, removed, ch)}
}
