package action

import (
	"Concord/internal/entity"
	"Concord/internal/events"
)

// handleReady 写入当前用户，并把 READY 中的 guild 以不可用状态占位，等待各自的 GUILD_CREATE。
func handleReady(c entity.Client, data entity.Payload) []entity.Result {
	raw, ok := data.Object("user")
	if !ok || raw == nil {
		return drop(c, events.Ready, reasonMalformed, entity.ErrMalformedPayload)
	}
	user, err := c.Users().Add(raw, true)
	if err != nil {
		return drop(c, events.Ready, reasonMalformed, err)
	}
	guilds, _ := data.Objects("guilds")
	for _, g := range guilds {
		id, ok := g.ID("id")
		if !ok || c.Guilds().Cache().Has(id) {
			continue
		}
		if _, err := c.Guilds().Add(entity.Payload{"id": id.String(), "unavailable": true}, true); err != nil {
			drop(c, events.Ready, reasonMalformed, err)
		}
	}
	return []entity.Result{entity.Single(events.ClientReady, user)}
}

func handleResumed(c entity.Client, data entity.Payload) []entity.Result {
	return []entity.Result{entity.Single(events.ShardResume, c.Users().Me())}
}

func handleUserUpdate(c entity.Client, data entity.Payload) []entity.Result {
	return userChanged(c, events.UserUpdate, data)
}

// userChanged 仅在线上可见字段变化时产生 userUpdate。
func userChanged(c entity.Client, t events.Type, data entity.Payload) []entity.Result {
	old, cur, ok, err := c.Users().Update(data)
	if err != nil {
		return drop(c, t, reasonMalformed, err)
	}
	if !ok {
		return drop(c, t, reasonEntityUncached, nil)
	}
	if old.Equals(cur) {
		return nil
	}
	return []entity.Result{entity.Change(events.UserUpdated, old, cur)}
}
