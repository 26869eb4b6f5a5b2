package action

import (
	"Concord/internal/entity"
	"Concord/internal/events"
)

// handleGuildCreate 处理完整快照：新 guild 发 guildCreate，不可用后恢复的发 guildAvailable。
func handleGuildCreate(c entity.Client, data entity.Payload) []entity.Result {
	id, ok := data.ID("id")
	if !ok || !id.Valid() {
		return drop(c, events.GuildCreate, reasonMalformed, entity.ErrMalformedPayload)
	}
	if existing := c.Guilds().Get(id); existing != nil {
		wasAvailable := existing.Available()
		g, err := c.Guilds().Add(data, true)
		if err != nil {
			return drop(c, events.GuildCreate, reasonMalformed, err)
		}
		if !wasAvailable && g.Available() {
			return []entity.Result{entity.Single(events.GuildAvailable, g)}
		}
		return nil
	}
	g, err := c.Guilds().Add(data, true)
	if err != nil {
		return drop(c, events.GuildCreate, reasonMalformed, err)
	}
	if !g.Available() {
		return nil
	}
	return []entity.Result{entity.Single(events.GuildCreated, g)}
}

func handleGuildUpdate(c entity.Client, data entity.Payload) []entity.Result {
	old, cur, ok, err := c.Guilds().Update(data)
	if err != nil {
		return drop(c, events.GuildUpdate, reasonMalformed, err)
	}
	if !ok {
		return drop(c, events.GuildUpdate, reasonGuildUncached, nil)
	}
	return []entity.Result{entity.Change(events.GuildUpdated, old, cur)}
}

// handleGuildDelete 区分服务端故障（unavailable=true，保留实体）与真正离开 guild。
func handleGuildDelete(c entity.Client, data entity.Payload) []entity.Result {
	id, ok := data.ID("id")
	if !ok || !id.Valid() {
		return drop(c, events.GuildDelete, reasonMalformed, entity.ErrMalformedPayload)
	}
	g := c.Guilds().Get(id)
	if g == nil {
		return drop(c, events.GuildDelete, reasonGuildUncached, nil)
	}
	if unavailable, _ := data.Bool("unavailable"); unavailable {
		if !g.Available() {
			return nil
		}
		if _, err := c.Guilds().Add(entity.Payload{"id": id.String(), "unavailable": true}, true); err != nil {
			return drop(c, events.GuildDelete, reasonMalformed, err)
		}
		return []entity.Result{entity.Single(events.GuildUnavailable, g)}
	}
	removed, _ := c.Guilds().Remove(id)
	return []entity.Result{entity.Single(events.GuildDeleted, removed)}
}

func handleRoleCreate(c entity.Client, data entity.Payload) []entity.Result {
	g := guildOf(c, data)
	if g == nil {
		return drop(c, events.GuildRoleCreate, reasonGuildUncached, nil)
	}
	raw, _ := data.Object("role")
	if raw == nil {
		return drop(c, events.GuildRoleCreate, reasonMalformed, entity.ErrMalformedPayload)
	}
	id, _ := raw.ID("id")
	existed := g.Roles().Cache().Has(id)
	role, err := g.Roles().Add(raw, true)
	if err != nil {
		return drop(c, events.GuildRoleCreate, reasonMalformed, err)
	}
	if existed {
		return nil
	}
	return []entity.Result{entity.Single(events.RoleCreated, role)}
}

func handleRoleUpdate(c entity.Client, data entity.Payload) []entity.Result {
	g := guildOf(c, data)
	if g == nil {
		return drop(c, events.GuildRoleUpdate, reasonGuildUncached, nil)
	}
	raw, _ := data.Object("role")
	if raw == nil {
		return drop(c, events.GuildRoleUpdate, reasonMalformed, entity.ErrMalformedPayload)
	}
	old, cur, ok, err := g.Roles().Update(raw)
	if err != nil {
		return drop(c, events.GuildRoleUpdate, reasonMalformed, err)
	}
	if !ok {
		return drop(c, events.GuildRoleUpdate, reasonEntityUncached, nil)
	}
	return []entity.Result{entity.Change(events.RoleUpdated, old, cur)}
}

func handleRoleDelete(c entity.Client, data entity.Payload) []entity.Result {
	g := guildOf(c, data)
	if g == nil {
		return drop(c, events.GuildRoleDelete, reasonGuildUncached, nil)
	}
	id, ok := data.ID("role_id")
	if !ok || !id.Valid() {
		return drop(c, events.GuildRoleDelete, reasonMalformed, entity.ErrMalformedPayload)
	}
	role, ok := g.Roles().Remove(id)
	if !ok {
		return drop(c, events.GuildRoleDelete, reasonEntityUncached, nil)
	}
	return []entity.Result{entity.Single(events.RoleDeleted, role)}
}

// handleRolesPositionUpdate 只改原始序号，不发事件。
func handleRolesPositionUpdate(c entity.Client, data entity.Payload) []entity.Result {
	g := guildOf(c, data)
	if g == nil {
		return drop(c, events.GuildRolesPositionUpdate, reasonGuildUncached, nil)
	}
	items, _ := data.Objects("roles")
	for _, item := range items {
		patch := entity.Payload{"id": item["id"], "position": item["position"]}
		if _, _, _, err := g.Roles().Update(patch); err != nil {
			drop(c, events.GuildRolesPositionUpdate, reasonMalformed, err)
		}
	}
	return nil
}
