package action

import (
	"Concord/internal/entity"
	"Concord/internal/events"
	"Concord/internal/shared/snowflake"
)

// MembersChunk 是 guildMembersChunk 的第三个参数。
type MembersChunk struct {
	Index    int
	Count    int
	Nonce    string
	NotFound []snowflake.ID
}

func adjustMemberCount(c entity.Client, g *entity.Guild, delta int) {
	n := max(g.MemberCount()+delta, 0)
	c.Guilds().Add(entity.Payload{"id": g.ID().String(), "member_count": n}, true)
}

func handleMemberAdd(c entity.Client, data entity.Payload) []entity.Result {
	g := guildOf(c, data)
	if g == nil {
		return drop(c, events.GuildMemberAdd, reasonGuildUncached, nil)
	}
	m, err := g.Members().Add(data, true)
	if err != nil {
		return drop(c, events.GuildMemberAdd, reasonMalformed, err)
	}
	adjustMemberCount(c, g, 1)
	return []entity.Result{entity.Single(events.GuildMemberAdded, m)}
}

// handleMemberUpdate 附带的用户对象变化时先发 userUpdate，再发 guildMemberUpdate。
func handleMemberUpdate(c entity.Client, data entity.Payload) []entity.Result {
	g := guildOf(c, data)
	if g == nil {
		return drop(c, events.GuildMemberUpdate, reasonGuildUncached, nil)
	}
	var out []entity.Result
	if u, ok := data.Object("user"); ok && u != nil && u.Has("username") {
		if id, ok := u.ID("id"); ok && c.Users().Cache().Has(id) {
			out = append(out, userChanged(c, events.GuildMemberUpdate, u)...)
		}
	}
	old, cur, ok, err := g.Members().Update(data)
	if err != nil {
		return drop(c, events.GuildMemberUpdate, reasonMalformed, err)
	}
	if !ok {
		if len(out) == 0 {
			return drop(c, events.GuildMemberUpdate, reasonEntityUncached, nil)
		}
		return out
	}
	if !old.Equals(cur) {
		out = append(out, entity.Change(events.GuildMemberUpdated, old, cur))
	}
	return out
}

func handleMemberRemove(c entity.Client, data entity.Payload) []entity.Result {
	g := guildOf(c, data)
	if g == nil {
		return drop(c, events.GuildMemberRemove, reasonGuildUncached, nil)
	}
	u, _ := data.Object("user")
	if u == nil {
		return drop(c, events.GuildMemberRemove, reasonMalformed, entity.ErrMalformedPayload)
	}
	id, ok := u.ID("id")
	if !ok || !id.Valid() {
		return drop(c, events.GuildMemberRemove, reasonMalformed, entity.ErrMalformedPayload)
	}
	adjustMemberCount(c, g, -1)
	g.Presences().Remove(id)
	m, ok := g.Members().Remove(id)
	if !ok {
		return drop(c, events.GuildMemberRemove, reasonEntityUncached, nil)
	}
	return []entity.Result{entity.Single(events.GuildMemberRemoved, m)}
}

func handleMembersChunk(c entity.Client, data entity.Payload) []entity.Result {
	g := guildOf(c, data)
	if g == nil {
		return drop(c, events.GuildMembersChunk, reasonGuildUncached, nil)
	}
	raws, _ := data.Objects("members")
	members, errs := g.Members().AddAll(raws, true)
	for _, err := range errs {
		drop(c, events.GuildMembersChunk, reasonMalformed, err)
	}
	if presences, ok := data.Objects("presences"); ok {
		_, errs := g.Presences().AddAll(presences, true)
		for _, err := range errs {
			drop(c, events.GuildMembersChunk, reasonMalformed, err)
		}
	}
	chunk := MembersChunk{}
	chunk.Index, _ = data.Int("chunk_index")
	chunk.Count, _ = data.Int("chunk_count")
	chunk.Nonce, _ = data.String("nonce")
	chunk.NotFound, _ = data.IDs("not_found")
	return []entity.Result{entity.Single(events.GuildMembersChunked, members, g, chunk)}
}

// handlePresenceUpdate 附带完整用户对象时可能先发 userUpdate；首次出现的 presence 的 old 为 nil。
func handlePresenceUpdate(c entity.Client, data entity.Payload) []entity.Result {
	var out []entity.Result
	if u, ok := data.Object("user"); ok && u != nil && u.Has("username") {
		if id, ok := u.ID("id"); ok && c.Users().Cache().Has(id) {
			out = append(out, userChanged(c, events.PresenceUpdate, u)...)
		}
	}
	g := guildOf(c, data)
	if g == nil {
		if len(out) == 0 {
			return drop(c, events.PresenceUpdate, reasonGuildUncached, nil)
		}
		return out
	}
	old, cur, existed, err := g.Presences().Upsert(data)
	if err != nil {
		return drop(c, events.PresenceUpdate, reasonMalformed, err)
	}
	if !existed {
		return append(out, entity.Change(events.PresenceUpdated, nil, cur))
	}
	if old.Equals(cur) {
		return out
	}
	return append(out, entity.Change(events.PresenceUpdated, old, cur))
}
