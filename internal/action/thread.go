package action

import (
	"Concord/internal/entity"
	"Concord/internal/events"
	"Concord/internal/shared/snowflake"
)

func handleThreadCreate(c entity.Client, data entity.Payload) []entity.Result {
	newly, _ := data.Bool("newly_created")
	return channelCreated(c, events.ThreadCreate, data, func(ch entity.Channel) entity.Result {
		return entity.Single(events.ThreadCreated, ch, newly)
	})
}

func handleThreadUpdate(c entity.Client, data entity.Payload) []entity.Result {
	return channelUpdated(c, events.ThreadUpdate, events.ThreadUpdated, data)
}

func handleThreadDelete(c entity.Client, data entity.Payload) []entity.Result {
	return channelDeleted(c, events.ThreadDelete, events.ThreadDeleted, data)
}

// handleThreadListSync 是活跃线程的快照：范围内（全部或 channel_ids 指定的父频道）
// 未归档且不在快照中的线程被删除，快照中的线程逐个写入，随后写入当前用户的线程成员信息。
func handleThreadListSync(c entity.Client, data entity.Payload) []entity.Result {
	g := guildOf(c, data)
	if g == nil {
		return drop(c, events.ThreadListSync, reasonGuildUncached, nil)
	}
	threads, _ := data.Objects("threads")
	incoming := make(map[snowflake.ID]struct{}, len(threads))
	for _, t := range threads {
		if id, ok := t.ID("id"); ok {
			incoming[id] = struct{}{}
		}
	}
	var parents map[snowflake.ID]struct{}
	if ids, ok := data.IDs("channel_ids"); ok && ids != nil {
		parents = make(map[snowflake.ID]struct{}, len(ids))
		for _, id := range ids {
			parents[id] = struct{}{}
		}
	}
	for _, ch := range g.Channels().Cache().Values() {
		t, ok := ch.(*entity.ThreadChannel)
		if !ok || t.Archived() {
			continue
		}
		if parents != nil {
			if _, in := parents[t.ParentID()]; !in {
				continue
			}
		}
		if _, keep := incoming[t.ID()]; !keep {
			c.Channels().Remove(t.ID())
		}
	}

	synced := make([]*entity.ThreadChannel, 0, len(threads))
	for _, raw := range threads {
		ch, err := c.Channels().Add(raw.WithDefault("guild_id", g.ID().String()), true)
		if err != nil {
			drop(c, events.ThreadListSync, reasonMalformed, err)
			continue
		}
		if t, ok := ch.(*entity.ThreadChannel); ok {
			synced = append(synced, t)
		}
	}
	members, _ := data.Objects("members")
	for _, raw := range members {
		id, _ := raw.ID("id")
		t, ok := c.Channels().Get(id).(*entity.ThreadChannel)
		if !ok {
			continue
		}
		if _, err := t.Members().Add(raw, true); err != nil {
			drop(c, events.ThreadListSync, reasonMalformed, err)
		}
	}
	return []entity.Result{entity.Single(events.ThreadListSynced, synced, g)}
}

func handleThreadMemberUpdate(c entity.Client, data entity.Payload) []entity.Result {
	id, _ := data.ID("id")
	t, ok := c.Channels().Get(id).(*entity.ThreadChannel)
	if !ok {
		return drop(c, events.ThreadMemberUpdate, reasonChannelUncached, nil)
	}
	old, cur, existed, err := t.Members().Upsert(data)
	if err != nil {
		return drop(c, events.ThreadMemberUpdate, reasonMalformed, err)
	}
	if !existed || old.Flags().Equals(cur.Flags()) {
		return nil
	}
	return []entity.Result{entity.Change(events.ThreadMemberUpdated, old, cur)}
}

// handleThreadMembersUpdate 产生 threadMembersUpdate(added, removed, thread)。
func handleThreadMembersUpdate(c entity.Client, data entity.Payload) []entity.Result {
	id, _ := data.ID("id")
	t, ok := c.Channels().Get(id).(*entity.ThreadChannel)
	if !ok {
		return drop(c, events.ThreadMembersUpdate, reasonChannelUncached, nil)
	}
	if n, ok := data.Get("member_count"); ok {
		c.Channels().Add(entity.Payload{"id": t.ID().String(), "member_count": n}, true)
	}
	raws, _ := data.Objects("added_members")
	added := make([]*entity.ThreadMember, 0, len(raws))
	for _, raw := range raws {
		tm, err := t.Members().Add(raw, true)
		if err != nil {
			drop(c, events.ThreadMembersUpdate, reasonMalformed, err)
			continue
		}
		added = append(added, tm)
	}
	ids, _ := data.IDs("removed_member_ids")
	removed := make([]*entity.ThreadMember, 0, len(ids))
	for _, uid := range ids {
		if tm, ok := t.Members().Remove(uid); ok {
			removed = append(removed, tm)
		}
	}
	return []entity.Result{entity.Single(events.ThreadMembersUpdated, added, removed, t)}
}
