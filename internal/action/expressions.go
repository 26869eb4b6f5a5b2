package action

import (
	"Concord/internal/entity"
	"Concord/internal/events"
	"Concord/internal/shared/snowflake"
)

// expressionManager 是表情与贴纸 manager 的共同形状。
type expressionManager[V interface {
	comparable
	ID() snowflake.ID
}] interface {
	Add(data entity.Payload, cache bool) (V, error)
	Upsert(data entity.Payload) (old, cur V, existed bool, err error)
	Update(data entity.Payload) (old, cur V, ok bool, err error)
	Remove(key snowflake.ID) (V, bool)
	Cache() *entity.Collection[snowflake.ID, V]
}

type expressionNames struct {
	created, updated, deleted events.Name
}

var (
	emojiNames   = expressionNames{events.EmojiCreated, events.EmojiUpdated, events.EmojiDeleted}
	stickerNames = expressionNames{events.StickerCreated, events.StickerUpdated, events.StickerDeleted}
)

// syncExpressions 把完整列表拆成逐条的 create/update/delete 事件；内容未变的条目不发事件。
func syncExpressions[V interface {
	comparable
	ID() snowflake.ID
}](c entity.Client, t events.Type, m expressionManager[V], items []entity.Payload, names expressionNames, equal func(a, b V) bool) []entity.Result {
	incoming := make(map[snowflake.ID]struct{}, len(items))
	for _, item := range items {
		if id, ok := item.ID("id"); ok {
			incoming[id] = struct{}{}
		}
	}
	var out []entity.Result
	for _, id := range m.Cache().Keys() {
		if _, keep := incoming[id]; keep {
			continue
		}
		if v, ok := m.Remove(id); ok {
			out = append(out, entity.Single(names.deleted, v))
		}
	}
	for _, item := range items {
		old, cur, existed, err := m.Upsert(item)
		if err != nil {
			drop(c, t, reasonMalformed, err)
			continue
		}
		switch {
		case !existed:
			out = append(out, entity.Single(names.created, cur))
		case !equal(old, cur):
			out = append(out, entity.Change(names.updated, old, cur))
		}
	}
	return out
}

func expressionCreated[V interface {
	comparable
	ID() snowflake.ID
}](c entity.Client, t events.Type, m expressionManager[V], data entity.Payload, name events.Name) []entity.Result {
	id, _ := data.ID("id")
	existed := m.Cache().Has(id)
	v, err := m.Add(data, true)
	if err != nil {
		return drop(c, t, reasonMalformed, err)
	}
	if existed {
		return nil
	}
	return []entity.Result{entity.Single(name, v)}
}

func expressionUpdated[V interface {
	comparable
	ID() snowflake.ID
}](c entity.Client, t events.Type, m expressionManager[V], data entity.Payload, name events.Name) []entity.Result {
	old, cur, ok, err := m.Update(data)
	if err != nil {
		return drop(c, t, reasonMalformed, err)
	}
	if !ok {
		return drop(c, t, reasonEntityUncached, nil)
	}
	return []entity.Result{entity.Change(name, old, cur)}
}

func expressionDeleted[V interface {
	comparable
	ID() snowflake.ID
}](c entity.Client, t events.Type, m expressionManager[V], data entity.Payload, name events.Name) []entity.Result {
	id, ok := data.ID("id")
	if !ok || !id.Valid() {
		return drop(c, t, reasonMalformed, entity.ErrMalformedPayload)
	}
	v, ok := m.Remove(id)
	if !ok {
		return drop(c, t, reasonEntityUncached, nil)
	}
	return []entity.Result{entity.Single(name, v)}
}

func handleEmojisUpdate(c entity.Client, data entity.Payload) []entity.Result {
	g := guildOf(c, data)
	if g == nil {
		return drop(c, events.GuildEmojisUpdate, reasonGuildUncached, nil)
	}
	items, _ := data.Objects("emojis")
	return syncExpressions(c, events.GuildEmojisUpdate, g.Emojis(), items, emojiNames, (*entity.Emoji).Equals)
}

func handleEmojiCreate(c entity.Client, data entity.Payload) []entity.Result {
	g := guildOf(c, data)
	if g == nil {
		return drop(c, events.GuildEmojiCreate, reasonGuildUncached, nil)
	}
	return expressionCreated(c, events.GuildEmojiCreate, g.Emojis(), data, events.EmojiCreated)
}

func handleEmojiUpdate(c entity.Client, data entity.Payload) []entity.Result {
	g := guildOf(c, data)
	if g == nil {
		return drop(c, events.GuildEmojiUpdate, reasonGuildUncached, nil)
	}
	return expressionUpdated(c, events.GuildEmojiUpdate, g.Emojis(), data, events.EmojiUpdated)
}

func handleEmojiDelete(c entity.Client, data entity.Payload) []entity.Result {
	g := guildOf(c, data)
	if g == nil {
		return drop(c, events.GuildEmojiDelete, reasonGuildUncached, nil)
	}
	return expressionDeleted(c, events.GuildEmojiDelete, g.Emojis(), data, events.EmojiDeleted)
}

func handleStickersUpdate(c entity.Client, data entity.Payload) []entity.Result {
	g := guildOf(c, data)
	if g == nil {
		return drop(c, events.GuildStickersUpdate, reasonGuildUncached, nil)
	}
	items, _ := data.Objects("stickers")
	return syncExpressions(c, events.GuildStickersUpdate, g.Stickers(), items, stickerNames, (*entity.Sticker).Equals)
}

func handleStickerCreate(c entity.Client, data entity.Payload) []entity.Result {
	g := guildOf(c, data)
	if g == nil {
		return drop(c, events.GuildStickerCreate, reasonGuildUncached, nil)
	}
	return expressionCreated(c, events.GuildStickerCreate, g.Stickers(), data, events.StickerCreated)
}

func handleStickerUpdate(c entity.Client, data entity.Payload) []entity.Result {
	g := guildOf(c, data)
	if g == nil {
		return drop(c, events.GuildStickerUpdate, reasonGuildUncached, nil)
	}
	return expressionUpdated(c, events.GuildStickerUpdate, g.Stickers(), data, events.StickerUpdated)
}

func handleStickerDelete(c entity.Client, data entity.Payload) []entity.Result {
	g := guildOf(c, data)
	if g == nil {
		return drop(c, events.GuildStickerDelete, reasonGuildUncached, nil)
	}
	return expressionDeleted(c, events.GuildStickerDelete, g.Stickers(), data, events.StickerDeleted)
}
