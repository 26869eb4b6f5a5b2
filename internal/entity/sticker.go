package entity

import (
	"context"

	"Concord/internal/events"
	"Concord/internal/rest"
	"Concord/internal/shared/snowflake"
)

const (
	StickerTypeStandard = 1
	StickerTypeGuild    = 2
)

type Sticker struct {
	Base
	guildID     snowflake.ID
	packID      snowflake.ID
	userID      snowflake.ID
	name        string
	description *string
	tags        string
	typ         int
	formatType  int
	available   bool
	sortValue   *int
}

func newSticker(c Client, guildID snowflake.ID, data Payload) *Sticker {
	id, _ := data.ID("id")
	s := &Sticker{Base: newBase(c, id), guildID: guildID, available: true}
	if v, ok := data.ID("guild_id"); ok && v.Valid() {
		s.guildID = v
	}
	s.patch(data)
	return s
}

func (s *Sticker) patch(data Payload) {
	if v, ok := data.ID("pack_id"); ok {
		s.packID = v
	}
	if u, ok := data.Object("user"); ok && u != nil {
		s.userID, _ = u.ID("id")
	}
	if v, ok := data.String("name"); ok {
		s.name = v
	}
	if v, ok := data.StringPtr("description"); ok {
		s.description = v
	}
	if v, ok := data.String("tags"); ok {
		s.tags = v
	}
	if v, ok := data.Int("type"); ok {
		s.typ = v
	}
	if v, ok := data.Int("format_type"); ok {
		s.formatType = v
	}
	if v, ok := data.Bool("available"); ok {
		s.available = v
	}
	if v, ok := data.IntPtr("sort_value"); ok {
		s.sortValue = v
	}
}

func (s *Sticker) clone() *Sticker {
	cp := *s
	return &cp
}

func (s *Sticker) GuildID() snowflake.ID { return s.guildID }
func (s *Sticker) PackID() snowflake.ID  { return s.packID }
func (s *Sticker) Name() string          { return s.name }
func (s *Sticker) Description() *string  { return s.description }
func (s *Sticker) Tags() string          { return s.tags }
func (s *Sticker) Type() int             { return s.typ }
func (s *Sticker) FormatType() int       { return s.formatType }
func (s *Sticker) Available() bool       { return s.available }
func (s *Sticker) User() *User           { return s.client.Users().Get(s.userID) }

func (s *Sticker) Guild() *Guild {
	if !s.guildID.Valid() {
		return nil
	}
	return s.client.Guilds().Get(s.guildID)
}

func (s *Sticker) Equals(other *Sticker) bool {
	if s == nil || other == nil {
		return s == other
	}
	return s.id == other.id &&
		s.name == other.name &&
		ptrEqual(s.description, other.description) &&
		s.tags == other.tags &&
		s.available == other.available
}

func (s *Sticker) manager() (*StickerManager, error) {
	if err := s.alive("sticker"); err != nil {
		return nil, err
	}
	g := s.Guild()
	if g == nil {
		return nil, stale("guild", s.guildID.String())
	}
	return g.stickers, nil
}

func (s *Sticker) Edit(ctx context.Context, opts StickerEditOptions) (*Sticker, error) {
	m, err := s.manager()
	if err != nil {
		return nil, err
	}
	return m.Edit(ctx, s, opts)
}

func (s *Sticker) Delete(ctx context.Context) error {
	m, err := s.manager()
	if err != nil {
		return err
	}
	return m.Delete(ctx, s)
}

type StickerEditOptions struct {
	Name        *string
	Description *string
	Tags        *string
}

func (o StickerEditOptions) wire() map[string]any {
	body := map[string]any{}
	setPtr(body, "name", o.Name)
	setPtr(body, "description", o.Description)
	setPtr(body, "tags", o.Tags)
	return body
}

type StickerManager struct {
	cachingManager[snowflake.ID, *Sticker]
	guildID snowflake.ID
}

func newStickerManager(c Client, guildID snowflake.ID) *StickerManager {
	m := &StickerManager{guildID: guildID}
	m.cachingManager = newIDManager(c, CacheStickers, func(p Payload) *Sticker { return newSticker(c, guildID, p) }, nil)
	m.prepare = func(p Payload) {
		if u, ok := p.Object("user"); ok && u != nil {
			c.Users().Add(u, true)
		}
	}
	return m
}

func (m *StickerManager) Fetch(ctx context.Context, id snowflake.ID, opts FetchOptions) (*Sticker, error) {
	if s, ok := m.fetchCached(id, opts); ok {
		return s, nil
	}
	raw, err := request(ctx, m.client, rest.MethodGet, rest.GuildSticker(m.guildID.String(), id.String()), nil)
	if err != nil {
		return nil, err
	}
	return m.store(raw, opts)
}

func (m *StickerManager) FetchAll(ctx context.Context, opts FetchOptions) ([]*Sticker, error) {
	raw, err := request(ctx, m.client, rest.MethodGet, rest.GuildStickers(m.guildID.String()), nil)
	if err != nil {
		return nil, err
	}
	return m.storeAll(raw, opts)
}

// FetchStandard 拉取官方贴纸，不属于任何 guild，不写缓存。
func (m *StickerManager) FetchStandard(ctx context.Context, id snowflake.ID) (*Sticker, error) {
	raw, err := request(ctx, m.client, rest.MethodGet, rest.Sticker(id.String()), nil)
	if err != nil {
		return nil, err
	}
	data, ok := AsPayload(raw)
	if !ok {
		return nil, malformed("sticker", "id")
	}
	return newSticker(m.client, 0, data), nil
}

// Edit 修改贴纸，结果经内部事件 GUILD_STICKER_UPDATE 对账。
func (m *StickerManager) Edit(ctx context.Context, sticker any, opts StickerEditOptions) (*Sticker, error) {
	id, err := m.resolveLive(sticker)
	if err != nil {
		return nil, err
	}
	raw, err := request(ctx, m.client, rest.MethodPatch, rest.GuildSticker(m.guildID.String(), id.String()), opts.wire())
	if err != nil {
		return nil, err
	}
	data, ok := AsPayload(raw)
	if !ok {
		return nil, malformed("sticker", "id")
	}
	data = data.WithDefault("guild_id", m.guildID.String())
	m.client.Apply(events.GuildStickerUpdate, data)
	return m.applied(data)
}

func (m *StickerManager) Delete(ctx context.Context, sticker any) error {
	id, err := m.resolveLive(sticker)
	if err != nil {
		return err
	}
	if _, err := request(ctx, m.client, rest.MethodDelete, rest.GuildSticker(m.guildID.String(), id.String()), nil); err != nil {
		return err
	}
	m.client.Apply(events.GuildStickerDelete, Payload{"id": id.String(), "guild_id": m.guildID.String()})
	return nil
}
