package inspect

import (
	"Concord/internal/entity"
	"Concord/internal/shared/snowflake"
)

type guildSummary struct {
	ID          snowflake.ID `json:"id"`
	Name        string       `json:"name"`
	Available   bool         `json:"available"`
	MemberCount int          `json:"member_count"`
}

type guildView struct {
	guildSummary
	OwnerID  snowflake.ID   `json:"owner_id"`
	Large    bool           `json:"large"`
	Features []string       `json:"features"`
	Cached   map[string]int `json:"cached"`
}

type channelView struct {
	ID          snowflake.ID       `json:"id"`
	Type        entity.ChannelType `json:"type"`
	Name        string             `json:"name,omitempty"`
	GuildID     snowflake.ID       `json:"guild_id,omitempty"`
	ParentID    snowflake.ID       `json:"parent_id,omitempty"`
	Position    *int               `json:"position,omitempty"`
	RawPosition *int               `json:"raw_position,omitempty"`
	Messages    *int               `json:"cached_messages,omitempty"`
}

type roleView struct {
	ID          snowflake.ID `json:"id"`
	Name        string       `json:"name"`
	Position    int          `json:"position"`
	RawPosition int          `json:"raw_position"`
	Permissions []string     `json:"permissions"`
	Managed     bool         `json:"managed"`
}

type memberView struct {
	ID          snowflake.ID   `json:"id"`
	DisplayName string         `json:"display_name"`
	Roles       []snowflake.ID `json:"roles"`
	Permissions []string       `json:"permissions"`
}

func summarizeGuild(g *entity.Guild) guildSummary {
	return guildSummary{
		ID:          g.ID(),
		Name:        g.Name(),
		Available:   g.Available(),
		MemberCount: g.MemberCount(),
	}
}

func describeGuild(g *entity.Guild) guildView {
	return guildView{
		guildSummary: summarizeGuild(g),
		OwnerID:      g.OwnerID(),
		Large:        g.Large(),
		Features:     g.Features(),
		Cached: map[string]int{
			"channels":         g.Channels().Cache().Len(),
			"roles":            g.Roles().Cache().Len(),
			"members":          g.Members().Cache().Len(),
			"presences":        g.Presences().Cache().Len(),
			"voice_states":     g.VoiceStates().Cache().Len(),
			"scheduled_events": g.ScheduledEvents().Cache().Len(),
			"emojis":           g.Emojis().Cache().Len(),
			"stickers":         g.Stickers().Cache().Len(),
		},
	}
}

func describeChannel(ch entity.Channel) channelView {
	v := channelView{ID: ch.ID(), Type: ch.Type()}
	if gs, ok := ch.(entity.GuildScoped); ok {
		v.Name = gs.Name()
		v.GuildID = gs.GuildID()
	}
	if gc, ok := ch.(entity.GuildChannel); ok {
		pos, raw := gc.Position(), gc.RawPosition()
		v.ParentID = gc.ParentID()
		v.Position, v.RawPosition = &pos, &raw
	}
	if tb, ok := ch.(entity.TextBased); ok {
		n := tb.Messages().Cache().Len()
		v.Messages = &n
	}
	return v
}

func describeRole(r *entity.Role) roleView {
	return roleView{
		ID:          r.ID(),
		Name:        r.Name(),
		Position:    r.Position(),
		RawPosition: r.RawPosition(),
		Permissions: r.Permissions().Names(),
		Managed:     r.Managed(),
	}
}

func describeMember(m *entity.Member) memberView {
	return memberView{
		ID:          m.ID(),
		DisplayName: m.DisplayName(),
		Roles:       m.RoleIDs(),
		Permissions: m.Permissions().Names(),
	}
}
