package entity

import (
	"maps"

	"Concord/internal/shared/snowflake"
)

const (
	StatusOnline    = "online"
	StatusIdle      = "idle"
	StatusDND       = "dnd"
	StatusInvisible = "invisible"
	StatusOffline   = "offline"
)

type Activity struct {
	Name          string        `json:"name"`
	Type          int           `json:"type"`
	URL           *string       `json:"url"`
	State         *string       `json:"state"`
	Details       *string       `json:"details"`
	CreatedAt     int64         `json:"created_at"`
	ApplicationID *snowflake.ID `json:"application_id"`
}

type Presence struct {
	client       Client
	guildID      snowflake.ID
	userID       snowflake.ID
	status       string
	clientStatus map[string]string
	activities   []Activity
	deleted      bool
}

func newPresence(c Client, guildID snowflake.ID, data Payload) *Presence {
	p := &Presence{client: c, guildID: guildID, status: StatusOffline}
	p.userID, _ = memberKey(data)
	p.patch(data)
	return p
}

func (p *Presence) patch(data Payload) {
	if v, ok := data.String("status"); ok {
		p.status = v
	}
	if _, ok := data.Get("client_status"); ok {
		status := map[string]string{}
		if _, err := data.Decode("client_status", &status); err == nil {
			p.clientStatus = status
		}
	}
	if _, ok := data.Get("activities"); ok {
		var acts []Activity
		if _, err := data.Decode("activities", &acts); err == nil {
			p.activities = acts
		}
	}
}

func (p *Presence) clone() *Presence {
	cp := *p
	cp.clientStatus = maps.Clone(p.clientStatus)
	return &cp
}

func (p *Presence) markDeleted()          { p.deleted = true }
func (p *Presence) Deleted() bool         { return p.deleted }
func (p *Presence) ID() snowflake.ID      { return p.userID }
func (p *Presence) GuildID() snowflake.ID { return p.guildID }
func (p *Presence) Status() string        { return p.status }
func (p *Presence) User() *User           { return p.client.Users().Get(p.userID) }

func (p *Presence) ClientStatus() map[string]string {
	return maps.Clone(p.clientStatus)
}

func (p *Presence) Activities() []Activity {
	out := make([]Activity, len(p.activities))
	copy(out, p.activities)
	return out
}

func (p *Presence) Member() *Member {
	g := p.client.Guilds().Get(p.guildID)
	if g == nil {
		return nil
	}
	return g.members.Get(p.userID)
}

func (p *Presence) Equals(other *Presence) bool {
	if p == nil || other == nil {
		return p == other
	}
	if p.status != other.status || !maps.Equal(p.clientStatus, other.clientStatus) || len(p.activities) != len(other.activities) {
		return false
	}
	for i := range p.activities {
		a, b := p.activities[i], other.activities[i]
		if a.Name != b.Name || a.Type != b.Type || !ptrEqual(a.State, b.State) || !ptrEqual(a.Details, b.Details) {
			return false
		}
	}
	return true
}

type PresenceManager struct {
	cachingManager[snowflake.ID, *Presence]
	guildID snowflake.ID
}

func newPresenceManager(c Client, guildID snowflake.ID) *PresenceManager {
	m := &PresenceManager{guildID: guildID}
	m.cachingManager = newIDManager(c, CachePresences, func(p Payload) *Presence { return newPresence(c, guildID, p) }, nil)
	m.keyField = "user.id"
	m.key = memberKey
	// 只有带用户名的 user 才是完整对象，其余只用于定位
	m.prepare = func(p Payload) {
		if u, ok := p.Object("user"); ok && u != nil && u.Has("username") {
			c.Users().Add(u, true)
		}
	}
	return m
}
