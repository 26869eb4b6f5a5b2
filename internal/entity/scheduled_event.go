package entity

import (
	"context"
	"net/url"
	"time"

	"Concord/internal/events"
	"Concord/internal/rest"
	"Concord/internal/shared/snowflake"
)

const (
	ScheduledEventScheduled = 1
	ScheduledEventActive    = 2
	ScheduledEventCompleted = 3
	ScheduledEventCanceled  = 4
)

const (
	ScheduledEventStageInstance = 1
	ScheduledEventVoice         = 2
	ScheduledEventExternal      = 3
)

type ScheduledEventMetadata struct {
	Location *string `json:"location"`
}

type ScheduledEvent struct {
	Base
	guildID            snowflake.ID
	channelID          snowflake.ID
	creatorID          snowflake.ID
	name               string
	description        *string
	scheduledStartTime time.Time
	scheduledEndTime   time.Time
	privacyLevel       int
	status             int
	entityType         int
	entityID           snowflake.ID
	entityMetadata     *ScheduledEventMetadata
	userCount          *int
	image              *string
}

func newScheduledEvent(c Client, guildID snowflake.ID, data Payload) *ScheduledEvent {
	id, _ := data.ID("id")
	ev := &ScheduledEvent{Base: newBase(c, id), guildID: guildID}
	ev.patch(data)
	return ev
}

func (ev *ScheduledEvent) patch(data Payload) {
	if v, ok := data.ID("channel_id"); ok {
		ev.channelID = v
	}
	if v, ok := data.ID("creator_id"); ok {
		ev.creatorID = v
	}
	if v, ok := data.String("name"); ok {
		ev.name = v
	}
	if v, ok := data.StringPtr("description"); ok {
		ev.description = v
	}
	if v, ok := data.Time("scheduled_start_time"); ok {
		ev.scheduledStartTime = v
	}
	if v, ok := data.Time("scheduled_end_time"); ok {
		ev.scheduledEndTime = v
	}
	if v, ok := data.Int("privacy_level"); ok {
		ev.privacyLevel = v
	}
	if v, ok := data.Int("status"); ok {
		ev.status = v
	}
	if v, ok := data.Int("entity_type"); ok {
		ev.entityType = v
	}
	if v, ok := data.ID("entity_id"); ok {
		ev.entityID = v
	}
	if meta, ok := data.Object("entity_metadata"); ok {
		ev.entityMetadata = nil
		if meta != nil {
			md := &ScheduledEventMetadata{}
			if _, err := data.Decode("entity_metadata", md); err == nil {
				ev.entityMetadata = md
			}
		}
	}
	if v, ok := data.IntPtr("user_count"); ok {
		ev.userCount = v
	}
	if v, ok := data.StringPtr("image"); ok {
		ev.image = v
	}
}

func (ev *ScheduledEvent) clone() *ScheduledEvent {
	cp := *ev
	return &cp
}

func (ev *ScheduledEvent) GuildID() snowflake.ID                   { return ev.guildID }
func (ev *ScheduledEvent) ChannelID() snowflake.ID                 { return ev.channelID }
func (ev *ScheduledEvent) CreatorID() snowflake.ID                 { return ev.creatorID }
func (ev *ScheduledEvent) Name() string                            { return ev.name }
func (ev *ScheduledEvent) Description() *string                    { return ev.description }
func (ev *ScheduledEvent) ScheduledStartTime() time.Time           { return ev.scheduledStartTime }
func (ev *ScheduledEvent) ScheduledEndTime() time.Time             { return ev.scheduledEndTime }
func (ev *ScheduledEvent) PrivacyLevel() int                       { return ev.privacyLevel }
func (ev *ScheduledEvent) Status() int                             { return ev.status }
func (ev *ScheduledEvent) EntityType() int                         { return ev.entityType }
func (ev *ScheduledEvent) EntityMetadata() *ScheduledEventMetadata { return ev.entityMetadata }
func (ev *ScheduledEvent) UserCount() *int                         { return ev.userCount }
func (ev *ScheduledEvent) Image() *string                          { return ev.image }

func (ev *ScheduledEvent) Creator() *User {
	return ev.client.Users().Get(ev.creatorID)
}

func (ev *ScheduledEvent) Channel() Channel {
	if !ev.channelID.Valid() {
		return nil
	}
	return ev.client.Channels().Get(ev.channelID)
}

func (ev *ScheduledEvent) Guild() *Guild {
	return ev.client.Guilds().Get(ev.guildID)
}

func (ev *ScheduledEvent) IsActive() bool { return ev.status == ScheduledEventActive }

func (ev *ScheduledEvent) manager() (*ScheduledEventManager, error) {
	if err := ev.alive("scheduled_event"); err != nil {
		return nil, err
	}
	g := ev.Guild()
	if g == nil {
		return nil, stale("guild", ev.guildID.String())
	}
	return g.scheduledEvents, nil
}

func (ev *ScheduledEvent) Edit(ctx context.Context, opts ScheduledEventOptions) (*ScheduledEvent, error) {
	m, err := ev.manager()
	if err != nil {
		return nil, err
	}
	return m.Edit(ctx, ev, opts)
}

func (ev *ScheduledEvent) SetStatus(ctx context.Context, status int) (*ScheduledEvent, error) {
	return ev.Edit(ctx, ScheduledEventOptions{Status: &status})
}

func (ev *ScheduledEvent) Delete(ctx context.Context) error {
	m, err := ev.manager()
	if err != nil {
		return err
	}
	return m.Delete(ctx, ev)
}

type ScheduledEventOptions struct {
	Name               *string
	Description        *string
	Channel            *snowflake.ID
	ScheduledStartTime *time.Time
	ScheduledEndTime   *time.Time
	PrivacyLevel       *int
	EntityType         *int
	Status             *int
	Location           *string
}

func (o ScheduledEventOptions) wire() map[string]any {
	body := map[string]any{}
	setPtr(body, "name", o.Name)
	setPtr(body, "description", o.Description)
	setPtr(body, "privacy_level", o.PrivacyLevel)
	setPtr(body, "entity_type", o.EntityType)
	setPtr(body, "status", o.Status)
	if o.Channel != nil {
		body["channel_id"] = nullableID(*o.Channel)
	}
	if o.ScheduledStartTime != nil {
		body["scheduled_start_time"] = o.ScheduledStartTime.UTC().Format(time.RFC3339)
	}
	if o.ScheduledEndTime != nil {
		body["scheduled_end_time"] = o.ScheduledEndTime.UTC().Format(time.RFC3339)
	}
	if o.Location != nil {
		body["entity_metadata"] = map[string]any{"location": *o.Location}
	}
	return body
}

type ScheduledEventManager struct {
	cachingManager[snowflake.ID, *ScheduledEvent]
	guildID snowflake.ID
}

func newScheduledEventManager(c Client, guildID snowflake.ID) *ScheduledEventManager {
	m := &ScheduledEventManager{guildID: guildID}
	m.cachingManager = newIDManager(c, CacheScheduledEvents, func(p Payload) *ScheduledEvent { return newScheduledEvent(c, guildID, p) }, nil)
	m.prepare = func(p Payload) {
		if u, ok := p.Object("creator"); ok && u != nil {
			c.Users().Add(u, true)
		}
	}
	return m
}

func (m *ScheduledEventManager) Fetch(ctx context.Context, id snowflake.ID, opts FetchOptions) (*ScheduledEvent, error) {
	if ev, ok := m.fetchCached(id, opts); ok {
		return ev, nil
	}
	raw, err := m.client.REST().Request(ctx, rest.GuildScheduledEvent(m.guildID.String(), id.String()), rest.MethodGet, nil, url.Values{"with_user_count": {"true"}})
	if err != nil {
		return nil, err
	}
	return m.store(raw, opts)
}

func (m *ScheduledEventManager) FetchAll(ctx context.Context, opts FetchOptions) ([]*ScheduledEvent, error) {
	raw, err := m.client.REST().Request(ctx, rest.GuildScheduledEvents(m.guildID.String()), rest.MethodGet, nil, url.Values{"with_user_count": {"true"}})
	if err != nil {
		return nil, err
	}
	return m.storeAll(raw, opts)
}

func (m *ScheduledEventManager) reconcile(t events.Type, raw any) (*ScheduledEvent, error) {
	data, ok := AsPayload(raw)
	if !ok {
		return nil, malformed("scheduled_event", "id")
	}
	data = data.WithDefault("guild_id", m.guildID.String())
	m.client.Apply(t, data)
	return m.applied(data)
}

func (m *ScheduledEventManager) Create(ctx context.Context, opts ScheduledEventOptions) (*ScheduledEvent, error) {
	raw, err := request(ctx, m.client, rest.MethodPost, rest.GuildScheduledEvents(m.guildID.String()), opts.wire())
	if err != nil {
		return nil, err
	}
	return m.reconcile(events.GuildScheduledEventCreate, raw)
}

func (m *ScheduledEventManager) Edit(ctx context.Context, event any, opts ScheduledEventOptions) (*ScheduledEvent, error) {
	id, err := m.resolveLive(event)
	if err != nil {
		return nil, err
	}
	raw, err := request(ctx, m.client, rest.MethodPatch, rest.GuildScheduledEvent(m.guildID.String(), id.String()), opts.wire())
	if err != nil {
		return nil, err
	}
	return m.reconcile(events.GuildScheduledEventUpdate, raw)
}

func (m *ScheduledEventManager) Delete(ctx context.Context, event any) error {
	id, err := m.resolveLive(event)
	if err != nil {
		return err
	}
	if _, err := request(ctx, m.client, rest.MethodDelete, rest.GuildScheduledEvent(m.guildID.String(), id.String()), nil); err != nil {
		return err
	}
	m.client.Apply(events.GuildScheduledEventDelete, Payload{"id": id.String(), "guild_id": m.guildID.String()})
	return nil
}
