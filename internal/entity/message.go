package entity

import (
	"context"
	"net/url"
	"slices"
	"time"

	"Concord/internal/bitfield"
	"Concord/internal/events"
	"Concord/internal/rest"
	"Concord/internal/shared/snowflake"
)

type Attachment struct {
	ID          snowflake.ID `json:"id"`
	Filename    string       `json:"filename"`
	Size        int          `json:"size"`
	URL         string       `json:"url"`
	ProxyURL    string       `json:"proxy_url"`
	ContentType *string      `json:"content_type"`
	Width       *int         `json:"width"`
	Height      *int         `json:"height"`
}

type EmbedField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline,omitempty"`
}

type Embed struct {
	Title       string       `json:"title,omitempty"`
	Type        string       `json:"type,omitempty"`
	Description string       `json:"description,omitempty"`
	URL         string       `json:"url,omitempty"`
	Color       int          `json:"color,omitempty"`
	Fields      []EmbedField `json:"fields,omitempty"`
}

type MessageReference struct {
	MessageID *snowflake.ID `json:"message_id"`
	ChannelID *snowflake.ID `json:"channel_id"`
	GuildID   *snowflake.ID `json:"guild_id"`
}

type Message struct {
	Base
	channelID       snowflake.ID
	guildID         snowflake.ID
	authorID        snowflake.ID
	webhookID       snowflake.ID
	typ             int
	content         string
	timestamp       time.Time
	editedTimestamp time.Time
	tts             bool
	mentionEveryone bool
	mentionIDs      []snowflake.ID
	mentionRoleIDs  []snowflake.ID
	pinned          bool
	flags           *bitfield.BitField
	attachments     []Attachment
	embeds          []Embed
	reference       *MessageReference
	stickerIDs      []snowflake.ID
}

func newMessage(c Client, channelID, guildID snowflake.ID, data Payload) *Message {
	id, _ := data.ID("id")
	msg := &Message{
		Base:      newBase(c, id),
		channelID: channelID,
		guildID:   guildID,
		flags:     bitfield.Frozen(bitfield.MessageFlags, 0),
	}
	if v, ok := data.ID("guild_id"); ok && v.Valid() {
		msg.guildID = v
	}
	if author, ok := data.Object("author"); ok && author != nil {
		msg.authorID, _ = author.ID("id")
	}
	msg.patch(data)
	return msg
}

func (msg *Message) patch(data Payload) {
	if v, ok := data.Int("type"); ok {
		msg.typ = v
	}
	if v, ok := data.ID("webhook_id"); ok {
		msg.webhookID = v
	}
	if v, ok := data.String("content"); ok {
		msg.content = v
	}
	if v, ok := data.Time("timestamp"); ok {
		msg.timestamp = v
	}
	if v, ok := data.Time("edited_timestamp"); ok {
		msg.editedTimestamp = v
	}
	if v, ok := data.Bool("tts"); ok {
		msg.tts = v
	}
	if v, ok := data.Bool("mention_everyone"); ok {
		msg.mentionEveryone = v
	}
	if users, ok := data.Objects("mentions"); ok {
		msg.mentionIDs = msg.mentionIDs[:0:0]
		for _, u := range users {
			if id, ok := idKey(u, "id"); ok {
				msg.mentionIDs = append(msg.mentionIDs, id)
			}
		}
	}
	if v, ok := data.IDs("mention_roles"); ok {
		msg.mentionRoleIDs = v
	}
	if v, ok := data.Bool("pinned"); ok {
		msg.pinned = v
	}
	if v, ok := data.Get("flags"); ok {
		msg.flags = bitfield.Frozen(bitfield.MessageFlags, v)
	}
	if _, ok := data.Get("attachments"); ok {
		var atts []Attachment
		if _, err := data.Decode("attachments", &atts); err == nil {
			msg.attachments = atts
		}
	}
	if _, ok := data.Get("embeds"); ok {
		var embeds []Embed
		if _, err := data.Decode("embeds", &embeds); err == nil {
			msg.embeds = embeds
		}
	}
	if ref, ok := data.Object("message_reference"); ok {
		msg.reference = nil
		if ref != nil {
			r := &MessageReference{}
			if _, err := data.Decode("message_reference", r); err == nil {
				msg.reference = r
			}
		}
	}
	if items, ok := data.Objects("sticker_items"); ok {
		msg.stickerIDs = msg.stickerIDs[:0:0]
		for _, s := range items {
			if id, ok := idKey(s, "id"); ok {
				msg.stickerIDs = append(msg.stickerIDs, id)
			}
		}
	}
}

func (msg *Message) clone() *Message {
	cp := *msg
	return &cp
}

func (msg *Message) ChannelID() snowflake.ID      { return msg.channelID }
func (msg *Message) GuildID() snowflake.ID        { return msg.guildID }
func (msg *Message) AuthorID() snowflake.ID       { return msg.authorID }
func (msg *Message) WebhookID() snowflake.ID      { return msg.webhookID }
func (msg *Message) Type() int                    { return msg.typ }
func (msg *Message) Content() string              { return msg.content }
func (msg *Message) Timestamp() time.Time         { return msg.timestamp }
func (msg *Message) EditedTimestamp() time.Time   { return msg.editedTimestamp }
func (msg *Message) TTS() bool                    { return msg.tts }
func (msg *Message) MentionsEveryone() bool       { return msg.mentionEveryone }
func (msg *Message) Pinned() bool                 { return msg.pinned }
func (msg *Message) Flags() *bitfield.BitField    { return msg.flags }
func (msg *Message) Reference() *MessageReference { return msg.reference }

func (msg *Message) MentionIDs() []snowflake.ID     { return slices.Clone(msg.mentionIDs) }
func (msg *Message) MentionRoleIDs() []snowflake.ID { return slices.Clone(msg.mentionRoleIDs) }
func (msg *Message) StickerIDs() []snowflake.ID     { return slices.Clone(msg.stickerIDs) }
func (msg *Message) Attachments() []Attachment      { return slices.Clone(msg.attachments) }
func (msg *Message) Embeds() []Embed                { return slices.Clone(msg.embeds) }

func (msg *Message) Author() *User {
	return msg.client.Users().Get(msg.authorID)
}

func (msg *Message) Channel() TextBased {
	tb, _ := msg.client.Channels().Get(msg.channelID).(TextBased)
	return tb
}

func (msg *Message) Guild() *Guild {
	if !msg.guildID.Valid() {
		return nil
	}
	return msg.client.Guilds().Get(msg.guildID)
}

// Member 返回作者在 guild 中的成员信息，私聊或未缓存时返回 nil。
func (msg *Message) Member() *Member {
	g := msg.Guild()
	if g == nil {
		return nil
	}
	return g.members.Get(msg.authorID)
}

// Thread 返回从该消息开出的线程（线程 id 与消息 id 相同）。
func (msg *Message) Thread() *ThreadChannel {
	t, _ := msg.client.Channels().Get(msg.id).(*ThreadChannel)
	return t
}

func (msg *Message) Edited() bool {
	return !msg.editedTimestamp.IsZero()
}

func (msg *Message) Equals(other *Message) bool {
	if msg == nil || other == nil {
		return msg == other
	}
	return msg.id == other.id &&
		msg.content == other.content &&
		msg.editedTimestamp.Equal(other.editedTimestamp) &&
		msg.pinned == other.pinned &&
		len(msg.embeds) == len(other.embeds) &&
		len(msg.attachments) == len(other.attachments)
}

func (msg *Message) manager() (*MessageManager, error) {
	if err := msg.alive("message"); err != nil {
		return nil, err
	}
	ch := msg.Channel()
	if ch == nil {
		return nil, stale("channel", msg.channelID.String())
	}
	return ch.Messages(), nil
}

func (msg *Message) Edit(ctx context.Context, opts MessageEditOptions) (*Message, error) {
	mm, err := msg.manager()
	if err != nil {
		return nil, err
	}
	return mm.Edit(ctx, msg, opts)
}

func (msg *Message) Delete(ctx context.Context) error {
	mm, err := msg.manager()
	if err != nil {
		return err
	}
	return mm.Delete(ctx, msg)
}

func (msg *Message) Pin(ctx context.Context) error {
	mm, err := msg.manager()
	if err != nil {
		return err
	}
	return mm.Pin(ctx, msg)
}

func (msg *Message) Unpin(ctx context.Context) error {
	mm, err := msg.manager()
	if err != nil {
		return err
	}
	return mm.Unpin(ctx, msg)
}

// Reply 以引用该消息的方式回复。
func (msg *Message) Reply(ctx context.Context, opts MessageCreateOptions) (*Message, error) {
	mm, err := msg.manager()
	if err != nil {
		return nil, err
	}
	opts.ReplyTo = msg.id
	return mm.Send(ctx, opts)
}

// StartThread 从该消息开出线程。
func (msg *Message) StartThread(ctx context.Context, opts ThreadCreateOptions) (*ThreadChannel, error) {
	if err := msg.alive("message"); err != nil {
		return nil, err
	}
	parent, ok := msg.client.Channels().Get(msg.channelID).(ThreadParent)
	if !ok {
		return nil, invalidResolvable("channel", msg.channelID.String())
	}
	opts.StartMessage = msg.id
	return parent.Threads().Create(ctx, opts)
}

type MessageCreateOptions struct {
	Content    string
	TTS        bool
	Embeds     []Embed
	ReplyTo    snowflake.ID
	StickerIDs []snowflake.ID
	// Flags 接受 MessageFlags 能解析的任意形态
	Flags any
}

// wire 构造请求体；nonce 非空时要求服务端按 nonce 去重。
func (o MessageCreateOptions) wire(nonce string) map[string]any {
	body := map[string]any{}
	if o.Content != "" {
		body["content"] = o.Content
	}
	if o.TTS {
		body["tts"] = true
	}
	if len(o.Embeds) > 0 {
		body["embeds"] = o.Embeds
	}
	if o.ReplyTo.Valid() {
		body["message_reference"] = map[string]any{"message_id": o.ReplyTo.String(), "fail_if_not_exists": false}
	}
	if len(o.StickerIDs) > 0 {
		body["sticker_ids"] = idStrings(o.StickerIDs)
	}
	if o.Flags != nil {
		if bits, err := bitfield.MessageFlags.Resolve(o.Flags); err == nil {
			body["flags"] = uint64(bits)
		}
	}
	if nonce != "" {
		body["nonce"] = nonce
		body["enforce_nonce"] = true
	}
	return body
}

type MessageEditOptions struct {
	Content *string
	Embeds  []Embed
	Flags   any
}

func (o MessageEditOptions) wire() map[string]any {
	body := map[string]any{}
	setPtr(body, "content", o.Content)
	if o.Embeds != nil {
		body["embeds"] = o.Embeds
	}
	if o.Flags != nil {
		if bits, err := bitfield.MessageFlags.Resolve(o.Flags); err == nil {
			body["flags"] = uint64(bits)
		}
	}
	return body
}

// FetchMessagesOptions 是分页参数，Before/After/Around 至多设置一个。
type FetchMessagesOptions struct {
	Limit  int
	Before snowflake.ID
	After  snowflake.ID
	Around snowflake.ID
}

func (o FetchMessagesOptions) query() url.Values {
	q := url.Values{}
	if o.Limit > 0 {
		q.Set("limit", itoa(min(o.Limit, 100)))
	}
	switch {
	case o.Around.Valid():
		q.Set("around", o.Around.String())
	case o.Before.Valid():
		q.Set("before", o.Before.String())
	case o.After.Valid():
		q.Set("after", o.After.String())
	}
	return q
}

// MessageManager 是单个频道的消息缓存，容量由 cache.messages 限制。
type MessageManager struct {
	cachingManager[snowflake.ID, *Message]
	channelID snowflake.ID
	guildID   snowflake.ID
	channel   Channel
}

func newMessageManager(c Client, channelID, guildID snowflake.ID) *MessageManager {
	m := &MessageManager{channelID: channelID, guildID: guildID}
	m.cachingManager = newIDManager(c, CacheMessages, func(p Payload) *Message { return newMessage(c, channelID, guildID, p) }, nil)
	m.prepare = m.prepareRefs
	return m
}

// prepareRefs 把消息附带的作者、成员、提及用户与线程写入各自的缓存。
func (m *MessageManager) prepareRefs(p Payload) {
	c := m.client
	author, _ := p.Object("author")
	if author != nil {
		// webhook 作者是伪用户，只构造不缓存
		c.Users().Add(author, !p.Has("webhook_id"))
	}
	var g *Guild
	if m.guildID.Valid() {
		g = c.Guilds().Get(m.guildID)
	}
	if mem, ok := p.Object("member"); ok && mem != nil && author != nil && g != nil {
		g.members.Add(mem.With("user", map[string]any(author)), true)
	}
	mentions, _ := p.Objects("mentions")
	for _, u := range mentions {
		c.Users().Add(u, true)
		if mem, ok := u.Object("member"); ok && mem != nil && g != nil {
			g.members.Add(mem.With("user", map[string]any(u)), true)
		}
	}
	if th, ok := p.Object("thread"); ok && th != nil && m.guildID.Valid() {
		c.Channels().Add(th.WithDefault("guild_id", m.guildID.String()), true)
	}
}

func (m *MessageManager) alive() error {
	if m.channel != nil && isDeleted(m.client, m.channel) {
		return stale("channel", m.channelID.String())
	}
	return nil
}

func (m *MessageManager) ChannelID() snowflake.ID { return m.channelID }

func (m *MessageManager) Fetch(ctx context.Context, id snowflake.ID, opts FetchOptions) (*Message, error) {
	if msg, ok := m.fetchCached(id, opts); ok {
		return msg, nil
	}
	raw, err := request(ctx, m.client, rest.MethodGet, rest.ChannelMessage(m.channelID.String(), id.String()), nil)
	if err != nil {
		return nil, err
	}
	return m.store(raw, opts)
}

func (m *MessageManager) FetchAll(ctx context.Context, page FetchMessagesOptions, opts FetchOptions) ([]*Message, error) {
	raw, err := m.client.REST().Request(ctx, rest.ChannelMessages(m.channelID.String()), rest.MethodGet, nil, page.query())
	if err != nil {
		return nil, err
	}
	return m.storeAll(raw, opts)
}

func (m *MessageManager) FetchPinned(ctx context.Context, opts FetchOptions) ([]*Message, error) {
	raw, err := request(ctx, m.client, rest.MethodGet, rest.ChannelPins(m.channelID.String()), nil)
	if err != nil {
		return nil, err
	}
	return m.storeAll(raw, opts)
}

func (m *MessageManager) reconcile(t events.Type, raw any) (*Message, error) {
	data, ok := AsPayload(raw)
	if !ok {
		return nil, malformed("message", "id")
	}
	if m.guildID.Valid() {
		data = data.WithDefault("guild_id", m.guildID.String())
	}
	data = data.WithDefault("channel_id", m.channelID.String())
	m.client.Apply(t, data)
	return m.applied(data)
}

// Send 发送消息，结果经 MESSAGE_CREATE 对账。
func (m *MessageManager) Send(ctx context.Context, opts MessageCreateOptions) (*Message, error) {
	if err := m.alive(); err != nil {
		return nil, err
	}
	raw, err := request(ctx, m.client, rest.MethodPost, rest.ChannelMessages(m.channelID.String()), opts.wire(m.client.Nonce()))
	if err != nil {
		return nil, err
	}
	return m.reconcile(events.MessageCreate, raw)
}

func (m *MessageManager) Edit(ctx context.Context, message any, opts MessageEditOptions) (*Message, error) {
	if err := m.alive(); err != nil {
		return nil, err
	}
	id, err := m.resolveLive(message)
	if err != nil {
		return nil, err
	}
	raw, err := request(ctx, m.client, rest.MethodPatch, rest.ChannelMessage(m.channelID.String(), id.String()), opts.wire())
	if err != nil {
		return nil, err
	}
	return m.reconcile(events.MessageUpdate, raw)
}

// Delete 删除消息，结果经 MESSAGE_DELETE 对账。
func (m *MessageManager) Delete(ctx context.Context, message any) error {
	if err := m.alive(); err != nil {
		return err
	}
	id, err := m.resolveLive(message)
	if err != nil {
		return err
	}
	if _, err := request(ctx, m.client, rest.MethodDelete, rest.ChannelMessage(m.channelID.String(), id.String()), nil); err != nil {
		return err
	}
	m.client.Apply(events.MessageDelete, m.scoped(Payload{"id": id.String()}))
	return nil
}

// BulkDelete 批量删除 2~100 条消息；只有一条时退化为单条删除。
func (m *MessageManager) BulkDelete(ctx context.Context, messages []any) ([]snowflake.ID, error) {
	if err := m.alive(); err != nil {
		return nil, err
	}
	ids := make([]snowflake.ID, 0, len(messages))
	for _, msg := range messages {
		id, err := m.ResolveID(msg)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	switch {
	case len(ids) == 0:
		return nil, nil
	case len(ids) == 1:
		return ids, m.Delete(ctx, ids[0])
	case len(ids) > 100:
		return nil, invalidResolvable("messages", len(ids))
	}
	body := map[string]any{"messages": idStrings(ids)}
	if _, err := request(ctx, m.client, rest.MethodPost, rest.ChannelBulkDelete(m.channelID.String()), body); err != nil {
		return nil, err
	}
	m.client.Apply(events.MessageDeleteBulk, m.scoped(Payload{"ids": idStrings(ids)}))
	return ids, nil
}

func (m *MessageManager) scoped(p Payload) Payload {
	p["channel_id"] = m.channelID.String()
	if m.guildID.Valid() {
		p["guild_id"] = m.guildID.String()
	}
	return p
}

func (m *MessageManager) Pin(ctx context.Context, message any) error {
	return m.setPinned(ctx, message, true)
}

func (m *MessageManager) Unpin(ctx context.Context, message any) error {
	return m.setPinned(ctx, message, false)
}

// setPinned 置顶状态经 MESSAGE_UPDATE 的稀疏 payload 对账。
func (m *MessageManager) setPinned(ctx context.Context, message any, pinned bool) error {
	if err := m.alive(); err != nil {
		return err
	}
	id, err := m.resolveLive(message)
	if err != nil {
		return err
	}
	method := rest.MethodPut
	if !pinned {
		method = rest.MethodDelete
	}
	if _, err := request(ctx, m.client, method, rest.ChannelPin(m.channelID.String(), id.String()), nil); err != nil {
		return err
	}
	m.client.Apply(events.MessageUpdate, m.scoped(Payload{"id": id.String(), "pinned": pinned}))
	return nil
}

// Send 是 Messages().Send 的快捷方式。
func (t *textState) Send(ctx context.Context, opts MessageCreateOptions) (*Message, error) {
	return t.messages.Send(ctx, opts)
}
