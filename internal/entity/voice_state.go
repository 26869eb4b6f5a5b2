package entity

import (
	"context"
	"time"

	"Concord/internal/rest"
	"Concord/internal/shared/snowflake"
)

// VoiceState 以用户 id 为键；离开语音时 channel 为 0，条目仍保留在缓存中。
type VoiceState struct {
	client                  Client
	guildID                 snowflake.ID
	userID                  snowflake.ID
	channelID               snowflake.ID
	sessionID               string
	deaf                    bool
	mute                    bool
	selfDeaf                bool
	selfMute                bool
	selfStream              bool
	selfVideo               bool
	suppress                bool
	requestToSpeakTimestamp time.Time
	deleted                 bool
}

func newVoiceState(c Client, guildID snowflake.ID, data Payload) *VoiceState {
	vs := &VoiceState{client: c, guildID: guildID}
	vs.userID, _ = idKey(data, "user_id")
	vs.patch(data)
	return vs
}

// NewEmptyVoiceState 构造“未连接”状态，用作首次加入语音时的 old 值。
func NewEmptyVoiceState(c Client, guildID, userID snowflake.ID) *VoiceState {
	return &VoiceState{client: c, guildID: guildID, userID: userID}
}

func (vs *VoiceState) patch(data Payload) {
	if v, ok := data.ID("channel_id"); ok {
		vs.channelID = v
	}
	if v, ok := data.String("session_id"); ok {
		vs.sessionID = v
	}
	if v, ok := data.Bool("deaf"); ok {
		vs.deaf = v
	}
	if v, ok := data.Bool("mute"); ok {
		vs.mute = v
	}
	if v, ok := data.Bool("self_deaf"); ok {
		vs.selfDeaf = v
	}
	if v, ok := data.Bool("self_mute"); ok {
		vs.selfMute = v
	}
	if v, ok := data.Bool("self_stream"); ok {
		vs.selfStream = v
	}
	if v, ok := data.Bool("self_video"); ok {
		vs.selfVideo = v
	}
	if v, ok := data.Bool("suppress"); ok {
		vs.suppress = v
	}
	if v, ok := data.Time("request_to_speak_timestamp"); ok {
		vs.requestToSpeakTimestamp = v
	}
}

func (vs *VoiceState) clone() *VoiceState {
	cp := *vs
	return &cp
}

func (vs *VoiceState) markDeleted()                       { vs.deleted = true }
func (vs *VoiceState) Deleted() bool                      { return vs.deleted }
func (vs *VoiceState) ID() snowflake.ID                   { return vs.userID }
func (vs *VoiceState) GuildID() snowflake.ID              { return vs.guildID }
func (vs *VoiceState) ChannelID() snowflake.ID            { return vs.channelID }
func (vs *VoiceState) SessionID() string                  { return vs.sessionID }
func (vs *VoiceState) ServerDeaf() bool                   { return vs.deaf }
func (vs *VoiceState) ServerMute() bool                   { return vs.mute }
func (vs *VoiceState) SelfDeaf() bool                     { return vs.selfDeaf }
func (vs *VoiceState) SelfMute() bool                     { return vs.selfMute }
func (vs *VoiceState) Streaming() bool                    { return vs.selfStream }
func (vs *VoiceState) SelfVideo() bool                    { return vs.selfVideo }
func (vs *VoiceState) Suppress() bool                     { return vs.suppress }
func (vs *VoiceState) RequestToSpeakTimestamp() time.Time { return vs.requestToSpeakTimestamp }

func (vs *VoiceState) Deaf() bool      { return vs.deaf || vs.selfDeaf }
func (vs *VoiceState) Mute() bool      { return vs.mute || vs.selfMute }
func (vs *VoiceState) Connected() bool { return vs.channelID.Valid() }

func (vs *VoiceState) Channel() Channel {
	if !vs.channelID.Valid() {
		return nil
	}
	return vs.client.Channels().Get(vs.channelID)
}

func (vs *VoiceState) Member() *Member {
	g := vs.client.Guilds().Get(vs.guildID)
	if g == nil {
		return nil
	}
	return g.members.Get(vs.userID)
}

func (vs *VoiceState) member() (*Member, error) {
	if isDeleted(vs.client, vs) {
		return nil, stale("voice_state", vs.userID.String())
	}
	m := vs.Member()
	if m == nil {
		return nil, stale("member", vs.userID.String())
	}
	return m, nil
}

// SetMute 服务端禁麦，经成员编辑对账。
func (vs *VoiceState) SetMute(ctx context.Context, mute bool) (*Member, error) {
	m, err := vs.member()
	if err != nil {
		return nil, err
	}
	return m.Edit(ctx, MemberEditOptions{Mute: &mute})
}

func (vs *VoiceState) SetDeaf(ctx context.Context, deaf bool) (*Member, error) {
	m, err := vs.member()
	if err != nil {
		return nil, err
	}
	return m.Edit(ctx, MemberEditOptions{Deaf: &deaf})
}

// SetChannel 移动到另一个语音频道；传 0 断开连接。
func (vs *VoiceState) SetChannel(ctx context.Context, channelID snowflake.ID) (*Member, error) {
	m, err := vs.member()
	if err != nil {
		return nil, err
	}
	return m.Edit(ctx, MemberEditOptions{Channel: &channelID})
}

func (vs *VoiceState) Disconnect(ctx context.Context) (*Member, error) {
	return vs.SetChannel(ctx, 0)
}

type VoiceStateManager struct {
	cachingManager[snowflake.ID, *VoiceState]
	guildID snowflake.ID
}

func newVoiceStateManager(c Client, guildID snowflake.ID, members *MemberManager) *VoiceStateManager {
	m := &VoiceStateManager{guildID: guildID}
	m.cachingManager = newIDManager(c, CacheVoiceStates, func(p Payload) *VoiceState { return newVoiceState(c, guildID, p) }, nil)
	m.keyField = "user_id"
	m.key = func(p Payload) (snowflake.ID, bool) { return idKey(p, "user_id") }
	m.prepare = func(p Payload) {
		if mem, ok := p.Object("member"); ok && mem != nil {
			members.Add(mem, true)
		}
	}
	return m
}

func (m *VoiceStateManager) Fetch(ctx context.Context, user any, opts FetchOptions) (*VoiceState, error) {
	id, err := m.ResolveID(user)
	if err != nil {
		return nil, err
	}
	if vs, ok := m.fetchCached(id, opts); ok {
		return vs, nil
	}
	raw, err := request(ctx, m.client, rest.MethodGet, rest.GuildVoiceState(m.guildID.String(), id.String()), nil)
	if err != nil {
		return nil, err
	}
	return m.store(raw, opts)
}
