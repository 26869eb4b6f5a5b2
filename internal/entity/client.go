package entity

import (
	"Concord/internal/events"
	"Concord/internal/rest"
	"Concord/internal/shared/snowflake"
	"Concord/modules/kit/logx"
)

// Client 是实体与 manager 共享的注册表句柄，每个实例互相独立。
//
// Apply 走与网关事件完全相同的对账路径，REST 变更通过它落到缓存并产生事件；
// ApplyFunc 在同一把写锁内先调用 build 再对账，用于依赖当前缓存状态的增量变更；
// Write 在全局写锁内执行 fn，用于 fetch 结果入缓存；Read 在读锁内执行 fn。
// 这些方法都不可在对账处理器内部调用。
type Client interface {
	Guilds() *GuildManager
	Channels() *ChannelManager
	Users() *UserManager
	REST() rest.Requester
	Apply(t events.Type, data Payload) []Result
	ApplyFunc(t events.Type, build func() (Payload, bool)) []Result
	Write(fn func())
	Read(fn func())
	Logger() logx.Logger
	UserID() snowflake.ID
	Nonce() string
	CacheLimit(manager string) int
}

// Manager 名称，与配置 cache.<name> 对应。
const (
	CacheGuilds              = "guilds"
	CacheChannels            = "channels"
	CacheUsers               = "users"
	CacheRoles               = "roles"
	CacheMembers             = "members"
	CachePresences           = "presences"
	CacheMessages            = "messages"
	CacheThreads             = "threads"
	CacheThreadMembers       = "thread_members"
	CacheVoiceStates         = "voice_states"
	CacheScheduledEvents     = "scheduled_events"
	CacheAutoModerationRules = "auto_moderation_rules"
	CacheInvites             = "invites"
	CacheStickers            = "stickers"
	CacheEmojis              = "emojis"
	CacheOverwrites          = "permission_overwrites"
)

// Result 是一次对账产生的事件：创建/删除类填 Entity，更新类填 Old/Updated。
type Result struct {
	Event   events.Name
	Entity  any
	Old     any
	Updated any
	Extra   []any
}

func Single(ev events.Name, e any, extra ...any) Result {
	return Result{Event: ev, Entity: e, Extra: extra}
}

func Change(ev events.Name, old, updated any, extra ...any) Result {
	return Result{Event: ev, Old: old, Updated: updated, Extra: extra}
}

func (r Result) IsChange() bool {
	return r.Updated != nil
}

// Args 返回监听器收到的参数，顺序固定。
func (r Result) Args() []any {
	var out []any
	if r.IsChange() {
		out = append(out, r.Old, r.Updated)
	} else {
		out = append(out, r.Entity)
	}
	return append(out, r.Extra...)
}
