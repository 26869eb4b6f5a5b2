// Package inspect 提供只读的缓存查看接口，所有读取都在 client 读锁内完成。
package inspect

import (
	"net/http"

	"Concord/internal/entity"
	"Concord/internal/shared/security"
	"Concord/internal/shared/snowflake"
	"Concord/internal/shared/transport"
	"Concord/internal/shared/transport/http/middleware"
	"Concord/modules/kit/logx"

	"github.com/gin-gonic/gin"
)

// Cache 是 inspect 依赖的缓存视图，client.Client 实现它。
type Cache interface {
	Read(fn func())
	Guilds() *entity.GuildManager
	Channels() *entity.ChannelManager
	UserID() snowflake.ID
}

type Options struct {
	NeedAuth bool
	// Metrics 为空时不挂载 /metrics。
	Metrics http.Handler
	Logger  logx.Logger
}

type Module struct {
	cache Cache
	opts  Options
	log   logx.Logger
}

func New(cache Cache, opts Options) *Module {
	l := opts.Logger
	if l == nil {
		l = logx.Nop()
	}
	return &Module{cache: cache, opts: opts, log: l}
}

func (m *Module) HttpRegister(g *gin.RouterGroup) {
	if m.opts.Metrics != nil {
		g.GET("/metrics", gin.WrapH(m.opts.Metrics))
	}
	api := g.Group("/api")
	if m.opts.NeedAuth {
		api.Use(middleware.BearerAuth(security.ScopeInspect))
	}
	api.GET("/me", m.me)
	api.GET("/guilds", m.listGuilds)
	api.GET("/guilds/:id", m.getGuild)
	api.GET("/guilds/:id/channels", m.listGuildChannels)
	api.GET("/guilds/:id/roles", m.listGuildRoles)
	api.GET("/guilds/:id/members/:uid", m.getMember)
	api.GET("/channels/:id", m.getChannel)
}

func ok(c *gin.Context, data any) {
	c.JSON(http.StatusOK, gin.H{"code": transport.OK.Int(), "data": data})
}

func fail(c *gin.Context, status int, code transport.BizCode, msg string) {
	transport.SetErrorReason(c.Request.Context(), msg)
	c.JSON(status, gin.H{"code": code.Int(), "msg": msg})
}

func idParam(c *gin.Context, name string) (snowflake.ID, bool) {
	id, err := snowflake.Parse(c.Param(name))
	if err != nil || !id.Valid() {
		fail(c, http.StatusBadRequest, transport.InvalidParam, "invalid "+name)
		return 0, false
	}
	return id, true
}

func (m *Module) me(c *gin.Context) {
	var guilds int
	m.cache.Read(func() { guilds = m.cache.Guilds().Cache().Len() })
	ok(c, gin.H{"user_id": m.cache.UserID().String(), "guilds": guilds})
}

func (m *Module) listGuilds(c *gin.Context) {
	var out []guildSummary
	m.cache.Read(func() {
		m.cache.Guilds().Cache().Each(func(_ snowflake.ID, g *entity.Guild) bool {
			out = append(out, summarizeGuild(g))
			return true
		})
	})
	ok(c, out)
}

func (m *Module) getGuild(c *gin.Context) {
	id, valid := idParam(c, "id")
	if !valid {
		return
	}
	var (
		view  guildView
		found bool
	)
	m.cache.Read(func() {
		if g := m.cache.Guilds().Get(id); g != nil {
			view, found = describeGuild(g), true
		}
	})
	if !found {
		fail(c, http.StatusNotFound, transport.NotFound, "guild not cached")
		return
	}
	ok(c, view)
}

func (m *Module) listGuildChannels(c *gin.Context) {
	id, valid := idParam(c, "id")
	if !valid {
		return
	}
	var (
		out   []channelView
		found bool
	)
	m.cache.Read(func() {
		g := m.cache.Guilds().Get(id)
		if g == nil {
			return
		}
		found = true
		for _, ch := range g.Channels().Sorted() {
			out = append(out, describeChannel(ch))
		}
	})
	if !found {
		fail(c, http.StatusNotFound, transport.NotFound, "guild not cached")
		return
	}
	ok(c, out)
}

func (m *Module) listGuildRoles(c *gin.Context) {
	id, valid := idParam(c, "id")
	if !valid {
		return
	}
	var (
		out   []roleView
		found bool
	)
	m.cache.Read(func() {
		g := m.cache.Guilds().Get(id)
		if g == nil {
			return
		}
		found = true
		for _, r := range g.Roles().Sorted() {
			out = append(out, describeRole(r))
		}
	})
	if !found {
		fail(c, http.StatusNotFound, transport.NotFound, "guild not cached")
		return
	}
	ok(c, out)
}

func (m *Module) getMember(c *gin.Context) {
	gid, valid := idParam(c, "id")
	if !valid {
		return
	}
	uid, valid := idParam(c, "uid")
	if !valid {
		return
	}
	var (
		view  memberView
		found bool
	)
	m.cache.Read(func() {
		g := m.cache.Guilds().Get(gid)
		if g == nil {
			return
		}
		if mem := g.Members().Get(uid); mem != nil {
			view, found = describeMember(mem), true
		}
	})
	if !found {
		fail(c, http.StatusNotFound, transport.NotFound, "member not cached")
		return
	}
	ok(c, view)
}

func (m *Module) getChannel(c *gin.Context) {
	id, valid := idParam(c, "id")
	if !valid {
		return
	}
	var (
		view  channelView
		found bool
	)
	m.cache.Read(func() {
		if ch := m.cache.Channels().Get(id); ch != nil {
			view, found = describeChannel(ch), true
		}
	})
	if !found {
		fail(c, http.StatusNotFound, transport.NotFound, "channel not cached")
		return
	}
	ok(c, view)
}
