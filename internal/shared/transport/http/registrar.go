package http

import "github.com/gin-gonic/gin"

// Registrar 由各模块实现，把自己的路由挂到服务的根分组上。
type Registrar interface {
	HttpRegister(g *gin.RouterGroup)
}
