package transport

// BizCode 表示业务码的强类型封装，用于在日志上下文中减少误传风险。
type BizCode int

// inspect API 对外业务码：0 成功，1~499 调用方问题，>=500 服务端问题。
const (
	OK           BizCode = 0
	InvalidParam BizCode = 400
	Unauthorized BizCode = 401
	NotFound     BizCode = 404
	SystemError  BizCode = 500
)

func (c BizCode) Int() int { return int(c) }
