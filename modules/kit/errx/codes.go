package errx

// 这里定义“跨组件统一”的系统类错误码。
//
// 约束：
// - 这些错误码用于“系统/技术类错误”归一化（便于告警、观测、排障）
// - 领域错误码（例如 MALFORMED_PAYLOAD）由各业务包自行定义，不在 kit 里集中

const (
	// CodeInternal 表示内部不可预期错误（兜底）。
	CodeInternal Code = "INTERNAL_ERROR"
	// CodeUnavailable 表示依赖不可用（REST 接口/网关连接/网络异常等）。
	CodeUnavailable Code = "SERVICE_UNAVAILABLE"
	// CodeTimeout 表示请求/依赖调用超时。
	CodeTimeout Code = "TIMEOUT"
	// CodeRateLimited 表示被远端限流。
	CodeRateLimited Code = "RATE_LIMITED"
	// CodeInvalidArgument 表示调用方传入的参数非法。
	CodeInvalidArgument Code = "INVALID_ARGUMENT"
)

// 统一系统类哨兵错误（允许 WithData/WithCause 派生新对象）。
var (
	ErrInternal        = NewSys(CodeInternal, "internal error")
	ErrUnavailable     = NewSys(CodeUnavailable, "service unavailable")
	ErrTimeout         = NewSys(CodeTimeout, "request timeout")
	ErrRateLimited     = NewSys(CodeRateLimited, "rate limited")
	ErrInvalidArgument = NewBiz(CodeInvalidArgument, "invalid argument")
)
