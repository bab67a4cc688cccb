package response

// 业务状态码
const (
	CodeSuccess = 0
	CodeError   = 1

	// 结账模块错误 300xx
	ErrCheckoutInvalid     = 30001
	ErrProviderRejected    = 30002
	ErrProviderUnavailable = 30003
	ErrOrderNotFound       = 30004

	// 系统错误 500xx
	ErrServerInternal  = 50001
	ErrInvalidParam    = 50002
	ErrTooManyRequests = 50003
)
