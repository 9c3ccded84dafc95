package response

// 业务状态码
const (
	CodeSuccess = 0
	CodeError   = 1

	// 会话模块错误 100xx
	ErrSessionRequired = 10001
	ErrSessionExpired  = 10002
	ErrTokenInvalid    = 10003

	// 信息流模块错误 200xx
	ErrPostNotFound   = 20001
	ErrEntityBusy     = 20002 // 同一实体已有操作在途
	ErrLoadInFlight   = 20003 // 分页加载已在进行中
	ErrNoMorePages    = 20004
	ErrCommentFailed  = 20005

	// 发帖向导错误 300xx
	ErrStepBlocked      = 30001 // 守卫条件未满足
	ErrNoFundedCoin     = 30002
	ErrCoinNotSelected  = 30003
	ErrPoolExceedsFunds = 30004
	ErrMediaLimit       = 30005
	ErrUploadFailed     = 30006

	// 提及模块错误 400xx
	ErrNoActiveMention = 40001

	// 通知模块错误 450xx
	ErrNotificationNotFound = 45001

	// 系统错误 500xx
	ErrServerInternal  = 50001
	ErrInvalidParam    = 50002
	ErrTooManyRequests = 50003
	ErrPlatformGateway = 50004 // 上游平台接口失败
)
