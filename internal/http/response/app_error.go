package response

import "errors"

// AppError 接口层错误：业务码、i18n 消息 key 与原始错误
type AppError struct {
	Code int
	Key  string
	Err  error
}

// NewAppError 创建接口层错误，err 可为空
func NewAppError(code int, key string, err error) *AppError {
	return &AppError{Code: code, Key: key, Err: err}
}

func (e *AppError) Error() string {
	if e.Err == nil {
		return e.Key
	}
	return e.Key + ": " + e.Err.Error()
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Internal 是否为需要记录日志的服务端错误
func (e *AppError) Internal() bool {
	return e.Code >= CodeInternal
}

// AsAppError 从错误链中取出 AppError
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) && appErr != nil {
		return appErr, true
	}
	return nil, false
}
