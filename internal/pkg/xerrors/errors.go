// File: internal/pkg/xerrors/errors.go
package xerrors

import (
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// ErrorLevel 错误级别
type ErrorLevel int

const (
	LevelInfo ErrorLevel = iota
	LevelWarn
	LevelError
	LevelCritical
)

func (l ErrorLevel) String() string {
	switch l {
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	case LevelCritical:
		return "CRITICAL"
	default:
		return "UNKNOWN"
	}
}

// AppError 领域错误
// 携带错误码、可读消息和业务上下文，贯穿 service/handler 层。
type AppError struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Err     error     `json:"-"`

	Level     ErrorLevel `json:"level,omitempty"`
	Timestamp time.Time  `json:"timestamp,omitempty"`

	// 业务关联标识，用于日志排查（会话/战争 ID 等）
	BattleID string `json:"battle_id,omitempty"`
	WarID    string `json:"war_id,omitempty"`
	UserID   string `json:"user_id,omitempty"`

	// Retryable 标记调用方重读状态后重试是否有意义
	Retryable bool `json:"retryable,omitempty"`
}

// Error 实现标准 error 接口
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%d] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%d] %s", e.Code, e.Message)
}

// Unwrap 实现 errors.Unwrap 接口
func (e *AppError) Unwrap() error {
	return e.Err
}

// LogValue 实现 slog.LogValuer 接口，统一结构化日志输出
func (e *AppError) LogValue() slog.Value {
	attrs := []slog.Attr{
		slog.Int("code", int(e.Code)),
		slog.String("message", e.Message),
		slog.String("level", e.Level.String()),
		slog.Bool("retryable", e.Retryable),
	}
	if e.BattleID != "" {
		attrs = append(attrs, slog.String("battle_id", e.BattleID))
	}
	if e.WarID != "" {
		attrs = append(attrs, slog.String("war_id", e.WarID))
	}
	if e.UserID != "" {
		attrs = append(attrs, slog.String("user_id", e.UserID))
	}
	if e.Err != nil {
		attrs = append(attrs, slog.String("cause", e.Err.Error()))
	}
	return slog.GroupValue(attrs...)
}

// New 创建领域错误
func New(code ErrorCode, message string) *AppError {
	if message == "" {
		message = code.Message()
	}
	return &AppError{
		Code:      code,
		Message:   message,
		Level:     defaultLevel(code),
		Timestamp: time.Now(),
	}
}

// Newf 创建带格式化消息的领域错误
func Newf(code ErrorCode, format string, args ...any) *AppError {
	return New(code, fmt.Sprintf(format, args...))
}

// Wrap 包装底层错误
func Wrap(err error, code ErrorCode, message string) *AppError {
	e := New(code, message)
	e.Err = err
	return e
}

// WithWar 附加战争关联标识
func (e *AppError) WithWar(warID string) *AppError {
	e.WarID = warID
	return e
}

// WithBattle 附加战斗会话关联标识
func (e *AppError) WithBattle(battleID string) *AppError {
	e.BattleID = battleID
	return e
}

// WithUser 附加用户关联标识
func (e *AppError) WithUser(userID string) *AppError {
	e.UserID = userID
	return e
}

// WithRetryable 标记可重试
func (e *AppError) WithRetryable() *AppError {
	e.Retryable = true
	return e
}

// FromError 提取 AppError；非领域错误统一归为内部错误
func FromError(err error) *AppError {
	if err == nil {
		return nil
	}
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return Wrap(err, CodeInternalError, "内部服务错误")
}

// IsCode 判断错误链上是否存在指定错误码
func IsCode(err error, code ErrorCode) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code == code
	}
	return false
}

// defaultLevel 按错误码段给出默认级别
func defaultLevel(code ErrorCode) ErrorLevel {
	switch {
	case code == CodeSuccess:
		return LevelInfo
	case code == CodeInternalError, code == CodeBattleStoreFailed, code == CodeWarScheduleError:
		return LevelError
	default:
		return LevelWarn
	}
}
