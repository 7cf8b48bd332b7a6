package response

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"rpgwar-self/internal/pkg/i18n"
	"rpgwar-self/internal/pkg/log"
	"rpgwar-self/internal/pkg/xerrors"
)

// EmptyData 是一个用于在 API 成功响应中表示"无数据"的结构体。
type EmptyData struct{}

// ResponseResult 是一个通用的API响应结构体
type ResponseResult struct {
	Code      int    `json:"code"`            // 业务响应码
	Message   string `json:"message"`         // 响应消息
	Data      any    `json:"data,omitempty"`  // 响应数据，成功时返回
	Error     string `json:"error,omitempty"` // 错误详情，失败时返回
	Timestamp int64  `json:"timestamp"`       // Unix时间戳
}

// Writer 统一的响应写出接口
type Writer interface {
	WriteSuccess(ctx context.Context, w http.ResponseWriter, data any) error
	WriteError(ctx context.Context, w http.ResponseWriter, err error) error
}

// JSONWriter 默认实现：业务码 + HTTP 状态码双轨输出
type JSONWriter struct {
	logger log.Logger
}

// NewWriter 创建默认响应写出器
func NewWriter(logger log.Logger) Writer {
	if logger == nil {
		logger = log.GetLogger()
	}
	return &JSONWriter{logger: logger}
}

func (jw *JSONWriter) WriteSuccess(ctx context.Context, w http.ResponseWriter, data any) error {
	return writeJSON(w, http.StatusOK, &ResponseResult{
		Code:      xerrors.CodeSuccess.ToInt(),
		Message:   xerrors.CodeSuccess.Message(),
		Data:      data,
		Timestamp: time.Now().Unix(),
	})
}

func (jw *JSONWriter) WriteError(ctx context.Context, w http.ResponseWriter, err error) error {
	appErr := xerrors.FromError(err)
	if appErr.Level >= xerrors.LevelError {
		jw.logger.ErrorContext(ctx, "请求处理失败", "error", appErr)
	} else {
		jw.logger.WarnContext(ctx, "请求被拒绝", "error", appErr)
	}
	message := appErr.Message
	if message == "" {
		message = i18n.GetErrorMessage(appErr.Code, i18n.FromContext(ctx))
	}
	return writeJSON(w, HTTPStatus(appErr.Code), &ResponseResult{
		Code:      appErr.Code.ToInt(),
		Message:   message,
		Error:     i18n.GetErrorMessage(appErr.Code, i18n.FromContext(ctx)),
		Timestamp: time.Now().Unix(),
	})
}

// HTTPStatus 错误码到 HTTP 状态码的映射
func HTTPStatus(code xerrors.ErrorCode) int {
	switch code {
	case xerrors.CodeSuccess:
		return http.StatusOK
	case xerrors.CodeInvalidParams, xerrors.CodeInvalidRequest, xerrors.CodeWrongPhase:
		return http.StatusBadRequest
	case xerrors.CodeResourceNotFound, xerrors.CodeUserNotFound, xerrors.CodeMonsterMissing,
		xerrors.CodeBattleNotFound, xerrors.CodeWarNotFound:
		return http.StatusNotFound
	case xerrors.CodeDuplicateResource, xerrors.CodeStaleRound, xerrors.CodeBattleConflict,
		xerrors.CodeDuplicateBattle, xerrors.CodeWarLocked, xerrors.CodeWarAlreadyJoined,
		xerrors.CodeWarNotScheduled, xerrors.CodeWarSquadSealed:
		return http.StatusConflict
	case xerrors.CodeWarBlockedAction, xerrors.CodeNotInBattle, xerrors.CodeParticipantDead,
		xerrors.CodeBattleFinished:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, statusCode int, resp *ResponseResult) error {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(statusCode)
	return json.NewEncoder(w).Encode(resp)
}
