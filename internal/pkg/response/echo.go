// File: internal/pkg/response/echo.go
package response

import (
	"rpgwar-self/internal/pkg/i18n"
	"rpgwar-self/internal/pkg/xerrors"

	"github.com/labstack/echo/v4"
)

// Echo 框架适配器 - 简化 Echo Handler 中的响应处理

// EchoOK Echo 成功响应
func EchoOK(c echo.Context, h Writer, data any) error {
	return h.WriteSuccess(c.Request().Context(), c.Response().Writer, data)
}

// EchoError Echo 错误响应，错误文案按 Accept-Language 协商
func EchoError(c echo.Context, h Writer, err error) error {
	ctx := i18n.WithLanguage(c.Request().Context(), i18n.Match(c.Request().Header.Get("Accept-Language")))
	return h.WriteError(ctx, c.Response().Writer, err)
}

// EchoBadRequest Echo 400 错误响应
func EchoBadRequest(c echo.Context, h Writer, message string) error {
	return EchoError(c, h, xerrors.New(xerrors.CodeInvalidRequest, message))
}

// EchoNotFound Echo 404 错误响应
func EchoNotFound(c echo.Context, h Writer, message string) error {
	return EchoError(c, h, xerrors.New(xerrors.CodeResourceNotFound, message))
}
