package validator

import (
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"rpgwar-self/internal/pkg/xerrors"
)

// CustomValidator wraps go-playground validator for Echo
type CustomValidator struct {
	validator *validator.Validate
}

// Validate implements echo.Validator interface
// 校验失败统一映射为参数错误，让响应层输出业务码而不是裸 400。
func (cv *CustomValidator) Validate(i interface{}) error {
	if err := cv.validator.Struct(i); err != nil {
		return xerrors.Wrap(err, xerrors.CodeInvalidParams, "请求参数校验失败")
	}
	return nil
}

// New creates a new custom validator instance
func New() echo.Validator {
	return &CustomValidator{
		validator: newValidate(),
	}
}

func newValidate() *validator.Validate {
	v := validator.New()
	// 战斗部位与选择类型的受限取值
	_ = v.RegisterValidation("battle_zone", func(fl validator.FieldLevel) bool {
		switch fl.Field().String() {
		case "head", "body", "legs", "none":
			return true
		default:
			return false
		}
	})
	_ = v.RegisterValidation("choice_kind", func(fl validator.FieldLevel) bool {
		switch fl.Field().String() {
		case "attack", "dodge":
			return true
		default:
			return false
		}
	})
	return v
}
