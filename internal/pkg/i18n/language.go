// File: internal/pkg/i18n/language.go
package i18n

import (
	"context"

	"golang.org/x/text/language"
)

type ctxKey struct{}

// 支持的语言，第一项为兜底语言
var matcher = language.NewMatcher([]language.Tag{
	language.Russian,
	language.English,
	language.Chinese,
})

// Match 解析 Accept-Language 请求头，返回最接近的受支持语言
// 置信度不足 High 时（如 fr 被勉强归到 en）一律回退兜底语言。
func Match(acceptLanguage string) language.Tag {
	tags, _, err := language.ParseAcceptLanguage(acceptLanguage)
	if err != nil || len(tags) == 0 {
		return language.Russian
	}
	_, idx, conf := matcher.Match(tags...)
	if conf < language.High {
		return language.Russian
	}
	// matcher 返回的 tag 可能带地区扩展，这里只取基础语言
	switch idx {
	case 1:
		return language.English
	case 2:
		return language.Chinese
	default:
		return language.Russian
	}
}

// WithLanguage 把协商结果放入 context，供响应层取用
func WithLanguage(ctx context.Context, tag language.Tag) context.Context {
	return context.WithValue(ctx, ctxKey{}, tag)
}

// FromContext 取出协商语言，未设置时返回俄语
func FromContext(ctx context.Context) language.Tag {
	if tag, ok := ctx.Value(ctxKey{}).(language.Tag); ok {
		return tag
	}
	return language.Russian
}
