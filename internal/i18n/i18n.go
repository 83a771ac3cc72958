package i18n

import (
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"
)

// 支持的语言标识。
const (
	LocaleZH = "zh-CN"
	LocaleTW = "zh-TW"
	LocaleEN = "en-US"
)

// DefaultLocale 未匹配到任何语言时使用的语言。
const DefaultLocale = LocaleZH

// ResolveLocale 解析请求语言：优先 lang 查询参数，其次 Accept-Language 头。
func ResolveLocale(c *gin.Context) string {
	if c == nil {
		return DefaultLocale
	}
	if lang := c.Query("lang"); lang != "" {
		if normalized, ok := normalizeLocale(lang); ok {
			return normalized
		}
	}
	header := c.GetHeader("Accept-Language")
	for _, part := range strings.Split(header, ",") {
		tag := strings.TrimSpace(part)
		if idx := strings.Index(tag, ";"); idx >= 0 {
			tag = tag[:idx]
		}
		if normalized, ok := normalizeLocale(tag); ok {
			return normalized
		}
	}
	return DefaultLocale
}

// T 返回指定语言的文案，找不到时按 zh-CN 兜底，仍找不到则返回 key 本身。
func T(locale, key string) string {
	if msgs, ok := messages[normalizeOrDefault(locale)]; ok {
		if msg, ok := msgs[key]; ok {
			return msg
		}
	}
	if msg, ok := messages[DefaultLocale][key]; ok {
		return msg
	}
	return key
}

// Sprintf 返回格式化后的国际化文案，占位规则同 fmt.Sprintf。
func Sprintf(locale, key string, args ...interface{}) string {
	format := T(locale, key)
	if len(args) == 0 {
		return format
	}
	return fmt.Sprintf(format, args...)
}

func normalizeOrDefault(locale string) string {
	if normalized, ok := normalizeLocale(locale); ok {
		return normalized
	}
	return DefaultLocale
}

func normalizeLocale(raw string) (string, bool) {
	tag := strings.ToLower(strings.TrimSpace(raw))
	switch {
	case tag == "":
		return "", false
	case strings.HasPrefix(tag, "zh-tw"), strings.HasPrefix(tag, "zh-hant"), strings.HasPrefix(tag, "zh-hk"):
		return LocaleTW, true
	case strings.HasPrefix(tag, "zh"):
		return LocaleZH, true
	case strings.HasPrefix(tag, "en"):
		return LocaleEN, true
	default:
		return "", false
	}
}
