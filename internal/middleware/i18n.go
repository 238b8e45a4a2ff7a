// internal/middleware/i18n.go
package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
)

// I18nMiddleware picks the response language from the "lang" query parameter or the
// Accept-Language header. Unsupported languages fall back to English.
func I18nMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		lang := c.Query("lang")
		if lang == "" {
			// "zh-TW,zh;q=0.9,en;q=0.8" -> "zh-TW"
			lang = strings.Split(c.GetHeader("Accept-Language"), ",")[0]
			lang = strings.TrimSpace(strings.Split(lang, ";")[0])
		}

		c.Set("lang", normalizeLang(lang))
		c.Next()
	}
}

func normalizeLang(lang string) string {
	lang = strings.ReplaceAll(strings.ToLower(lang), "_", "-")
	switch {
	case lang == "zh-tw", lang == "zh-hant", lang == "zh-hk", lang == "zh":
		return "zh_TW"
	case strings.HasPrefix(lang, "zh-hant"):
		return "zh_TW"
	default:
		return "en"
	}
}
