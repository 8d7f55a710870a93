// internal/middleware/i18n.go
package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/permitdesk/licensing-backend/internal/i18n"
)

func I18nMiddleware() gin.HandlerFunc {
	supported := i18n.GetSupportedLanguages()

	return func(c *gin.Context) {
		c.Set("lang", preferredLanguage(c.GetHeader("Accept-Language"), supported))
		c.Next()
	}
}

// preferredLanguage walks a header like "en-AU,en;q=0.9,fr;q=0.8" and
// returns the first base language with a loaded catalogue.
func preferredLanguage(header string, supported []string) string {
	for _, part := range strings.Split(header, ",") {
		tag := strings.TrimSpace(strings.Split(part, ";")[0])
		if tag == "" {
			continue
		}
		subtags := strings.FieldsFunc(tag, func(r rune) bool {
			return r == '-' || r == '_'
		})
		if len(subtags) == 0 {
			continue
		}
		base := strings.ToLower(subtags[0])
		for _, lang := range supported {
			if lang == base {
				return lang
			}
		}
	}
	return "en"
}
