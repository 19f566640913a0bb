package middleware

import (
	"Whispen/pkg/i18n"

	"github.com/gin-gonic/gin"
)

// LangKey is the context key holding the negotiated language.
const LangKey = "lang"

// LanguageMiddleware picks "fr" or "en" from the lang query parameter, then
// the Accept-Language header. French is the default.
func LanguageMiddleware(i18nSupport *i18n.I18nSupport) gin.HandlerFunc {
	return func(c *gin.Context) {
		lang := i18nSupport.Match(c.Query("lang"), c.GetHeader("Accept-Language"))
		c.Set(LangKey, lang)
		c.Next()
	}
}

// Lang returns the language chosen for the request.
func Lang(c *gin.Context) string {
	if lang := c.GetString(LangKey); lang != "" {
		return lang
	}
	return "fr"
}
