package i18n

import (
	"embed"
	"encoding/json"
	"fmt"

	"github.com/nicksnyder/go-i18n/v2/i18n"
	"golang.org/x/text/language"
)

//go:embed locales/*.json
var locales embed.FS

// Supported lists the languages with a message file, default first.
var Supported = []language.Tag{language.French, language.English}

// I18nSupport localizes user facing messages.
type I18nSupport struct {
	bundle  *i18n.Bundle
	matcher language.Matcher
}

// NewI18nSupport loads the embedded message files. defaultLang is used for
// messages missing in the requested language.
func NewI18nSupport(defaultLang string) (*I18nSupport, error) {
	tag, err := language.Parse(defaultLang)
	if err != nil {
		return nil, fmt.Errorf("invalid default language %q: %w", defaultLang, err)
	}

	bundle := i18n.NewBundle(tag)
	bundle.RegisterUnmarshalFunc("json", json.Unmarshal)

	for _, name := range []string{"fr.json", "en.json"} {
		buf, err := locales.ReadFile("locales/" + name)
		if err != nil {
			return nil, err
		}
		if _, err := bundle.ParseMessageFileBytes(buf, name); err != nil {
			return nil, fmt.Errorf("parse %s: %w", name, err)
		}
	}

	return &I18nSupport{
		bundle:  bundle,
		matcher: language.NewMatcher(Supported),
	}, nil
}

// T returns the translation of key in languageTag, or key itself when no
// translation exists.
func (i *I18nSupport) T(languageTag, key string, templateData map[string]interface{}) string {
	localizer := i18n.NewLocalizer(i.bundle, languageTag)

	translation, err := localizer.Localize(&i18n.LocalizeConfig{
		MessageID:    key,
		TemplateData: templateData,
	})
	if err != nil {
		return key
	}
	return translation
}

// Match picks the supported base language ("fr" or "en") for an explicit
// language or an Accept-Language header value. French wins when nothing matches.
func (i *I18nSupport) Match(preferences ...string) string {
	var tags []language.Tag
	for _, p := range preferences {
		if p == "" {
			continue
		}
		parsed, _, err := language.ParseAcceptLanguage(p)
		if err != nil {
			continue
		}
		tags = append(tags, parsed...)
	}

	tag, _, _ := i.matcher.Match(tags...)
	base, _ := tag.Base()
	return base.String()
}
