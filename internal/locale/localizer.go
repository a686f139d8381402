package locale

import (
	"embed"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/nicksnyder/go-i18n/v2/i18n"
	"golang.org/x/text/language"
)

//go:embed locales/*.json
var localizedata embed.FS

const (
	Ru = "ru"
	En = "en"

	DefaultLocale = En
)

// Languages lists every locale shipped with the bot
var Languages = []string{En, Ru}

type locale struct {
	locale string
}

type Locale interface {
	GetLocale() string
}

func NewLocale(l string) Locale {
	return &locale{
		locale: l,
	}
}

func (l *locale) GetLocale() string {
	return l.locale
}

type localizer struct {
	Locale
	*i18n.Localizer
}

// Localizer resolves message IDs to display strings. Lookups fall back to the
// default locale and finally to the message ID itself, they never fail.
type Localizer interface {
	Locale
	Localize(id string) string
	LocalizeWithTemplate(id string, fields ...string) string
}

func NewLocalizer(locale Locale) (Localizer, error) {
	bundle := i18n.NewBundle(language.English)
	bundle.RegisterUnmarshalFunc("json", json.Unmarshal)

	for _, lang := range Languages {
		f := lang + ".json"
		data, err := localizedata.ReadFile(fmt.Sprintf("locales/%s", f))
		if err != nil {
			return nil, fmt.Errorf("failed to load translation data: %s", f)
		}

		if _, err := bundle.ParseMessageFileBytes(data, f); err != nil {
			return nil, fmt.Errorf("failed to parse translation data %s: %w", f, err)
		}
	}

	return &localizer{
		locale,
		i18n.NewLocalizer(bundle, locale.GetLocale(), DefaultLocale),
	}, nil
}

func (l *localizer) Localize(id string) string {
	return l.localize(createLocalizeConfig(id))
}

func (l *localizer) LocalizeWithTemplate(id string, fields ...string) string {
	return l.localize(createLocalizeConfigWithTemplate(id, fields...))
}

func (l *localizer) localize(cfg *i18n.LocalizeConfig) string {
	msg, err := l.Localizer.Localize(cfg)
	if err != nil || msg == "" {
		return cfg.MessageID
	}
	return msg
}

func createLocalizeConfig(id string) *i18n.LocalizeConfig {
	return &i18n.LocalizeConfig{
		MessageID: id,
	}
}

func createLocalizeConfigWithTemplate(id string, fields ...string) *i18n.LocalizeConfig {
	td := make(map[string]interface{}, len(fields))

	for i, f := range fields {
		td["f"+strconv.Itoa(i+1)] = f
	}

	return &i18n.LocalizeConfig{
		MessageID:    id,
		TemplateData: td,
	}
}
