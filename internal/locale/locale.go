package locale

import (
	"context"
	"net/http"

	"golang.org/x/text/language"
)

// Supported kiosk languages, default first
var supported = []language.Tag{
	language.English,
	language.Hindi,
	language.Marathi,
}

var matcher = language.NewMatcher(supported)

// Locale is the language resolved for one request
type Locale struct {
	Tag language.Tag
}

// String returns the BCP 47 base language, e.g. "hi"
func (l Locale) String() string {
	base, _ := l.Tag.Base()
	return base.String()
}

// Default is used when nothing in the request matches
var Default = Locale{Tag: language.English}

// Resolve picks a supported locale from an explicit preference (the lang
// query parameter) and then the Accept-Language header
func Resolve(preferred, acceptLanguage string) Locale {
	var prefs []language.Tag
	if preferred != "" {
		if tag, err := language.Parse(preferred); err == nil {
			prefs = append(prefs, tag)
		}
	}
	if acceptLanguage != "" {
		if tags, _, err := language.ParseAcceptLanguage(acceptLanguage); err == nil {
			prefs = append(prefs, tags...)
		}
	}
	if len(prefs) == 0 {
		return Default
	}

	_, idx, confidence := matcher.Match(prefs...)
	if confidence == language.No {
		return Default
	}
	return Locale{Tag: supported[idx]}
}

type localeKey struct{}

// WithLocale stores the request locale in ctx
func WithLocale(ctx context.Context, l Locale) context.Context {
	return context.WithValue(ctx, localeKey{}, l)
}

// FromContext returns the request locale, or Default
func FromContext(ctx context.Context) Locale {
	if l, ok := ctx.Value(localeKey{}).(Locale); ok {
		return l
	}
	return Default
}

// Middleware resolves the locale for each request and echoes it as Content-Language
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		l := Resolve(r.URL.Query().Get("lang"), r.Header.Get("Accept-Language"))
		w.Header().Set("Content-Language", l.String())
		next.ServeHTTP(w, r.WithContext(WithLocale(r.Context(), l)))
	})
}
