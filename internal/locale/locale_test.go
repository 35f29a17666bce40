package locale

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestResolve(t *testing.T) {
	cases := []struct {
		name, preferred, accept, want string
	}{
		{"nothing", "", "", "en"},
		{"query wins", "hi", "mr-IN,mr;q=0.9", "hi"},
		{"header", "", "mr-IN,mr;q=0.9,en;q=0.5", "mr"},
		{"regional english", "", "en-GB", "en"},
		{"unsupported", "", "ja-JP", "en"},
		{"garbage query", "%%%", "hi", "hi"},
	}
	for _, tc := range cases {
		if got := Resolve(tc.preferred, tc.accept).String(); got != tc.want {
			t.Errorf("%s: expected %s, got %s", tc.name, tc.want, got)
		}
	}
}

func TestFromContextDefault(t *testing.T) {
	if got := FromContext(context.Background()); got.String() != "en" {
		t.Errorf("Expected default en, got %s", got)
	}
}

func TestMiddleware(t *testing.T) {
	var seen Locale
	h := Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = FromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/admin/activities?lang=hi", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if seen.String() != "hi" {
		t.Errorf("Expected request locale hi, got %s", seen)
	}
	if got := rec.Header().Get("Content-Language"); got != "hi" {
		t.Errorf("Expected Content-Language hi, got %q", got)
	}
}

func TestText(t *testing.T) {
	if got := Resolve("hi", "").Text(MsgUnauthorized); got != "अनधिकृत" {
		t.Errorf("Expected Hindi translation, got %q", got)
	}
	if got := Default.Text(MsgInternal); got != MsgInternal {
		t.Errorf("Expected English passthrough, got %q", got)
	}
	if got := Resolve("mr", "").Text("reading: negative value"); got != "reading: negative value" {
		t.Errorf("Expected untranslated dynamic text, got %q", got)
	}
}

func TestText_ErrorCategoriesTranslated(t *testing.T) {
	for _, key := range []string{MsgValidation, MsgForbidden, MsgNotFound, MsgConflict} {
		for _, lang := range []string{"hi", "mr"} {
			if got := Resolve(lang, "").Text(key); got == key {
				t.Errorf("%s: expected translation of %q", lang, key)
			}
		}
	}
}
