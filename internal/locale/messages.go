package locale

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/message/catalog"
)

// Fixed user-facing messages. Validation field detail is appended untranslated.
const (
	MsgInternal       = "internal server error"
	MsgUnauthorized   = "unauthorized"
	MsgValidation     = "validation failed"
	MsgForbidden      = "forbidden"
	MsgNotFound       = "not found"
	MsgConflict       = "reading is no longer pending"
	MsgInvalidBody    = "invalid request body"
	MsgInvalidLimit   = "limit must be a positive integer"
	MsgInvalidReading = "invalid reading id"
	MsgDegraded       = "service degraded"
)

var translations = map[language.Tag]map[string]string{
	language.Hindi: {
		MsgInternal:       "आंतरिक सर्वर त्रुटि",
		MsgUnauthorized:   "अनधिकृत",
		MsgValidation:     "सत्यापन विफल",
		MsgForbidden:      "निषिद्ध",
		MsgNotFound:       "नहीं मिला",
		MsgConflict:       "रीडिंग अब लंबित नहीं है",
		MsgInvalidBody:    "अमान्य अनुरोध",
		MsgInvalidLimit:   "सीमा एक धनात्मक पूर्णांक होनी चाहिए",
		MsgInvalidReading: "अमान्य रीडिंग आईडी",
		MsgDegraded:       "सेवा बाधित है",
	},
	language.Marathi: {
		MsgInternal:       "अंतर्गत सर्व्हर त्रुटी",
		MsgUnauthorized:   "अनधिकृत",
		MsgValidation:     "पडताळणी अयशस्वी",
		MsgForbidden:      "प्रतिबंधित",
		MsgNotFound:       "आढळले नाही",
		MsgConflict:       "रीडिंग आता प्रलंबित नाही",
		MsgInvalidBody:    "अवैध विनंती",
		MsgInvalidLimit:   "मर्यादा धन पूर्णांक असणे आवश्यक आहे",
		MsgInvalidReading: "अवैध रीडिंग आयडी",
		MsgDegraded:       "सेवा विस्कळीत आहे",
	},
}

var messages = buildCatalog()

func buildCatalog() catalog.Catalog {
	b := catalog.NewBuilder(catalog.Fallback(language.English))
	for tag, entries := range translations {
		for key, msg := range entries {
			if err := b.SetString(tag, key, msg); err != nil {
				panic(err)
			}
		}
	}
	return b
}

// Text returns key translated for the locale, or key itself when there is no translation
func (l Locale) Text(key string) string {
	return message.NewPrinter(l.Tag, message.Catalog(messages)).Sprintf(key)
}
