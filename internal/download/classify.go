package download

import "strings"

// Classified messages
const (
	MsgAuthRequired = "authorization required"
	MsgUnavailable  = "video unavailable"
	MsgPrivate      = "private video"
	MsgCookieStore  = "cookie store error"
	MsgPathPrefix   = "path error: "
	MsgGeoBlocked   = "video blocked in region"
)

// Truncation limits, in runes
const (
	pathDetailLimit = 50
	rawMessageLimit = 100
)

// rule maps a raw extractor error text to a user-facing message
type rule struct {
	name    string
	match   func(raw, lower string) bool
	message func(raw string) string
}

func fixed(msg string) func(string) string {
	return func(string) string { return msg }
}

// rules is evaluated top to bottom, the first match wins
var rules = []rule{
	{
		name:    "auth",
		match:   func(raw, lower string) bool { return strings.Contains(raw, "Sign in") || strings.Contains(lower, "login") },
		message: fixed(MsgAuthRequired),
	},
	{
		name:    "unavailable",
		match:   func(_, lower string) bool { return strings.Contains(lower, "unavailable") },
		message: fixed(MsgUnavailable),
	},
	{
		name:    "private",
		match:   func(_, lower string) bool { return strings.Contains(lower, "private") },
		message: fixed(MsgPrivate),
	},
	{
		name:    "cookie",
		match:   func(_, lower string) bool { return strings.Contains(lower, "cookie") },
		message: fixed(MsgCookieStore),
	},
	{
		name:    "path",
		match:   func(raw, lower string) bool { return strings.Contains(raw, "No such file") || strings.Contains(lower, "path") },
		message: func(raw string) string { return MsgPathPrefix + truncateRunes(raw, pathDetailLimit) },
	},
	{
		name:    "geo",
		match:   func(_, lower string) bool { return strings.Contains(lower, "blocked") || strings.Contains(lower, "geo") },
		message: fixed(MsgGeoBlocked),
	},
}

// Classify turns raw extractor error text into the message shown for an item
func Classify(raw string) string {
	lower := strings.ToLower(raw)
	for _, r := range rules {
		if r.match(raw, lower) {
			return r.message(raw)
		}
	}
	return truncateRunes(raw, rawMessageLimit)
}

// ClassifyError classifies err.Error()
func ClassifyError(err error) string {
	if err == nil {
		return ""
	}
	return Classify(err.Error())
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
