package oracle

import (
	"encoding/json"
	"strings"
)

// Result reports how a Decode attempt went. Raw always carries the original
// response so fallback branches can log it or feed it elsewhere.
type Result struct {
	OK  bool
	Raw string
}

// Decode extracts JSON from an oracle response into v. Models wrap JSON in
// markdown fences or surround it with prose more often than not, so Decode
// strips fences first and, when a direct unmarshal fails, rescues the
// outermost brace-to-brace span before giving up.
//
// A failed decode is not an error. Every call site has a documented
// fallback (discard the candidate, keyword-match the request, empty
// translation spec) and branches on the returned Result instead of
// propagating a parse failure upward.
func Decode(raw string, v interface{}) Result {
	cleaned := StripFences(raw)
	if json.Unmarshal([]byte(cleaned), v) == nil {
		return Result{OK: true, Raw: raw}
	}
	if span, ok := braceSpan(cleaned); ok {
		if json.Unmarshal([]byte(span), v) == nil {
			return Result{OK: true, Raw: raw}
		}
	}
	return Result{OK: false, Raw: raw}
}

// StripFences removes a surrounding markdown code fence, with or without a
// json language tag, and trims whitespace.
func StripFences(s string) string {
	t := strings.TrimSpace(s)
	if strings.HasPrefix(t, "```json") {
		t = t[len("```json"):]
	} else if strings.HasPrefix(t, "```") {
		t = t[len("```"):]
	}
	t = strings.TrimSpace(t)
	if strings.HasSuffix(t, "```") {
		t = t[:len(t)-len("```")]
	}
	return strings.TrimSpace(t)
}

// braceSpan cuts the substring from the first '{' to the last '}', the
// widest span that could hold a JSON object.
func braceSpan(s string) (string, bool) {
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start == -1 || end <= start {
		return "", false
	}
	return s[start : end+1], true
}
