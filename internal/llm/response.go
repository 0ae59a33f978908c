package llm

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"
)

var codeFence = regexp.MustCompile("(?s)^```(?:json)?\\s*(.*?)\\s*```$")

// ParseResponse extracts the id to translated text mapping from a service
// response. Code fences and prose around the JSON object are tolerated.
// Entries without an id or text are skipped.
func ParseResponse(content string) (map[int]string, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, ErrEmptyResponse
	}
	if m := codeFence.FindStringSubmatch(content); len(m) > 1 {
		content = m[1]
	}
	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start < 0 || end <= start {
		return nil, fmt.Errorf("%w: no JSON object in %q", ErrMalformedResponse, truncate(content, 200))
	}
	content = content[start : end+1]

	if !gjson.Valid(content) {
		return nil, fmt.Errorf("%w: invalid JSON in %q", ErrMalformedResponse, truncate(content, 200))
	}
	list := gjson.Get(content, "translations")
	if !list.IsArray() {
		return nil, fmt.Errorf("%w: missing translations array", ErrMalformedResponse)
	}

	out := make(map[int]string)
	list.ForEach(func(_, item gjson.Result) bool {
		id, ok := itemID(item.Get("id"))
		if !ok {
			return true
		}
		text := item.Get("translated_text")
		if !text.Exists() {
			text = item.Get("text")
		}
		if !text.Exists() || text.Type != gjson.String {
			return true
		}
		out[id] = text.String()
		return true
	})
	return out, nil
}

// itemID accepts numeric ids and numeric strings.
func itemID(v gjson.Result) (int, bool) {
	switch v.Type {
	case gjson.Number:
		return int(v.Int()), true
	case gjson.String:
		n, err := strconv.Atoi(strings.TrimSpace(v.Str))
		return n, err == nil
	default:
		return 0, false
	}
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
