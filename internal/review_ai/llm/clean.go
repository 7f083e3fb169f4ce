package llm

import (
	"encoding/json"
	"regexp"
	"strings"
)

var (
	fenceOpen  = regexp.MustCompile("^```[a-zA-Z0-9_-]*\\s*")
	fenceClose = regexp.MustCompile("\\s*```$")
)

// CleanText strips what models add around plain prose despite being told not
// to: a markdown code fence, a JSON object with a text field, or a JSON string.
func CleanText(s string) string {
	t := strings.TrimSpace(s)
	if strings.HasPrefix(t, "```") {
		t = fenceOpen.ReplaceAllString(t, "")
		t = fenceClose.ReplaceAllString(t, "")
		t = strings.TrimSpace(t)
	}

	switch {
	case strings.HasPrefix(t, "{") && strings.HasSuffix(t, "}"):
		var obj map[string]any
		if json.Unmarshal([]byte(t), &obj) == nil {
			for _, k := range []string{"summary", "text", "content", "suggestions"} {
				if v, ok := obj[k].(string); ok && strings.TrimSpace(v) != "" {
					return strings.TrimSpace(v)
				}
			}
		}
	case strings.HasPrefix(t, `"`) && strings.HasSuffix(t, `"`) && len(t) > 1:
		var str string
		if json.Unmarshal([]byte(t), &str) == nil {
			return strings.TrimSpace(str)
		}
	}
	return t
}
