package matching

import (
	"encoding/json"
	"regexp"
	"strings"
)

// parser tries to read a skill list out of a raw extractor reply.
type parser struct {
	name  string
	parse func(raw string) ([]string, bool)
}

var (
	parsers = []parser{
		{name: "json_array", parse: parseJSONArray},
		{name: "json_object", parse: parseJSONObject},
		{name: "fenced", parse: parseFenced},
		{name: "list", parse: parseList},
	}

	bulletRe = regexp.MustCompile(`^\s*(?:[-*•]+|\d+[.)])\s*`)
	fenceRe  = regexp.MustCompile("(?s)```[a-zA-Z]*\\s*(.*?)```")
)

// ParseRequirements reads a skill list from an extractor reply. Formats are tried
// in order and the first one producing a usable item wins. It never fails:
// unreadable input gives an empty list.
func ParseRequirements(raw string) []string {
	skills, _ := parseWith(parsers, raw)
	return skills
}

func parseWith(list []parser, raw string) ([]string, string) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return []string{}, ""
	}

	for _, p := range list {
		items, ok := p.parse(raw)
		if !ok {
			continue
		}
		items = cleanItems(items)
		if usable(items) {
			return items, p.name
		}
	}

	return []string{}, ""
}

func usable(items []string) bool {
	for _, item := range items {
		if len([]rune(item)) > 2 {
			return true
		}
	}
	return false
}

func cleanItems(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		item = strings.TrimSpace(item)
		item = strings.Trim(item, "\"'`")
		item = strings.TrimSpace(item)
		if item != "" {
			out = append(out, item)
		}
	}
	return out
}

func parseJSONArray(raw string) ([]string, bool) {
	if !strings.HasPrefix(raw, "[") {
		return nil, false
	}

	var values []any
	if err := json.Unmarshal([]byte(raw), &values); err != nil {
		return nil, false
	}
	return coerceStrings(values), true
}

func parseJSONObject(raw string) ([]string, bool) {
	if !strings.HasPrefix(raw, "{") {
		return nil, false
	}

	var data map[string]any
	if err := json.Unmarshal([]byte(raw), &data); err != nil {
		return nil, false
	}

	for _, key := range []string{"skills", "required_skills", "requirements"} {
		if values, ok := data[key].([]any); ok {
			return coerceStrings(values), true
		}
	}
	return nil, false
}

func parseFenced(raw string) ([]string, bool) {
	m := fenceRe.FindStringSubmatch(raw)
	if m == nil {
		return nil, false
	}

	items, name := parseWith([]parser{
		{name: "json_array", parse: parseJSONArray},
		{name: "json_object", parse: parseJSONObject},
		{name: "list", parse: parseList},
	}, m[1])
	return items, name != ""
}

func parseList(raw string) ([]string, bool) {
	var out []string
	for _, line := range strings.Split(raw, "\n") {
		line = bulletRe.ReplaceAllString(line, "")
		if strings.HasPrefix(strings.TrimSpace(line), "```") {
			continue
		}
		for _, part := range strings.FieldsFunc(line, func(r rune) bool { return r == ',' || r == ';' }) {
			out = append(out, strings.Trim(strings.TrimSpace(part), "[]"))
		}
	}
	return out, len(out) > 0
}

func coerceStrings(values []any) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		switch val := v.(type) {
		case string:
			out = append(out, val)
		case map[string]any:
			if name, ok := val["name"].(string); ok {
				out = append(out, name)
			}
		}
	}
	return out
}
