package command

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

const (
	DefaultCount    = 10
	DefaultKeyword  = "python developer"
	DefaultLocation = "germany"
	MaxCount        = 50
)

// DefaultLocations are the location words recognized at the end of a command.
var DefaultLocations = []string{"germany", "berlin", "munich", "hamburg", "remote", "de"}

// filler words are dropped from the keyword part.
var filler = map[string]struct{}{
	"find": {}, "search": {}, "get": {}, "me": {}, "jobs": {}, "job": {}, "in": {}, "for": {}, "please": {},
}

// Command is a parsed request for a bounded intake run.
type Command struct {
	Count    int
	Keyword  string
	Location string
}

// Queries returns the search queries seeded by the command.
func (c Command) Queries() []string {
	return []string{
		fmt.Sprintf("%s %s", c.Keyword, c.Location),
		fmt.Sprintf("%s remote", c.Keyword),
		fmt.Sprintf("senior %s", c.Keyword),
	}
}

func (c Command) String() string {
	return fmt.Sprintf("%d %s %s", c.Count, c.Keyword, c.Location)
}

// Parser reads commands of the form "<count> <keyword...> <location>".
type Parser struct {
	Locations       []string
	DefaultLocation string
	MaxCount        int
}

// Parse uses the default parser.
func Parse(text string) (Command, bool) {
	return Parser{}.Parse(text)
}

// Parse extracts a command from free text. Missing parts fall back to
// defaults. ok is false when the text does not contain a count, so plain
// chat messages are not mistaken for commands.
func (p Parser) Parse(text string) (Command, bool) {
	locations := p.Locations
	if len(locations) == 0 {
		locations = DefaultLocations
	}
	defaultLocation := strings.ToLower(strings.TrimSpace(p.DefaultLocation))
	if defaultLocation == "" {
		defaultLocation = DefaultLocation
	}
	maxCount := p.MaxCount
	if maxCount <= 0 {
		maxCount = MaxCount
	}

	tokens := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return unicode.IsSpace(r) || (unicode.IsPunct(r) && r != '-' && r != '+' && r != '#' && r != '.')
	})

	cmd := Command{Count: DefaultCount, Location: defaultLocation}
	hasCount := false

	words := make([]string, 0, len(tokens))
	for _, token := range tokens {
		token = strings.Trim(token, ".")
		if token == "" {
			continue
		}
		if n, err := strconv.Atoi(token); err == nil {
			if !hasCount && n > 0 {
				cmd.Count = n
				hasCount = true
			}
			continue
		}
		words = append(words, token)
	}

	if cmd.Count > maxCount {
		cmd.Count = maxCount
	}

	if n := len(words); n > 0 && contains(locations, words[n-1]) {
		cmd.Location = words[n-1]
		words = words[:n-1]
	}

	keywords := make([]string, 0, len(words))
	for _, w := range words {
		if _, ok := filler[w]; ok {
			continue
		}
		keywords = append(keywords, w)
	}

	cmd.Keyword = strings.Join(keywords, " ")
	if cmd.Keyword == "" {
		cmd.Keyword = DefaultKeyword
	}

	return cmd, hasCount
}

func contains(list []string, s string) bool {
	for _, item := range list {
		if strings.EqualFold(strings.TrimSpace(item), s) {
			return true
		}
	}
	return false
}
