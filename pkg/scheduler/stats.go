package scheduler

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// ErrNoStats is returned when the generator output carries no stats line.
var ErrNoStats = errors.New("no stats found in scheduler output")

var statsPattern = regexp.MustCompile(`Returned stats:\s*(\{.*\})`)

// ParseStats extracts the dictionary printed after "Returned stats:" on the first
// matching line. The generator prints Python literals, so single quotes and the
// True/False/None keywords are mapped to JSON before decoding.
func ParseStats(stdout string) (map[string]interface{}, error) {
	for _, line := range strings.Split(stdout, "\n") {
		match := statsPattern.FindStringSubmatch(line)
		if match == nil {
			continue
		}
		payload := pythonToJSON(strings.ReplaceAll(match[1], "'", `"`))
		var stats map[string]interface{}
		if err := json.Unmarshal([]byte(payload), &stats); err != nil {
			return nil, fmt.Errorf("decode scheduler stats: %w", err)
		}
		return stats, nil
	}
	return nil, ErrNoStats
}

var pythonLiterals = map[string]string{"True": "true", "False": "false", "None": "null"}

func pythonToJSON(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	inString := false
	for i := 0; i < len(s); i++ {
		c := s[i]
		if inString {
			b.WriteByte(c)
			switch c {
			case '\\':
				if i+1 < len(s) {
					i++
					b.WriteByte(s[i])
				}
			case '"':
				inString = false
			}
			continue
		}
		if c == '"' {
			inString = true
			b.WriteByte(c)
			continue
		}
		if isIdentStart(c) {
			j := i
			for j < len(s) && isIdentPart(s[j]) {
				j++
			}
			word := s[i:j]
			if lit, ok := pythonLiterals[word]; ok {
				word = lit
			}
			b.WriteString(word)
			i = j - 1
			continue
		}
		b.WriteByte(c)
	}
	return b.String()
}

func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentPart(c byte) bool {
	return isIdentStart(c) || (c >= '0' && c <= '9')
}
