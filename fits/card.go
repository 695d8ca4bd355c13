package fits

import (
	"fmt"
	"strconv"
	"strings"
)

const (
	cardLen    = 80
	keywordLen = 8
	blockLen   = 2880
)

// Card is one 80-character header record. Value is nil, bool, int, int64,
// float64, or string. Commentary keywords (COMMENT, HISTORY, and blank)
// carry their text in Comment with a nil Value.
type Card struct {
	Name    string
	Value   any
	Comment string
}

func isCommentary(name string) bool {
	return name == "" || name == "COMMENT" || name == "HISTORY"
}

// image renders the card as a fixed-format 80-character record.
func (c Card) image() (string, error) {
	name := strings.ToUpper(strings.TrimSpace(c.Name))
	if len(name) > keywordLen {
		return "", fmt.Errorf("keyword %q longer than %d characters", name, keywordLen)
	}
	if isCommentary(name) {
		img := fmt.Sprintf("%-8s%s", name, c.Comment)
		if len(img) > cardLen {
			return "", fmt.Errorf("commentary card %q too long", name)
		}
		return img + strings.Repeat(" ", cardLen-len(img)), nil
	}

	var val string
	switch v := c.Value.(type) {
	case nil:
		val = strings.Repeat(" ", 20)
	case bool:
		s := "F"
		if v {
			s = "T"
		}
		val = fmt.Sprintf("%20s", s)
	case int:
		val = fmt.Sprintf("%20d", v)
	case int64:
		val = fmt.Sprintf("%20d", v)
	case float64:
		val = fmt.Sprintf("%20s", formatFloat(v))
	case string:
		q := "'" + strings.ReplaceAll(v, "'", "''")
		// closing quote lands at column 20 or later
		for len(q) < 9 {
			q += " "
		}
		q += "'"
		if len(q) > cardLen-10 {
			return "", fmt.Errorf("string value of %q too long", name)
		}
		val = fmt.Sprintf("%-20s", q)
	default:
		return "", fmt.Errorf("unsupported value type %T for keyword %q", c.Value, name)
	}

	img := fmt.Sprintf("%-8s= %s", name, val)
	if c.Comment != "" && len(img)+3 < cardLen {
		img += " / " + c.Comment
	}
	if len(img) > cardLen {
		img = img[:cardLen] // comments get truncated, values never reach here
	}
	return img + strings.Repeat(" ", cardLen-len(img)), nil
}

// formatFloat renders v so it re-parses as a float: a bare integer mantissa
// gets a trailing ".0".
func formatFloat(v float64) string {
	s := strconv.FormatFloat(v, 'G', -1, 64)
	if !strings.ContainsAny(s, ".EI") { // Inf/NaN never appear in valid headers
		s += ".0"
	}
	return s
}

// parseCard interprets one 80-character record. The parse is tolerant:
// unrecognized value syntax comes back as the raw string.
func parseCard(image string) Card {
	name := strings.TrimRight(image[:keywordLen], " ")
	rest := image[keywordLen:]
	if isCommentary(name) || !strings.HasPrefix(rest, "= ") {
		return Card{Name: name, Comment: strings.TrimRight(rest, " ")}
	}
	valStr, comment := splitValueComment(rest[2:])
	return Card{Name: name, Value: parseValue(valStr), Comment: comment}
}

// splitValueComment splits a card body at the first '/' that is outside a
// quoted string.
func splitValueComment(s string) (string, string) {
	inStr := false
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '\'':
			inStr = !inStr
		case '/':
			if !inStr {
				return strings.TrimSpace(s[:i]), strings.TrimSpace(s[i+1:])
			}
		}
	}
	return strings.TrimSpace(s), ""
}

func parseValue(s string) any {
	if s == "" {
		return nil
	}
	if s[0] == '\'' {
		// quoted string, '' escapes a quote, trailing blanks insignificant
		var sb strings.Builder
		for i := 1; i < len(s); i++ {
			if s[i] != '\'' {
				sb.WriteByte(s[i])
				continue
			}
			if i+1 < len(s) && s[i+1] == '\'' {
				sb.WriteByte('\'')
				i++
				continue
			}
			break
		}
		return strings.TrimRight(sb.String(), " ")
	}
	switch s {
	case "T":
		return true
	case "F":
		return false
	}
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return i
	}
	fs := strings.NewReplacer("D", "E", "d", "e").Replace(s)
	if f, err := strconv.ParseFloat(fs, 64); err == nil {
		return f
	}
	return s
}
