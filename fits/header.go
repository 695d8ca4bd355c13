package fits

import (
	"fmt"
	"sort"
)

// Header is an ordered list of cards. Order and duplicate keywords are
// preserved, which matters for COMMENT and HISTORY stacks and for keeping a
// file byte-stable across a round trip.
type Header struct {
	Cards []Card
}

// Get returns the first card with the given keyword.
func (h *Header) Get(name string) (Card, bool) {
	for _, c := range h.Cards {
		if c.Name == name {
			return c, true
		}
	}
	return Card{}, false
}

// Value returns the value of the first card with the given keyword, or nil.
func (h *Header) Value(name string) any {
	c, ok := h.Get(name)
	if !ok {
		return nil
	}
	return c.Value
}

// Int returns the keyword's value as an int64.
func (h *Header) Int(name string) (int64, bool) {
	switch v := h.Value(name).(type) {
	case int64:
		return v, true
	case int:
		return int64(v), true
	case float64:
		return int64(v), true
	}
	return 0, false
}

// Float returns the keyword's value as a float64.
func (h *Header) Float(name string) (float64, bool) {
	switch v := h.Value(name).(type) {
	case float64:
		return v, true
	case int64:
		return float64(v), true
	case int:
		return float64(v), true
	}
	return 0, false
}

// Str returns the keyword's value as a string.
func (h *Header) Str(name string) (string, bool) {
	v, ok := h.Value(name).(string)
	return v, ok
}

// Bool returns the keyword's value as a bool.
func (h *Header) Bool(name string) (bool, bool) {
	v, ok := h.Value(name).(bool)
	return v, ok
}

// Set replaces the value and comment of the first card with the given
// keyword, or appends a new card.
func (h *Header) Set(name string, value any, comment string) {
	for i, c := range h.Cards {
		if c.Name == name {
			h.Cards[i].Value = value
			h.Cards[i].Comment = comment
			return
		}
	}
	h.Append(name, value, comment)
}

// Append adds a card at the end, keeping any existing cards with the same
// keyword.
func (h *Header) Append(name string, value any, comment string) {
	h.Cards = append(h.Cards, Card{Name: name, Value: value, Comment: comment})
}

// Remove deletes every card with the given keyword.
func (h *Header) Remove(name string) {
	out := h.Cards[:0]
	for _, c := range h.Cards {
		if c.Name != name {
			out = append(out, c)
		}
	}
	h.Cards = out
}

// AddComment appends COMMENT cards, splitting long text across records.
func (h *Header) AddComment(text string) {
	h.addCommentary("COMMENT", text)
}

// AddHistory appends HISTORY cards, splitting long text across records.
func (h *Header) AddHistory(text string) {
	h.addCommentary("HISTORY", text)
}

func (h *Header) addCommentary(name, text string) {
	const width = cardLen - keywordLen
	for len(text) > width {
		h.Cards = append(h.Cards, Card{Name: name, Comment: text[:width]})
		text = text[width:]
	}
	h.Cards = append(h.Cards, Card{Name: name, Comment: text})
}

// Map flattens the header into keyword/value pairs, skipping commentary
// cards. The first occurrence of a duplicated keyword wins.
func (h *Header) Map() map[string]any {
	m := make(map[string]any, len(h.Cards))
	for _, c := range h.Cards {
		if isCommentary(c.Name) {
			continue
		}
		if _, ok := m[c.Name]; !ok {
			m[c.Name] = c.Value
		}
	}
	return m
}

// HeaderFromMap builds a header from keyword/value pairs in sorted keyword
// order, so the result is deterministic.
func HeaderFromMap(m map[string]any) (Header, error) {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	var h Header
	for _, name := range names {
		switch v := m[name].(type) {
		case nil, bool, int, int64, float64, string:
			h.Append(name, v, "")
		default:
			return Header{}, fmt.Errorf("unsupported value type %T for keyword %q", m[name], name)
		}
	}
	return h, nil
}
