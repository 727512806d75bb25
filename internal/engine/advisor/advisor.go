// Package advisor turns event context into a mission suggestion through an external text generator.
package advisor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// Advisor generates free text for a prompt. Implementations make a single
// blocking call and honor ctx cancellation.
type Advisor interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Func adapts a plain function to Advisor.
type Func func(ctx context.Context, prompt string) (string, error)

func (f Func) Generate(ctx context.Context, prompt string) (string, error) {
	return f(ctx, prompt)
}

// ErrDisabled is returned by Disabled.
var ErrDisabled = errors.New("mission advisor is disabled")

// Disabled is the advisor used when no provider is configured.
type Disabled struct{}

func (Disabled) Generate(context.Context, string) (string, error) {
	return "", ErrDisabled
}

// Suggestion is the mission proposed by the generator.
type Suggestion struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

// EventContext is what the prompt knows about an event.
type EventContext struct {
	Title       string
	Description string
	Location    string
	Date        string
	Members     []string
}

// BuildPrompt asks for exactly one mission as a strict JSON object.
func BuildPrompt(ev EventContext) string {
	var b strings.Builder
	b.WriteString("You are helping an event organizer plan staff work.\n")
	fmt.Fprintf(&b, "Event: %s\n", ev.Title)
	if ev.Description != "" {
		fmt.Fprintf(&b, "Details: %s\n", ev.Description)
	}
	if ev.Location != "" {
		fmt.Fprintf(&b, "Location: %s\n", ev.Location)
	}
	if ev.Date != "" {
		fmt.Fprintf(&b, "Date: %s\n", ev.Date)
	}
	if len(ev.Members) > 0 {
		fmt.Fprintf(&b, "Team members: %s\n", strings.Join(ev.Members, ", "))
	} else {
		b.WriteString("Team members: none listed\n")
	}
	b.WriteString("Suggest exactly one mission the team should carry out for this event.\n")
	b.WriteString(`Reply with strict JSON only, no prose, in the form {"title": "...", "description": "..."}.`)
	return b.String()
}

// ExtractJSON returns the first balanced {...} object in raw. Braces inside
// JSON strings are ignored.
func ExtractJSON(raw string) (string, bool) {
	start := strings.IndexByte(raw, '{')
	if start < 0 {
		return "", false
	}
	depth := 0
	inString, escaped := false, false
	for i := start; i < len(raw); i++ {
		c := raw[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return raw[start : i+1], true
			}
		}
	}
	return "", false
}

// ParseSuggestion extracts and decodes the suggestion embedded in a raw response.
func ParseSuggestion(raw string) (Suggestion, error) {
	obj, ok := ExtractJSON(raw)
	if !ok {
		return Suggestion{}, errors.New("no JSON object in response")
	}
	var s Suggestion
	if err := json.Unmarshal([]byte(obj), &s); err != nil {
		return Suggestion{}, fmt.Errorf("decode suggestion: %w", err)
	}
	s.Title = strings.TrimSpace(s.Title)
	s.Description = strings.TrimSpace(s.Description)
	if s.Title == "" {
		return Suggestion{}, errors.New("suggestion has no title")
	}
	return s, nil
}
