package format

import (
	"regexp"
	"strings"
)

// LineKind classifies a line of rendered turn text for display.
type LineKind int

const (
	LineBody LineKind = iota
	LineTurn
	LineUser
	LineAssistant
	LineTool
	LineToolResult
)

// Line is one display line of a turn.
type Line struct {
	Kind LineKind
	Text string
	Tag  bool // an opening or closing block marker
}

var (
	openTag  = regexp.MustCompile(`^\[(turn:start[^\]]*|role:user|role:assistant|tool:[^\]]+|tool_result:[^\]]+)\]$`)
	closeTag = regexp.MustCompile(`^\[(turn|user|assistant|tool|tool_result):end\]$`)
)

// RenderTurnLines splits turn text into display lines, classifying the tag
// lines and wrapping body lines at wrapWidth.
func RenderTurnLines(turn string, wrapWidth int) []Line {
	if turn == "" {
		return nil
	}

	var lines []Line
	current := LineBody
	for _, raw := range strings.Split(turn, "\n") {
		switch {
		case closeTag.MatchString(raw):
			lines = append(lines, Line{Kind: tagKind(raw), Text: raw, Tag: true})
			current = LineBody
		case openTag.MatchString(raw):
			current = tagKind(raw)
			lines = append(lines, Line{Kind: current, Text: raw, Tag: true})
		case raw == "":
			lines = append(lines, Line{Kind: LineBody})
		default:
			for _, wrapped := range strings.Split(wrapBody(raw, wrapWidth), "\n") {
				lines = append(lines, Line{Kind: bodyKind(current), Text: wrapped})
			}
		}
	}
	return lines
}

func tagKind(tag string) LineKind {
	inner := strings.TrimSuffix(strings.TrimPrefix(tag, "["), "]")
	switch {
	case strings.HasPrefix(inner, "turn"):
		return LineTurn
	case strings.HasPrefix(inner, "role:user"), inner == "user:end":
		return LineUser
	case strings.HasPrefix(inner, "role:assistant"), inner == "assistant:end":
		return LineAssistant
	case strings.HasPrefix(inner, "tool_result"):
		return LineToolResult
	case strings.HasPrefix(inner, "tool"):
		return LineTool
	default:
		return LineBody
	}
}

// bodyKind keeps body lines inside a block tied to that block, except for
// turn markers which hold no body.
func bodyKind(block LineKind) LineKind {
	if block == LineTurn {
		return LineBody
	}
	return block
}

func wrapBody(text string, width int) string {
	if width <= 0 || len([]rune(text)) <= width {
		return text
	}

	words := strings.Fields(text)
	if len(words) == 0 {
		return ""
	}

	var lines []string
	current := words[0]
	for _, word := range words[1:] {
		if len([]rune(current))+1+len([]rune(word)) > width {
			lines = append(lines, current)
			current = word
		} else {
			current += " " + word
		}
	}
	lines = append(lines, current)

	return strings.Join(lines, "\n")
}
