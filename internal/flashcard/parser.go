// Package flashcard turns highlight contexts into question and answer cards.
package flashcard

import (
	"regexp"
	"strings"
)

// QA is one question and answer pair read from model output.
type QA struct {
	Question string
	Answer   string
}

var (
	bulletPrefix = regexp.MustCompile(`^(?:[-*•]|\d+[.)])\s+`)
	labelLine    = regexp.MustCompile(`(?i)^(?:\*\*|__)?\s*(question|answer|q|a)\s*(?:\*\*|__)?\s*:\s*(?:\*\*|__)?\s*(.*)$`)
	blockEnd     = regexp.MustCompile(`^-{3,}$`)
)

type field int

const (
	fieldNone field = iota
	fieldQuestion
	fieldAnswer
)

// ParseCompletion reads Q:/A: blocks separated by --- lines. Labels are case
// insensitive and may be spelled out, bolded or bulleted. A field continues
// over the following non-blank lines; text outside a field is ignored. Blocks
// without both a question and an answer are dropped.
func ParseCompletion(text string) []QA {
	pairs, _ := parseBlocks(text)
	return pairs
}

// parseBlocks also reports how many started blocks were dropped as incomplete.
func parseBlocks(text string) ([]QA, int) {
	var (
		pairs    []QA
		dropped  int
		question []string
		answer   []string
	)
	current := fieldNone
	started := false

	flush := func() {
		if started {
			qa := QA{
				Question: strings.TrimSpace(strings.Join(question, "\n")),
				Answer:   strings.TrimSpace(strings.Join(answer, "\n")),
			}
			if qa.Question != "" && qa.Answer != "" {
				pairs = append(pairs, qa)
			} else {
				dropped++
			}
		}
		question, answer = nil, nil
		current = fieldNone
		started = false
	}

	for _, raw := range strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n") {
		line := strings.TrimSpace(raw)

		if line == "" {
			current = fieldNone
			continue
		}
		if blockEnd.MatchString(line) {
			flush()
			continue
		}

		if m := labelLine.FindStringSubmatch(bulletPrefix.ReplaceAllString(line, "")); m != nil {
			value := trimEmphasis(m[2])
			switch strings.ToLower(m[1]) {
			case "q", "question":
				if started {
					flush()
				}
				started = true
				current = fieldQuestion
				question = appendLine(question, value)
			case "a", "answer":
				started = true
				current = fieldAnswer
				answer = appendLine(answer, value)
			}
			continue
		}

		switch current {
		case fieldQuestion:
			question = append(question, line)
		case fieldAnswer:
			answer = append(answer, line)
		}
	}
	flush()

	return pairs, dropped
}

func appendLine(lines []string, value string) []string {
	if value == "" {
		return lines
	}
	return append(lines, value)
}

func trimEmphasis(s string) string {
	s = strings.TrimSpace(s)
	for _, marker := range []string{"**", "__"} {
		if strings.HasSuffix(s, marker) && !strings.HasPrefix(s, marker) {
			s = strings.TrimSpace(strings.TrimSuffix(s, marker))
		}
	}
	return s
}

// HasCards reports whether text holds at least one complete card.
func HasCards(text string) bool {
	return len(ParseCompletion(text)) > 0
}
