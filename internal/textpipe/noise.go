package textpipe

import (
	"fmt"
	"regexp"
)

// Default noise classes, applied in order: bare URLs, email addresses,
// standalone page markers, and punctuation runs of six or more characters.
var defaultNoisePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?:https?://|www\.)\S+`),
	regexp.MustCompile(`[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}`),
	regexp.MustCompile(`第\s*\d+\s*页`),
	regexp.MustCompile(`[\p{P}\p{S}]{6,}`),
}

type noiseRemover struct {
	patterns []*regexp.Regexp
}

// newNoiseRemover compiles the custom patterns and appends them after the
// defaults, so user patterns extend the noise set rather than replace it.
func newNoiseRemover(custom []string) (*noiseRemover, error) {
	patterns := make([]*regexp.Regexp, 0, len(defaultNoisePatterns)+len(custom))
	patterns = append(patterns, defaultNoisePatterns...)
	for _, expr := range custom {
		re, err := regexp.Compile(expr)
		if err != nil {
			return nil, fmt.Errorf("invalid noise pattern %q: %w", expr, err)
		}
		patterns = append(patterns, re)
	}
	return &noiseRemover{patterns: patterns}, nil
}

// apply strips every pattern match from text and reports how many matches
// were removed in total.
func (n *noiseRemover) apply(text string) (string, int) {
	removed := 0
	for _, re := range n.patterns {
		text = re.ReplaceAllStringFunc(text, func(string) string {
			removed++
			return ""
		})
	}
	return text, removed
}
