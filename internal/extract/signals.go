package extract

import (
	"regexp"
	"strings"
)

var stopwords = map[string]bool{
	"the": true, "and": true, "for": true, "that": true, "this": true,
	"with": true, "was": true, "are": true, "not": true, "but": true,
	"have": true, "has": true, "had": true, "from": true, "into": true,
	"when": true, "then": true, "than": true, "its": true, "it's": true,
	"use": true, "using": true, "used": true, "about": true, "because": true,
	"since": true, "should": true, "would": true, "could": true, "will": true,
	"just": true, "some": true, "out": true, "our": true, "all": true,
	"can": true, "got": true, "get": true, "were": true, "been": true,
	"more": true, "very": true, "too": true, "also": true, "still": true,
}

var wordRe = regexp.MustCompile(`[A-Za-z0-9_./-]+`)

// Keywords picks up to max salient lowercase tokens from text, preserving
// order of first occurrence.
func Keywords(text string, max int) []string {
	var out []string
	seen := map[string]bool{}
	for _, w := range wordRe.FindAllString(strings.ToLower(text), -1) {
		w = strings.Trim(w, "./-")
		if len(w) < 3 || stopwords[w] || seen[w] {
			continue
		}
		seen[w] = true
		out = append(out, w)
		if max > 0 && len(out) >= max {
			break
		}
	}
	return out
}

var reasoningRe = regexp.MustCompile(`(?i)\b(because|since|due to|as it|reason(?:ing)?:?)\b`)

// HasReasoning reports whether text states why, not just what. Rejections
// without reasoning carry no preventive value and are not promoted.
func HasReasoning(text string) bool {
	return reasoningRe.MatchString(text)
}

var (
	pathRe  = regexp.MustCompile(`\b[\w.-]+/[\w./-]+\b|\b\w[\w-]*\.(go|py|js|ts|tsx|rs|rb|java|sql|sh|yml|yaml|json|toml|md|proto)\b`)
	identRe = regexp.MustCompile(`\b[a-z]+[A-Z]\w*\b|\b\w+_\w+\b`)
	codeRe  = regexp.MustCompile("`[^`]+`")
	techRe  = regexp.MustCompile(`(?i)\b(api|sql|sqlite|postgres|mysql|redis|docker|kubernetes|http|https|grpc|json|yaml|regex|cache|goroutine|mutex|react|vue|django|flask|rails|git|ci|cli|tls|jwt|oauth|websocket|kafka|queue|index|migration|schema|endpoint|middleware|compiler|linter)\b`)
)

// HasTechnicalSignal reports whether text names something concretely
// technical: a path-like token, a code span, an identifier, or a known
// technology. Generic narrative has none of these.
func HasTechnicalSignal(text string) bool {
	return pathRe.MatchString(text) ||
		codeRe.MatchString(text) ||
		identRe.MatchString(text) ||
		techRe.MatchString(text)
}
