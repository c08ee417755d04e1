package identity

import (
	"strings"
	"unicode"
)

// Slugify derives a canonical slug from a free-form model name.
//
// The name is lowercased, whitespace and separator punctuation (_ / : ,)
// become single hyphens, any other character outside [a-z0-9.-] is dropped,
// and repeated or leading/trailing hyphens are removed. Qualifiers such as
// "(high)" keep their text: "GPT-5  (high)" becomes "gpt-5-high".
func Slugify(name string) string {
	var b strings.Builder
	b.Grow(len(name))

	for _, r := range strings.ToLower(name) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '.', r == '-':
			b.WriteRune(r)
		case unicode.IsSpace(r), r == '_', r == '/', r == ':', r == ',':
			b.WriteByte('-')
		}
	}
	return tidy(b.String())
}

// NormalizeSlug cleans an explicitly supplied slug: lowercase and strip to
// [a-z0-9.-].
func NormalizeSlug(slug string) string {
	var b strings.Builder
	b.Grow(len(slug))

	for _, r := range strings.ToLower(slug) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '.' || r == '-' {
			b.WriteRune(r)
		}
	}
	return tidy(b.String())
}

// MatchKey folds a name or slug for lookups. Dots compare equal to hyphens,
// so "Claude Opus 4.1", "claude-opus-4.1" and "claude-opus-4-1" share a key.
// Identities are never keyed this way; it only widens lookups.
func MatchKey(s string) string {
	return tidy(strings.ReplaceAll(Slugify(s), ".", "-"))
}

// tidy collapses hyphen runs and trims separators from both ends.
func tidy(s string) string {
	var b strings.Builder
	b.Grow(len(s))

	prevHyphen := false
	for _, r := range s {
		if r == '-' {
			if prevHyphen {
				continue
			}
			prevHyphen = true
		} else {
			prevHyphen = false
		}
		b.WriteRune(r)
	}
	return strings.Trim(b.String(), "-.")
}

// Tokens splits a slug into its hyphen-separated tokens.
func Tokens(slug string) []string {
	if slug == "" {
		return nil
	}
	return strings.Split(slug, "-")
}

// qualifiers distinguish model variants. Differing qualifier tokens block a
// fuzzy match so that e.g. "gpt-5" never absorbs "gpt-5-mini".
var qualifiers = map[string]bool{
	"high": true, "medium": true, "low": true, "minimal": true,
	"mini": true, "nano": true, "micro": true, "small": true, "large": true,
	"lite": true, "flash": true, "pro": true, "ultra": true, "max": true, "plus": true,
	"turbo": true, "preview": true, "exp": true, "experimental": true, "beta": true, "alpha": true,
	"thinking": true, "reasoning": true, "instruct": true, "chat": true, "code": true, "coder": true,
	"vision": true, "audio": true, "realtime": true, "search": true,
	"haiku": true, "sonnet": true, "opus": true,
}

// IsQualifier reports whether token distinguishes a model variant.
// Any token containing a digit (sizes, versions, dates) is a qualifier.
func IsQualifier(token string) bool {
	if qualifiers[token] {
		return true
	}
	return strings.ContainsAny(token, "0123456789")
}
