package query

import (
	"path/filepath"
	"regexp"
	"strings"

	"github.com/agentstation/aigo/pkg/errors"
)

// pattern matches ids by glob or, with the "re:" prefix, by regular
// expression. Both are case-insensitive; ids are lowercase slugs.
type pattern struct {
	glob string
	re   *regexp.Regexp
}

func compilePattern(expr string) (*pattern, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return nil, nil
	}
	if rest, ok := strings.CutPrefix(expr, "re:"); ok {
		re, err := regexp.Compile("(?i)" + rest)
		if err != nil {
			return nil, errors.NewValidationError("id_pattern", expr, "invalid regular expression: "+err.Error())
		}
		return &pattern{re: re}, nil
	}
	glob := strings.ToLower(expr)
	if _, err := filepath.Match(glob, ""); err != nil {
		return nil, errors.NewValidationError("id_pattern", expr, "invalid glob: "+err.Error())
	}
	return &pattern{glob: glob}, nil
}

func (p *pattern) match(id string) bool {
	if p.re != nil {
		return p.re.MatchString(id)
	}
	ok, _ := filepath.Match(p.glob, strings.ToLower(id))
	return ok
}
