package scanner

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// IgnoreFileName is the per-project ignore file read by LoadIgnoreRules.
const IgnoreFileName = ".scoutignore"

// defaultIgnores are always active and can be overridden by user
// negation rules.
var defaultIgnores = []string{
	".git/",
	".codescout/",
	"node_modules/",
	"vendor/",
	"dist/",
	"build/",
	"target/",
	"__pycache__/",
	"*.min.js",
}

type ignoreRule struct {
	pattern  string
	negated  bool
	dirOnly  bool
	anchored bool
}

// IgnoreRules applies gitignore-like rules with last-rule-wins
// semantics.
type IgnoreRules struct {
	rules []ignoreRule
}

// NewIgnoreRules builds rules from user-provided lines. Defaults are
// prepended so user rules take precedence.
func NewIgnoreRules(userRules []string) *IgnoreRules {
	all := make([]string, 0, len(defaultIgnores)+len(userRules))
	all = append(all, defaultIgnores...)
	all = append(all, userRules...)

	rules := make([]ignoreRule, 0, len(all))
	for _, line := range all {
		if parsed, ok := parseIgnoreRule(line); ok {
			rules = append(rules, parsed)
		}
	}
	return &IgnoreRules{rules: rules}
}

// LoadIgnoreRules reads root's ignore file, if any, on top of the
// defaults. A missing file is not an error.
func LoadIgnoreRules(root string) (*IgnoreRules, error) {
	content, err := os.ReadFile(filepath.Join(root, IgnoreFileName))
	if err != nil {
		if os.IsNotExist(err) {
			return NewIgnoreRules(nil), nil
		}
		return nil, err
	}
	return NewIgnoreRules(strings.Split(string(content), "\n")), nil
}

// Match reports whether relPath should be excluded.
func (r *IgnoreRules) Match(relPath string, isDir bool) bool {
	relPath = normalizeRelPath(relPath)
	ignored := false
	for _, rule := range r.rules {
		if ignoreRuleMatches(rule, relPath, isDir) {
			ignored = !rule.negated
		}
	}
	return ignored
}

// Filter removes ignored entries from absolute paths under root.
func (r *IgnoreRules) Filter(root string, paths []string) []string {
	kept := make([]string, 0, len(paths))
	for _, path := range paths {
		rel, err := filepath.Rel(root, path)
		if err != nil {
			rel = path
		}
		if !r.Match(rel, false) {
			kept = append(kept, path)
		}
	}
	return kept
}

func parseIgnoreRule(line string) (ignoreRule, bool) {
	line = strings.TrimSpace(line)
	if line == "" || strings.HasPrefix(line, "#") {
		return ignoreRule{}, false
	}

	parsed := ignoreRule{}
	if strings.HasPrefix(line, "!") {
		parsed.negated = true
		line = strings.TrimPrefix(line, "!")
	}
	if strings.HasPrefix(line, "/") {
		parsed.anchored = true
		line = strings.TrimPrefix(line, "/")
	}
	if strings.HasSuffix(line, "/") {
		parsed.dirOnly = true
		line = strings.TrimSuffix(line, "/")
	}

	line = normalizeRelPath(line)
	if line == "" {
		return ignoreRule{}, false
	}
	parsed.pattern = line
	return parsed, true
}

func ignoreRuleMatches(rule ignoreRule, relPath string, isDir bool) bool {
	if rule.dirOnly {
		return matchesDirRule(rule, relPath, isDir)
	}

	if rule.anchored {
		return globMatch(rule.pattern, relPath)
	}

	if strings.Contains(rule.pattern, "/") {
		if globMatch(rule.pattern, relPath) {
			return true
		}
		// An unanchored path pattern may match at any depth.
		parts := strings.Split(relPath, "/")
		for i := 1; i < len(parts); i++ {
			if globMatch(rule.pattern, strings.Join(parts[i:], "/")) {
				return true
			}
		}
		return false
	}

	for _, segment := range strings.Split(relPath, "/") {
		if globMatch(rule.pattern, segment) {
			return true
		}
	}
	return false
}

// matchesDirRule reports whether relPath is, or lives under, a
// directory matching the rule at any depth.
func matchesDirRule(rule ignoreRule, relPath string, isDir bool) bool {
	if rule.anchored {
		return relPath == rule.pattern || strings.HasPrefix(relPath, rule.pattern+"/")
	}
	parts := strings.Split(relPath, "/")
	n := len(parts)
	if !isDir {
		n-- // the leaf is a file; only its ancestors can match a directory rule
	}
	for i := 0; i < n; i++ {
		if globMatch(rule.pattern, parts[i]) {
			return true
		}
	}
	return false
}

func globMatch(pattern, value string) bool {
	ok, err := regexp.MatchString("^"+globToRegex(pattern)+"$", value)
	return err == nil && ok
}

func globToRegex(pattern string) string {
	var b strings.Builder
	for i := 0; i < len(pattern); i++ {
		ch := pattern[i]

		if ch == '*' {
			if i+1 < len(pattern) && pattern[i+1] == '*' {
				b.WriteString(".*")
				i++
				continue
			}
			b.WriteString("[^/]*")
			continue
		}
		if ch == '?' {
			b.WriteString("[^/]")
			continue
		}
		if strings.ContainsRune(`.+()|[]{}^$\\`, rune(ch)) {
			b.WriteByte('\\')
		}
		b.WriteByte(ch)
	}
	return b.String()
}

func normalizeRelPath(path string) string {
	path = filepath.ToSlash(path)
	path = strings.TrimPrefix(path, "./")
	path = strings.TrimPrefix(path, "/")
	return path
}
