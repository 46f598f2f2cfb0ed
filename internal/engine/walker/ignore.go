package walker

import (
	"bufio"
	"bytes"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/gobwas/glob"
)

const (
	GitignoreFile   = ".gitignore"
	DriftignoreFile = ".driftignore"
)

// DefaultIgnorePatterns are applied before any user or file rules, so a
// negation in an ignore file can still re-include them.
var DefaultIgnorePatterns = []string{
	".git/",
	"node_modules/",
	".drift/",
}

// Rule is one compiled gitignore-style pattern.
type Rule struct {
	Pattern  string
	Negated  bool
	DirOnly  bool
	Anchored bool
	// Base is the slash-separated directory (relative to the walk root) whose
	// ignore file declared the rule; empty for root and option rules.
	Base   string
	Source string

	globs []glob.Glob
}

// ParseRule compiles a single ignore line. ok is false for blank and comment
// lines.
func ParseRule(line, base, source string) (rule Rule, ok bool, err error) {
	line = strings.TrimSpace(line)
	if line == "" || strings.HasPrefix(line, "#") {
		return Rule{}, false, nil
	}

	rule = Rule{Base: strings.Trim(base, "/"), Source: source}
	if strings.HasPrefix(line, "!") {
		rule.Negated = true
		line = line[1:]
	}
	if strings.HasSuffix(line, "/") {
		rule.DirOnly = true
		line = strings.TrimRight(line, "/")
	}
	if strings.HasPrefix(line, "/") {
		rule.Anchored = true
		line = strings.TrimLeft(line, "/")
	}
	if strings.Contains(line, "/") {
		rule.Anchored = true
	}
	if line == "" {
		return Rule{}, false, nil
	}
	rule.Pattern = line

	for _, variant := range expandDoubleStar(escapeBraces(line)) {
		g, err := glob.Compile(variant, '/')
		if err != nil {
			return Rule{}, false, fmt.Errorf("invalid ignore pattern %q: %w", line, err)
		}
		rule.globs = append(rule.globs, g)
	}
	return rule, true, nil
}

// Matches reports whether the rule applies to relPath, a slash-separated path
// relative to the walk root.
func (r *Rule) Matches(relPath string, isDir bool) bool {
	if r.DirOnly && !isDir {
		return false
	}

	target := relPath
	if r.Base != "" {
		if !strings.HasPrefix(relPath, r.Base+"/") {
			return false
		}
		target = relPath[len(r.Base)+1:]
	}
	if !r.Anchored {
		target = path.Base(target)
	}

	for _, g := range r.globs {
		if g.Match(target) {
			return true
		}
	}
	return false
}

// RuleSet is an ordered, immutable list of rules. Later rules take precedence.
type RuleSet struct {
	rules []Rule
}

func NewRuleSet(rules ...Rule) *RuleSet {
	return &RuleSet{rules: append([]Rule(nil), rules...)}
}

// With returns a new set with rules appended after the receiver's rules. The
// receiver is left untouched so sibling directories can share it.
func (rs *RuleSet) With(rules []Rule) *RuleSet {
	if len(rules) == 0 {
		return rs
	}
	next := make([]Rule, 0, rs.Len()+len(rules))
	if rs != nil {
		next = append(next, rs.rules...)
	}
	next = append(next, rules...)
	return &RuleSet{rules: next}
}

func (rs *RuleSet) Len() int {
	if rs == nil {
		return 0
	}
	return len(rs.rules)
}

// Excluded reports whether the last rule matching relPath is a positive one.
func (rs *RuleSet) Excluded(relPath string, isDir bool) bool {
	if rs == nil {
		return false
	}
	for i := len(rs.rules) - 1; i >= 0; i-- {
		if rs.rules[i].Matches(relPath, isDir) {
			return !rs.rules[i].Negated
		}
	}
	return false
}

// ParseRules compiles every line of an ignore file body.
func ParseRules(content []byte, base, source string) ([]Rule, error) {
	var rules []Rule
	scanner := bufio.NewScanner(bytes.NewReader(content))
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		rule, ok, err := ParseRule(scanner.Text(), base, source)
		if err != nil {
			return rules, fmt.Errorf("%s:%d: %w", source, lineNo, err)
		}
		if ok {
			rules = append(rules, rule)
		}
	}
	return rules, scanner.Err()
}

// PatternRules compiles option-supplied patterns anchored at the walk root.
func PatternRules(patterns []string, source string) ([]Rule, error) {
	rules := make([]Rule, 0, len(patterns))
	for _, p := range patterns {
		rule, ok, err := ParseRule(p, "", source)
		if err != nil {
			return nil, err
		}
		if ok {
			rules = append(rules, rule)
		}
	}
	return rules, nil
}

// loadIgnoreFile reads dir/name. A missing file yields no rules and no error.
func loadIgnoreFile(dir, name, base string) ([]Rule, error) {
	full := filepath.Join(dir, name)
	content, err := os.ReadFile(full)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	return ParseRules(content, base, full)
}

// expandDoubleStar returns pattern plus every variant with one or more "**/"
// segments removed, since gitignore lets "**/" match zero directories.
func expandDoubleStar(pattern string) []string {
	idx := strings.Index(pattern, "**/")
	if idx < 0 || (idx > 0 && pattern[idx-1] != '/') {
		return []string{pattern}
	}
	head := pattern[:idx]
	var out []string
	for _, tail := range expandDoubleStar(pattern[idx+3:]) {
		out = append(out, head+"**/"+tail, head+tail)
	}
	return out
}

// escapeBraces quotes '{' and '}', which gitignore treats literally.
func escapeBraces(pattern string) string {
	if !strings.ContainsAny(pattern, "{}") {
		return pattern
	}
	var b strings.Builder
	for i := 0; i < len(pattern); i++ {
		ch := pattern[i]
		if ch == '\\' && i+1 < len(pattern) {
			b.WriteByte(ch)
			b.WriteByte(pattern[i+1])
			i++
			continue
		}
		if ch == '{' || ch == '}' {
			b.WriteByte('\\')
		}
		b.WriteByte(ch)
	}
	return b.String()
}
