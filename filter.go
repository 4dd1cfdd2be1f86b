// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/arcwrap

package arcwrap

import (
	"fmt"

	"github.com/woozymasta/pathrules"
)

// entryMatcher holds compiled include/exclude rules for entry selection.
type entryMatcher struct {
	matcher *pathrules.Matcher
}

// newEntryMatcher compiles entry filter rules. Empty rules yield a nil
// matcher that selects every entry.
func newEntryMatcher(rules []pathrules.Rule, opts pathrules.MatcherOptions) (*entryMatcher, error) {
	rules = normalizeFilterRules(rules)
	if len(rules) == 0 {
		return nil, nil
	}

	setDefaultFilterAction(&opts, rules)

	matcher, err := pathrules.NewMatcher(rules, opts)
	if err != nil {
		return nil, fmt.Errorf("%w: compile rules: %w", ErrInvalidFilterRules, err)
	}

	return &entryMatcher{matcher: matcher}, nil
}

// normalizeFilterRules normalizes rule patterns and drops empty patterns.
func normalizeFilterRules(rules []pathrules.Rule) []pathrules.Rule {
	normalized := make([]pathrules.Rule, 0, len(rules))
	for _, rule := range rules {
		pattern := normalizePathForMatching(rule.Pattern)
		if pattern == "" {
			continue
		}

		normalized = append(normalized, pathrules.Rule{
			Action:  rule.Action,
			Pattern: pattern,
		})
	}

	return normalized
}

// setDefaultFilterAction excludes unmatched entries when rules name
// anything to include, and keeps them when rules only exclude.
func setDefaultFilterAction(opts *pathrules.MatcherOptions, rules []pathrules.Rule) {
	if opts.DefaultAction != pathrules.ActionUnknown {
		return
	}

	opts.DefaultAction = pathrules.ActionInclude
	for _, rule := range rules {
		if rule.Action == pathrules.ActionInclude {
			opts.DefaultAction = pathrules.ActionExclude
			return
		}
	}
}

// Match reports whether the listing name is selected.
func (m *entryMatcher) Match(name string) bool {
	if m == nil || m.matcher == nil {
		return true
	}

	candidate := NormalizePath(name)
	if candidate == "" {
		return false
	}

	return m.matcher.Included(candidate, isDirName(name))
}

// FilterEntries returns listing names selected by rules, keeping order.
func FilterEntries(names []string, rules []pathrules.Rule, opts pathrules.MatcherOptions) ([]string, error) {
	if opts == (pathrules.MatcherOptions{}) {
		opts.CaseInsensitive = true
	}

	matcher, err := newEntryMatcher(rules, opts)
	if err != nil {
		return nil, err
	}

	out := make([]string, 0, len(names))
	for _, name := range names {
		if matcher.Match(name) {
			out = append(out, name)
		}
	}

	return out, nil
}
