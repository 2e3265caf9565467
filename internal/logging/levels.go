package logging

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Per-package level overrides, keyed by component name or "prefix.*"
// wildcard pattern.
var (
	packageLevels = make(map[string]LogLevel)
	packageMu     sync.RWMutex
)

// SetPackageLevels replaces the per-package level overrides.
// Keys may be exact component names ("engine") or wildcard patterns
// ("strategy.*"). Returns an error if any level name is invalid.
func SetPackageLevels(levels map[string]string) error {
	if levels == nil {
		return nil
	}

	packageMu.Lock()
	defer packageMu.Unlock()

	packageLevels = make(map[string]LogLevel)
	for pkg, levelStr := range levels {
		level, err := parseLevel(levelStr)
		if err != nil {
			return fmt.Errorf("invalid log level for package %q: %w", pkg, err)
		}
		packageLevels[pkg] = level
	}
	return nil
}

// PackageLevel returns the effective override for a component name,
// or -1 if no override is configured. Exact matches win over wildcard
// patterns; among patterns the longest (most specific) wins.
func PackageLevel(name string) LogLevel {
	packageMu.RLock()
	defer packageMu.RUnlock()

	if level, ok := packageLevels[name]; ok {
		return level
	}

	var matched []string
	for pattern := range packageLevels {
		if matchesPattern(name, pattern) {
			matched = append(matched, pattern)
		}
	}
	sort.Slice(matched, func(i, j int) bool {
		return len(matched[i]) > len(matched[j])
	})

	if len(matched) > 0 {
		return packageLevels[matched[0]]
	}
	return LogLevel(-1)
}

func matchesPattern(name, pattern string) bool {
	if name == pattern {
		return true
	}
	if strings.HasSuffix(pattern, ".*") {
		prefix := strings.TrimSuffix(pattern, ".*")
		return strings.HasPrefix(name, prefix+".")
	}
	return false
}
