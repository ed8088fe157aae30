// Package globmatch provides whole-path glob matching with `**` segment
// support, used to filter candidate files against include and exclude
// patterns. Compiled patterns are cached for the lifetime of a Matcher.
package globmatch
