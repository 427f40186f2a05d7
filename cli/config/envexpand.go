// Package config handles YAML config file loading for xray commands.
package config

import (
	"os"
	"regexp"
	"slices"
)

// envVarPattern matches ${VAR} and ${VAR:-default} patterns.
// - ${VAR} expands to the env var value, or empty string if unset
// - ${VAR:-default} expands to the env var value, or "default" if unset/empty
var envVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)(?::-([^}]*))?\}`)

// ExpandEnv replaces ${VAR} and ${VAR:-default} patterns in the input string
// with their corresponding environment variable values.
//
// Unset variables without defaults expand to empty string (not an error).
// A missing API key header then surfaces as a backend rejection.
func ExpandEnv(input string) string {
	out, _ := expand(input)
	return out
}

// ExpandEnvReport is ExpandEnv that also returns the names of referenced
// variables that were unset and had no default, sorted and deduplicated.
func ExpandEnvReport(input string) (string, []string) {
	return expand(input)
}

func expand(input string) (string, []string) {
	var missing []string
	out := envVarPattern.ReplaceAllStringFunc(input, func(match string) string {
		groups := envVarPattern.FindStringSubmatch(match)
		if len(groups) < 2 {
			return match
		}

		varName := groups[1]
		if value, ok := os.LookupEnv(varName); ok && value != "" {
			return value
		}

		if len(groups) >= 3 && groups[2] != "" {
			return groups[2]
		}

		missing = append(missing, varName)
		return ""
	})
	slices.Sort(missing)
	return out, slices.Compact(missing)
}
