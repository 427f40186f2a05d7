package cmd

import (
	"fmt"
	"maps"
	"strings"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/pithecene-io/xray/cli/config"
)

// Precedence for every setting: explicit flag, then config file, then the
// flag's default.

// configVal reads a field from a possibly nil config.
func configVal[T any](cfg *config.Config, get func(*config.Config) T) T {
	var zero T
	if cfg == nil {
		return zero
	}
	return get(cfg)
}

func resolveString(c *cli.Context, name, cfgVal string) string {
	if c.IsSet(name) {
		return c.String(name)
	}
	if cfgVal != "" {
		return cfgVal
	}
	return c.String(name)
}

func resolveInt(c *cli.Context, name string, cfgVal int) int {
	if c.IsSet(name) {
		return c.Int(name)
	}
	if cfgVal != 0 {
		return cfgVal
	}
	return c.Int(name)
}

func resolveDuration(c *cli.Context, name string, cfgVal time.Duration) time.Duration {
	if c.IsSet(name) {
		return c.Duration(name)
	}
	if cfgVal != 0 {
		return cfgVal
	}
	return c.Duration(name)
}

// resolveHeaders merges config headers with key=value flag values.
// Flag values win on conflicts.
func resolveHeaders(c *cli.Context, name string, cfgHeaders map[string]string) (map[string]string, error) {
	headers := make(map[string]string, len(cfgHeaders))
	maps.Copy(headers, cfgHeaders)
	for _, h := range c.StringSlice(name) {
		k, v, ok := strings.Cut(h, "=")
		k = strings.TrimSpace(k)
		if !ok || k == "" {
			return nil, fmt.Errorf("invalid --%s %q: expected key=value", name, h)
		}
		headers[k] = strings.TrimSpace(v)
	}
	return headers, nil
}
