// Package config reads compiler settings from the environment. Command line
// flags override whatever is found here.
package config

import (
	"path/filepath"
	"strings"

	"github.com/xyproto/env/v2"

	"jetc/internal/types"
)

// Environment variable names.
const (
	EnvDebug           = "JETC_DEBUG"
	EnvSubtypeCache    = "JETC_SUBTYPE_CACHE"
	EnvOut             = "JETC_OUT"
	EnvClasspath       = "JETC_CLASSPATH"
	EnvNumericWidening = "JETC_NUMERIC_WIDENING"
)

// Settings tune one compilation.
type Settings struct {
	Debug bool
	// OutDir receives the generated classes; empty means the current
	// directory.
	OutDir    string
	Classpath []string
	// SubtypeCache bounds the supertype memo of the type checker; zero turns
	// memoisation off.
	SubtypeCache int
	// NumericWidening lets Int flow into Long, Float and Double.
	NumericWidening bool
}

// Defaults are the settings used when nothing is configured.
func Defaults() Settings {
	return Settings{SubtypeCache: types.DefaultSupertypeCacheSize}
}

// Load returns the defaults overridden by the environment. The env package
// caches the environment, so it is re-read on every call.
func Load() Settings {
	env.Load()
	s := Defaults()
	s.Debug = env.Bool(EnvDebug)
	s.OutDir = env.Str(EnvOut, s.OutDir)
	s.Classpath = SplitPath(env.Str(EnvClasspath))
	s.SubtypeCache = env.Int(EnvSubtypeCache, s.SubtypeCache)
	if s.SubtypeCache < 0 {
		s.SubtypeCache = 0
	}
	s.NumericWidening = env.Bool(EnvNumericWidening)
	return s
}

// SplitPath splits a classpath on the platform list separator, dropping
// empty elements.
func SplitPath(p string) []string {
	var out []string
	for _, e := range strings.Split(p, string(filepath.ListSeparator)) {
		if e = strings.TrimSpace(e); e != "" {
			out = append(out, e)
		}
	}
	return out
}

// CheckerOptions configures a types.Checker according to s.
func (s Settings) CheckerOptions() []types.Option {
	return []types.Option{
		types.WithCacheSize(s.SubtypeCache),
		types.WithPolicy(types.DefaultPolicy{NumericWidening: s.NumericWidening}),
	}
}
