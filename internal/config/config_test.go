package config

import (
	"path/filepath"
	"testing"

	"github.com/nalgeon/be"

	"jetc/internal/types"
)

func TestLoadDefaults(t *testing.T) {
	for _, name := range []string{EnvDebug, EnvSubtypeCache, EnvOut, EnvClasspath, EnvNumericWidening} {
		t.Setenv(name, "")
	}
	s := Load()
	be.Equal(t, s.Debug, false)
	be.Equal(t, s.OutDir, "")
	be.Equal(t, len(s.Classpath), 0)
	be.Equal(t, s.SubtypeCache, types.DefaultSupertypeCacheSize)
	be.Equal(t, s.NumericWidening, false)
}

func TestLoadFromEnvironment(t *testing.T) {
	sep := string(filepath.ListSeparator)
	t.Setenv(EnvDebug, "1")
	t.Setenv(EnvSubtypeCache, "16")
	t.Setenv(EnvOut, "build/classes")
	t.Setenv(EnvClasspath, "lib/a.jar"+sep+sep+" lib/b ")
	t.Setenv(EnvNumericWidening, "true")

	s := Load()
	be.True(t, s.Debug)
	be.Equal(t, s.SubtypeCache, 16)
	be.Equal(t, s.OutDir, "build/classes")
	be.Equal(t, s.Classpath, []string{"lib/a.jar", "lib/b"})
	be.True(t, s.NumericWidening)
	be.Equal(t, len(s.CheckerOptions()), 2)
}

func TestNegativeCacheDisablesMemo(t *testing.T) {
	t.Setenv(EnvSubtypeCache, "-3")
	be.Equal(t, Load().SubtypeCache, 0)
}

func TestLoadSeesLaterChanges(t *testing.T) {
	t.Setenv(EnvOut, "first")
	be.Equal(t, Load().OutDir, "first")

	t.Setenv(EnvOut, "second")
	t.Setenv(EnvSubtypeCache, "8")
	s := Load()
	be.Equal(t, s.OutDir, "second")
	be.Equal(t, s.SubtypeCache, 8)
}
