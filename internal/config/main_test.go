package config

import (
	"os"
	"strings"
	"testing"
)

func TestMain(m *testing.M) {
	for _, e := range os.Environ() {
		if strings.HasPrefix(e, EnvPrefix) {
			key, _, _ := strings.Cut(e, "=")
			if err := os.Unsetenv(key); err != nil {
				panic("failed to unset env: " + err.Error())
			}
		}
	}
	os.Exit(m.Run())
}
