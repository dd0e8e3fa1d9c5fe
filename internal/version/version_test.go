package version

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInfoString(t *testing.T) {
	i := Info{Version: "v1.2.0", GitSHA: "0123456789abcdef", BuildTime: "2026-01-02"}
	assert.Equal(t, "v1.2.0 (0123456789ab, built 2026-01-02)", i.String())
}

func TestGet_Stamped(t *testing.T) {
	old := GitSHA
	t.Cleanup(func() { GitSHA = old })
	GitSHA = "feedface"

	info := Get()
	assert.Equal(t, Version, info.Version)
	assert.Equal(t, "feedface", info.GitSHA)
}
