package version

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCurrent(t *testing.T) {
	v := Current()
	assert.NotNil(t, v)
	assert.Equal(t, Version, v.String())
}

func TestParseRejectsGarbage(t *testing.T) {
	_, err := Parse("not-a-version")
	assert.Error(t, err)
}
