package status

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFromCode(t *testing.T) {
	s, ok := FromCode(416)
	assert.True(t, ok)
	assert.Equal(t, "Requested range not satisfiable", s.ReasonPhrase)

	s, ok = FromCode(306)
	assert.True(t, ok)
	assert.Equal(t, SwitchProxy, s)

	s, ok = FromCode(299)
	assert.False(t, ok)
	assert.Equal(t, Status{Code: 299}, s)

	assert.True(t, IsKnown(599))
	assert.False(t, IsKnown(421))
}
