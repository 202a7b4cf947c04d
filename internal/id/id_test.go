package id

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCase(t *testing.T) {
	a := Case()
	b := Case()

	assert.True(t, strings.HasPrefix(a, "case-"))
	assert.Len(t, a, len("case-")+8)
	assert.NotEqual(t, a, b)
}
