package uuidutil_test

import (
	"regexp"
	"testing"

	"github.com/evidentry-project/evidentry/pkg/uuidutil"
	"github.com/stretchr/testify/assert"
)

var v4Pattern = regexp.MustCompile(`^[0-9a-f]{8}-[0-9a-f]{4}-4[0-9a-f]{3}-[89ab][0-9a-f]{3}-[0-9a-f]{12}$`)

func TestNewV4_Format(t *testing.T) {
	for i := 0; i < 50; i++ {
		assert.Regexp(t, v4Pattern, uuidutil.NewV4())
	}
}

func TestNewV4_Unique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		id := uuidutil.NewV4()
		assert.False(t, seen[id])
		seen[id] = true
	}
}
