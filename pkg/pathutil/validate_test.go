package pathutil_test

import (
	"errors"
	"testing"

	"github.com/evidentry-project/evidentry/pkg/errclass"
	"github.com/evidentry-project/evidentry/pkg/pathutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateFrameworkID(t *testing.T) {
	assert.NoError(t, pathutil.ValidateFrameworkID("iso27001"))
	assert.NoError(t, pathutil.ValidateFrameworkID("soc2-type2"))
	assert.Error(t, pathutil.ValidateFrameworkID(""))
	assert.Error(t, pathutil.ValidateFrameworkID("iso 27001"))
	assert.Error(t, pathutil.ValidateFrameworkID("iso/27001"))
}

func TestValidateFileName(t *testing.T) {
	assert.NoError(t, pathutil.ValidateFileName("access-policy.pdf"))
	assert.NoError(t, pathutil.ValidateFileName("Résumé.pdf"))

	cases := []string{"", "..", "a/../b", "dir/file", "back\\slash", "bad\x00name"}
	for _, c := range cases {
		err := pathutil.ValidateFileName(c)
		require.Error(t, err, "expected rejection for %q", c)
		assert.True(t, errors.Is(err, errclass.ErrNameInvalid))
	}
}

func TestValidateArchivePath(t *testing.T) {
	assert.NoError(t, pathutil.ValidateArchivePath("evidence/iso27001/policy.pdf"))
	assert.NoError(t, pathutil.ValidateArchivePath("manifest.json"))

	cases := []string{
		"",
		"/etc/passwd",
		"../outside.txt",
		"evidence/../../outside.txt",
		"evidence//policy.pdf",
		"evidence\\policy.pdf",
		"evidence/./policy.pdf",
	}
	for _, c := range cases {
		err := pathutil.ValidateArchivePath(c)
		require.Error(t, err, "expected rejection for %q", c)
		assert.True(t, errors.Is(err, errclass.ErrPathEscape))
	}
}
