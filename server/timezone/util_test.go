package timezone

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tzefoong/relaybot/internal/errkit"
)

func TestParse(t *testing.T) {
	t.Run("Valid", func(t *testing.T) {
		loc, err := Parse("Asia/Singapore")
		require.NoError(t, err)
		assert.Equal(t, "Asia/Singapore", loc.String())
	})

	t.Run("EmptyDefaultsToUTC", func(t *testing.T) {
		loc, err := Parse("")
		require.NoError(t, err)
		assert.Equal(t, "UTC", loc.String())
	})

	t.Run("InvalidIsConfigurationError", func(t *testing.T) {
		loc, err := Parse("Mars/Olympus_Mons")
		require.Error(t, err)
		assert.True(t, errkit.IsCode(err, errkit.CodeConfiguration))
		assert.Equal(t, "UTC", loc.String())
	})
}

func TestIsValid(t *testing.T) {
	assert.True(t, IsValid("UTC"))
	assert.True(t, IsValid("Europe/Berlin"))
	assert.False(t, IsValid("Nowhere/Nothing"))
}
