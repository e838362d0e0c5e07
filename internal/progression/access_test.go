package progression

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEvaluateAccess(t *testing.T) {
	t.Run("no requirements", func(t *testing.T) {
		d := EvaluateAccess(1, nil, nil, false, false)
		assert.True(t, d.HasAccess)
		assert.Nil(t, d.Reason)
		assert.Nil(t, d.HasRequiredItem)
	})

	t.Run("level too low", func(t *testing.T) {
		d := EvaluateAccess(3, intPtr(5), nil, false, false)
		assert.False(t, d.HasAccess)
		require.NotNil(t, d.Reason)
		assert.Equal(t, "Requires level 5", *d.Reason)
	})

	t.Run("level exactly met", func(t *testing.T) {
		d := EvaluateAccess(5, intPtr(5), nil, false, false)
		assert.True(t, d.HasAccess)
	})

	t.Run("item missing", func(t *testing.T) {
		d := EvaluateAccess(10, nil, strPtr("key_vault"), false, false)
		assert.False(t, d.HasAccess)
		require.NotNil(t, d.Reason)
		assert.Equal(t, "Requires item: key_vault", *d.Reason)
		require.NotNil(t, d.HasRequiredItem)
		assert.False(t, *d.HasRequiredItem)
	})

	t.Run("item owned", func(t *testing.T) {
		d := EvaluateAccess(10, nil, strPtr("key_vault"), true, false)
		assert.True(t, d.HasAccess)
		require.NotNil(t, d.HasRequiredItem)
		assert.True(t, *d.HasRequiredItem)
	})

	t.Run("unlock outlives the consumed item", func(t *testing.T) {
		d := EvaluateAccess(10, nil, strPtr("key_vault"), false, true)
		assert.True(t, d.HasAccess)
		require.NotNil(t, d.HasRequiredItem)
		assert.False(t, *d.HasRequiredItem)
	})

	t.Run("both gates fail, item reason wins", func(t *testing.T) {
		d := EvaluateAccess(1, intPtr(5), strPtr("key_vault"), false, false)
		assert.False(t, d.HasAccess)
		require.NotNil(t, d.Reason)
		assert.Equal(t, "Requires item: key_vault", *d.Reason)
	})

	t.Run("level fails, item satisfied", func(t *testing.T) {
		d := EvaluateAccess(1, intPtr(5), strPtr("key_vault"), true, false)
		assert.False(t, d.HasAccess)
		require.NotNil(t, d.Reason)
		assert.Equal(t, "Requires level 5", *d.Reason)
	})
}
