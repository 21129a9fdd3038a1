package db

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"claritybackend/models"
)

func TestIncrementUsage_RejectsBadInputs(t *testing.T) {
	// Input validation happens before any statement is built, so no live
	// connection is needed.
	repo := NewPostgresWorkspacesRepository(nil, "clarity")

	t.Run("UnknownFeature", func(t *testing.T) {
		_, err := repo.IncrementUsage(context.Background(), "ws_x", models.FeatureReports, 10)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "no usage counter")
	})

	t.Run("NonPositiveCeiling", func(t *testing.T) {
		for _, ceiling := range []int{0, -1} {
			_, err := repo.IncrementUsage(context.Background(), "ws_x", models.FeatureAutoCoaching, ceiling)
			require.Error(t, err)
			assert.Contains(t, err.Error(), "ceiling must be positive")
		}
	})
}
