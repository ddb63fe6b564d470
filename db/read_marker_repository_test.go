package db_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/techagentng/clubhub/db"
	"github.com/techagentng/clubhub/db/dbtest"
	"github.com/techagentng/clubhub/models"
	"go.uber.org/zap"
)

func TestReadMarkerNeverMovesBackwards(t *testing.T) {
	g := dbtest.Open(t)
	f := dbtest.Seed(t, g)
	repo := db.NewReadMarkerRepo(g, zap.NewNop())
	ctx := context.Background()

	advance := func(id uint) {
		require.NoError(t, repo.Advance(ctx, &models.ReadMarker{
			UserID:            f.Sam.ID,
			ThreadKind:        models.ThreadCategory,
			ThreadID:          f.U13.ID,
			LastReadMessageID: id,
			LastReadAt:        time.Now().UTC(),
		}))
	}
	advance(5)
	advance(9)
	advance(3)

	markers, err := repo.ListForUser(ctx, f.Sam.ID)
	require.NoError(t, err)
	require.Len(t, markers, 1)
	assert.Equal(t, uint(9), markers[0].LastReadMessageID)

	others, err := repo.ListForUser(ctx, f.Sara.ID)
	require.NoError(t, err)
	assert.Empty(t, others)
}
