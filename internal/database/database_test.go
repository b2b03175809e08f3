package database

import (
	"context"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/jason-s-yu/songquiz/internal/cache"
	"github.com/jason-s-yu/songquiz/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrateURL(t *testing.T) {
	assert.Equal(t, "pgx5://u:p@h:5432/db", migrateURL("postgres://u:p@h:5432/db"))
	assert.Equal(t, "pgx5://u:p@h/db?sslmode=disable", migrateURL("postgresql://u:p@h/db?sslmode=disable"))
	assert.Equal(t, "pgx5://h/db", migrateURL("pgx5://h/db"))
}

func TestEmbeddedMigrationsArePaired(t *testing.T) {
	entries, err := migrationsFS.ReadDir("migrations")
	require.NoError(t, err)
	ups, downs := 0, 0
	for _, e := range entries {
		switch {
		case strings.HasSuffix(e.Name(), ".up.sql"):
			ups++
		case strings.HasSuffix(e.Name(), ".down.sql"):
			downs++
		}
	}
	assert.Equal(t, 3, ups)
	assert.Equal(t, ups, downs)
}

func TestEmptyBatchesSkipTheDatabase(t *testing.T) {
	require.Nil(t, DB)
	assert.NoError(t, InsertGameResults(context.Background(), nil))
	assert.NoError(t, InsertGameActions(context.Background(), []cache.ActionRecord{}))
	assert.NoError(t, UpdateRatings(context.Background(), []models.GameResult{{Points: 10}}))
}

func TestQueriesWithoutConnectionFail(t *testing.T) {
	require.Nil(t, DB)
	_, err := GetUserByEmail(context.Background(), "a@b.c")
	assert.Error(t, err)
	_, err = GetUserRating(context.Background(), uuid.New())
	assert.Error(t, err)
	err = Results{}.SaveGameResults(context.Background(), []models.GameResult{{Place: 1}})
	assert.Error(t, err)
}
