package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cropcare/internal/model"
	"cropcare/internal/platform/database"
)

func newTestRepo(t *testing.T) *AnalysisRecordRepository {
	t.Helper()
	db, err := database.New(context.Background(), database.DriverSQLite, ":memory:")
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&model.AnalysisRecord{}))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return NewAnalysisRecordRepository(db)
}

func TestAnalysisRecordRepository_ListByEmail(t *testing.T) {
	repo := newTestRepo(t)
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, repo.Create(&model.AnalysisRecord{SessionEmail: "a@farm.io", PredictedClass: "Blight", Confidence: 0.95, CreatedAt: base}))
	require.NoError(t, repo.Create(&model.AnalysisRecord{SessionEmail: "b@farm.io", PredictedClass: "Rust", Confidence: 0.6, CreatedAt: base.Add(time.Minute)}))
	require.NoError(t, repo.Create(&model.AnalysisRecord{SessionEmail: "a@farm.io", PredictedClass: "Healthy", Confidence: 0.8, CreatedAt: base.Add(2 * time.Minute), TopClassMismatch: true}))

	records, err := repo.ListByEmail("a@farm.io", 10)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "Healthy", records[0].PredictedClass, "newest first")
	assert.True(t, records[0].TopClassMismatch)
	assert.Equal(t, "Blight", records[1].PredictedClass)
}

func TestAnalysisRecordRepository_ListByEmailLimit(t *testing.T) {
	repo := newTestRepo(t)
	for i := 0; i < 5; i++ {
		require.NoError(t, repo.Create(&model.AnalysisRecord{SessionEmail: "a@farm.io", PredictedClass: "Blight"}))
	}

	records, err := repo.ListByEmail("a@farm.io", 3)
	require.NoError(t, err)
	assert.Len(t, records, 3)

	none, err := repo.ListByEmail("nobody@farm.io", 3)
	require.NoError(t, err)
	assert.Empty(t, none)
}
