package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"cropcare/internal/model"
)

var ErrRecordEnqueue = errors.New("analysis record enqueue failed")

type AnalysisRecordPublisher interface {
	Publish(ctx context.Context, record model.AnalysisRecord) error
}

type AnalysisRecordRepository interface {
	Create(record *model.AnalysisRecord) error
	ListByEmail(email string, limit int) ([]model.AnalysisRecord, error)
}

// HistoryCache misses and ignores refills while a list is invalidated. *cache.HistoryCache
// satisfies it.
type HistoryCache interface {
	GetHistory(ctx context.Context, email string) ([]model.AnalysisRecord, bool, error)
	SetHistory(ctx context.Context, email string, records []model.AnalysisRecord) error
	Invalidate(ctx context.Context, email string) error
}

// HistoryService keeps the diagnosis log. Writes go through the publisher when one is
// configured and straight to the repository otherwise.
type HistoryService struct {
	repo      AnalysisRecordRepository
	publisher AnalysisRecordPublisher
	cache     HistoryCache
	limit     int
	now       func() time.Time
}

func NewHistoryService(repo AnalysisRecordRepository, publisher AnalysisRecordPublisher, cache HistoryCache, limit int) *HistoryService {
	if limit <= 0 {
		limit = 20
	}
	return &HistoryService{
		repo:      repo,
		publisher: publisher,
		cache:     cache,
		limit:     limit,
		now:       time.Now,
	}
}

// NewAnalysisRecord flattens a result into a log row.
func NewAnalysisRecord(email string, result *model.AnalysisResult, at time.Time) model.AnalysisRecord {
	return model.AnalysisRecord{
		SessionEmail:     email,
		PredictedClass:   result.PredictedClass,
		Confidence:       result.Confidence,
		ImageURL:         result.ImageURL,
		TopClassMismatch: result.TopClassMismatch(),
		CreatedAt:        at,
	}
}

func (s *HistoryService) Record(ctx context.Context, email string, result *model.AnalysisResult) error {
	email = strings.TrimSpace(email)
	if email == "" || result == nil {
		return nil
	}
	record := NewAnalysisRecord(email, result, s.now())

	if s.cache != nil {
		_ = s.cache.Invalidate(ctx, email)
	}
	if s.publisher != nil {
		if err := s.publisher.Publish(ctx, record); err != nil {
			return fmt.Errorf("%w: %v", ErrRecordEnqueue, err)
		}
		return nil
	}
	return s.repo.Create(&record)
}

func (s *HistoryService) List(ctx context.Context, email string) ([]model.AnalysisRecord, error) {
	if s.cache != nil {
		if cached, hit, err := s.cache.GetHistory(ctx, email); err == nil && hit {
			return cached, nil
		}
	}

	records, err := s.repo.ListByEmail(email, s.limit)
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		_ = s.cache.SetHistory(ctx, email, records)
	}
	return records, nil
}
