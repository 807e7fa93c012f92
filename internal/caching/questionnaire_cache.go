package caching

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/sirupsen/logrus"

	"github.com/rehab-triage-engine/internal/domain"
)

// QuestionnaireCache decorates a QuestionnaireReader with an expirable
// LRU. Questionnaire definitions change rarely, so a single in-memory
// tier is enough.
type QuestionnaireCache struct {
	source         domain.QuestionnaireReader
	logger         *logrus.Logger
	questionnaires *expirable.LRU[string, *domain.Questionnaire]
	items          *expirable.LRU[string, []domain.QuestionnaireItem]
}

// NewQuestionnaireCache creates a questionnaire cache in front of source.
// A zero ttl defaults to one hour.
func NewQuestionnaireCache(source domain.QuestionnaireReader, ttl time.Duration, logger *logrus.Logger) *QuestionnaireCache {
	if ttl == 0 {
		ttl = time.Hour
	}
	return &QuestionnaireCache{
		source:         source,
		logger:         logger,
		questionnaires: expirable.NewLRU[string, *domain.Questionnaire](64, nil, ttl),
		items:          expirable.NewLRU[string, []domain.QuestionnaireItem](64, nil, ttl),
	}
}

// GetQuestionnaireByKey returns a cached questionnaire definition,
// fetching from the source on miss. Lookup failures are never cached.
func (c *QuestionnaireCache) GetQuestionnaireByKey(ctx context.Context, key string) (*domain.Questionnaire, error) {
	if q, ok := c.questionnaires.Get(key); ok {
		return q, nil
	}

	q, err := c.source.GetQuestionnaireByKey(ctx, key)
	if err != nil {
		return nil, err
	}
	c.questionnaires.Add(key, q)
	return q, nil
}

// GetItemsForQuestionnaire returns cached questionnaire items.
func (c *QuestionnaireCache) GetItemsForQuestionnaire(ctx context.Context, questionnaireID string) ([]domain.QuestionnaireItem, error) {
	if items, ok := c.items.Get(questionnaireID); ok {
		return items, nil
	}

	items, err := c.source.GetItemsForQuestionnaire(ctx, questionnaireID)
	if err != nil {
		return nil, err
	}
	c.items.Add(questionnaireID, items)
	return items, nil
}
