package port

import (
	"context"
	"time"

	"newscluster/internal/domain"
)

// ArticleSource yields the articles posted since a given time.
type ArticleSource interface {
	Pull(ctx context.Context, since time.Time) ([]domain.Article, error)

	Close() error
}
