package port

import "newscluster/internal/domain"

type RunStore interface {
	SaveRun(run domain.RunRecord) error

	GetRun(id string) (domain.RunRecord, error)

	// LatestRun returns the most recent run recorded for date (YYYY-MM-DD).
	LatestRun(date string) (domain.RunRecord, error)

	ListRuns() ([]domain.RunRecord, error)
}
