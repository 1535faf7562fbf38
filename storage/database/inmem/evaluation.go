package inmemdb

import (
	"context"
	"sort"

	"github.com/trezcool/fyp/core/evaluation"
)

type evaluationRepository struct {
	db *DB
}

var _ evaluation.Repository = (*evaluationRepository)(nil) // interface compliance check

func NewEvaluationRepository(db *DB) *evaluationRepository {
	return &evaluationRepository{db: db}
}

func (repo *evaluationRepository) withTitle(e evaluation.Evaluation) evaluation.Evaluation {
	e.ProjectTitle = repo.db.projectTitle(e.ProjectID)
	return e
}

func (repo *evaluationRepository) CreateEvaluation(_ context.Context, e evaluation.Evaluation) (evaluation.Evaluation, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	for _, other := range repo.db.evaluations {
		if other.ProjectID == e.ProjectID && other.ExaminerID == e.ExaminerID {
			return evaluation.Evaluation{}, evaluation.ErrAlreadyEvaluated
		}
	}
	e.ID = repo.db.nextID("evaluations")
	repo.db.evaluations[e.ID] = e
	return repo.withTitle(e), nil
}

func (repo *evaluationRepository) GetEvaluation(_ context.Context, id int64) (evaluation.Evaluation, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	if e, ok := repo.db.evaluations[id]; ok {
		return repo.withTitle(e), nil
	}
	return evaluation.Evaluation{}, evaluation.ErrNotFound
}

func (repo *evaluationRepository) ListEvaluations(_ context.Context, filter evaluation.QueryFilter) ([]evaluation.Evaluation, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	evals := make([]evaluation.Evaluation, 0)
	for _, e := range repo.db.evaluations {
		if filter.ProjectID != 0 && e.ProjectID != filter.ProjectID {
			continue
		}
		if filter.ExaminerID != 0 && e.ExaminerID != filter.ExaminerID {
			continue
		}
		if filter.ModeratorID != 0 {
			mod := repo.db.projects[e.ProjectID].ModeratorID
			if mod == nil || *mod != filter.ModeratorID {
				continue
			}
		}
		if filter.Status != "" && e.Status != filter.Status {
			continue
		}
		evals = append(evals, repo.withTitle(e))
	}
	sort.Slice(evals, func(i, j int) bool {
		return newerFirst(evals[i].SubmittedAt, evals[j].SubmittedAt, evals[i].ID, evals[j].ID)
	})
	return evals, nil
}

func (repo *evaluationRepository) ModerateEvaluation(_ context.Context, e evaluation.Evaluation) (evaluation.Evaluation, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	orig, ok := repo.db.evaluations[e.ID]
	if !ok {
		return evaluation.Evaluation{}, evaluation.ErrNotFound
	}
	if orig.Status != evaluation.StatusSubmitted {
		return evaluation.Evaluation{}, evaluation.ErrAlreadyModerated
	}
	orig.Status = evaluation.StatusModerated
	orig.ModeratorID = e.ModeratorID
	orig.ModeratedMark = e.ModeratedMark
	orig.ModerationComments = e.ModerationComments
	orig.ModeratedAt = e.ModeratedAt
	repo.db.evaluations[e.ID] = orig
	return repo.withTitle(orig), nil
}
