package sqlxrepos

import (
	"context"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/trezcool/fyp/core"
	"github.com/trezcool/fyp/core/evaluation"
)

const evaluationSelect = `SELECT e.evaluation_id, e.project_id, p.title AS project_title, e.examiner_id, e.mark,
		e.comments, e.status, e.moderator_id, e.moderated_mark, e.moderation_comments, e.submitted_at, e.moderated_at
	FROM evaluations e
	JOIN projects p ON p.project_id = e.project_id`

type evaluationRepository struct {
	db core.DB
}

var _ evaluation.Repository = (*evaluationRepository)(nil) // interface compliance check

func NewEvaluationRepository(db core.DB) *evaluationRepository {
	return &evaluationRepository{db: db}
}

func (repo *evaluationRepository) CreateEvaluation(ctx context.Context, e evaluation.Evaluation) (evaluation.Evaluation, error) {
	var id int64
	err := repo.db.GetContext(ctx, &id, `INSERT INTO evaluations (project_id, examiner_id, mark, comments, status, submitted_at)
		VALUES ($1, $2, $3, $4, $5, $6) RETURNING evaluation_id`,
		e.ProjectID, e.ExaminerID, e.Mark, e.Comments, e.Status, e.SubmittedAt.UTC())
	if uniqueViolation(err, "evaluations_project_id_examiner_id_key") {
		return evaluation.Evaluation{}, evaluation.ErrAlreadyEvaluated
	}
	if err != nil {
		return evaluation.Evaluation{}, errors.Wrap(err, "inserting evaluation")
	}
	return repo.GetEvaluation(ctx, id)
}

func (repo *evaluationRepository) GetEvaluation(ctx context.Context, id int64) (evaluation.Evaluation, error) {
	var e evaluation.Evaluation
	if err := repo.db.GetContext(ctx, &e, evaluationSelect+" WHERE e.evaluation_id = $1", id); err != nil {
		return evaluation.Evaluation{}, trapNoRowsErr(err, evaluation.ErrNotFound, "finding evaluation")
	}
	return e, nil
}

func (repo *evaluationRepository) ListEvaluations(ctx context.Context, filter evaluation.QueryFilter) ([]evaluation.Evaluation, error) {
	var (
		where []string
		args  []interface{}
	)
	arg := func(v interface{}) string {
		args = append(args, v)
		return "$" + strconv.Itoa(len(args))
	}
	if filter.ProjectID != 0 {
		where = append(where, "e.project_id = "+arg(filter.ProjectID))
	}
	if filter.ExaminerID != 0 {
		where = append(where, "e.examiner_id = "+arg(filter.ExaminerID))
	}
	if filter.ModeratorID != 0 {
		where = append(where, "p.moderator_id = "+arg(filter.ModeratorID))
	}
	if filter.Status != "" {
		where = append(where, "e.status = "+arg(filter.Status))
	}

	q := evaluationSelect
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	q += " ORDER BY e.submitted_at DESC, e.evaluation_id DESC"

	evals := make([]evaluation.Evaluation, 0)
	if err := repo.db.SelectContext(ctx, &evals, q, args...); err != nil {
		return nil, errors.Wrap(err, "listing evaluations")
	}
	return evals, nil
}

func (repo *evaluationRepository) ModerateEvaluation(ctx context.Context, e evaluation.Evaluation) (evaluation.Evaluation, error) {
	res, err := repo.db.ExecContext(ctx, `UPDATE evaluations
		SET status = $2, moderator_id = $3, moderated_mark = $4, moderation_comments = $5, moderated_at = $6
		WHERE evaluation_id = $1 AND status = $7`,
		e.ID, evaluation.StatusModerated, e.ModeratorID, e.ModeratedMark, e.ModerationComments, e.ModeratedAt,
		evaluation.StatusSubmitted)
	if err != nil {
		return evaluation.Evaluation{}, errors.Wrap(err, "moderating evaluation")
	}
	if n, err := res.RowsAffected(); err != nil {
		return evaluation.Evaluation{}, errors.Wrap(err, "moderating evaluation")
	} else if n == 0 {
		if _, err = repo.GetEvaluation(ctx, e.ID); err != nil {
			return evaluation.Evaluation{}, err
		}
		return evaluation.Evaluation{}, evaluation.ErrAlreadyModerated
	}
	return repo.GetEvaluation(ctx, e.ID)
}
