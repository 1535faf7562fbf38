package sqlxrepos

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/fyp/core"
	"github.com/trezcool/fyp/core/progress"
)

const (
	logSelect = `SELECT l.log_id, l.project_id, p.title AS project_title, l.student_id, u.name AS student_name,
		l.details, l.submission_date, l.feedback, l.feedback_by, l.feedback_at
	FROM progress_logs l
	JOIN projects p ON p.project_id = l.project_id
	JOIN users u ON u.user_id = l.student_id`

	reportSelect = `SELECT r.report_id, r.project_id, p.title AS project_title, r.student_id, u.name AS student_name,
		r.title, r.details, r.submission_date, r.status, r.grade, r.feedback, r.reviewed_by, r.reviewed_at
	FROM progress_reports r
	JOIN projects p ON p.project_id = r.project_id
	JOIN users u ON u.user_id = r.student_id`
)

type progressRepository struct {
	db core.DB
}

var _ progress.Repository = (*progressRepository)(nil) // interface compliance check

func NewProgressRepository(db core.DB) *progressRepository {
	return &progressRepository{db: db}
}

// progressWhere builds the WHERE clause shared by logs (alias l) & reports (alias r).
func progressWhere(alias string, filter progress.QueryFilter) (string, []interface{}) {
	var (
		where []string
		args  []interface{}
	)
	arg := func(v interface{}) string {
		args = append(args, v)
		return "$" + strconv.Itoa(len(args))
	}
	if filter.StudentID != 0 {
		where = append(where, alias+".student_id = "+arg(filter.StudentID))
	}
	if filter.ProjectID != 0 {
		where = append(where, alias+".project_id = "+arg(filter.ProjectID))
	}
	if filter.SupervisorID != 0 {
		where = append(where, "EXISTS (SELECT 1 FROM supervisor_projects sp WHERE sp.project_id = "+
			alias+".project_id AND sp.supervisor_id = "+arg(filter.SupervisorID)+")")
	}
	if filter.Unreviewed {
		if alias == "l" {
			where = append(where, "l.feedback IS NULL")
		} else {
			where = append(where, "r.status = "+arg(progress.ReportSubmitted))
		}
	}
	if len(where) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(where, " AND "), args
}

func (repo *progressRepository) CreateLog(ctx context.Context, l progress.Log) (progress.Log, error) {
	var id int64
	err := repo.db.GetContext(ctx, &id, `INSERT INTO progress_logs (project_id, student_id, details, submission_date)
		VALUES ($1, $2, $3, $4) RETURNING log_id`, l.ProjectID, l.StudentID, l.Details, l.SubmissionDate.UTC())
	if err != nil {
		return progress.Log{}, errors.Wrap(err, "inserting progress log")
	}
	return repo.GetLog(ctx, id)
}

func (repo *progressRepository) CreateReport(ctx context.Context, r progress.Report) (progress.Report, error) {
	var id int64
	err := repo.db.GetContext(ctx, &id, `INSERT INTO progress_reports (project_id, student_id, title, details, submission_date, status)
		VALUES ($1, $2, $3, $4, $5, $6) RETURNING report_id`,
		r.ProjectID, r.StudentID, r.Title, r.Details, r.SubmissionDate.UTC(), r.Status)
	if err != nil {
		return progress.Report{}, errors.Wrap(err, "inserting progress report")
	}
	return repo.GetReport(ctx, id)
}

func (repo *progressRepository) GetLog(ctx context.Context, id int64) (progress.Log, error) {
	var l progress.Log
	if err := repo.db.GetContext(ctx, &l, logSelect+" WHERE l.log_id = $1", id); err != nil {
		return progress.Log{}, trapNoRowsErr(err, progress.ErrLogNotFound, "finding progress log")
	}
	return l, nil
}

func (repo *progressRepository) GetReport(ctx context.Context, id int64) (progress.Report, error) {
	var r progress.Report
	if err := repo.db.GetContext(ctx, &r, reportSelect+" WHERE r.report_id = $1", id); err != nil {
		return progress.Report{}, trapNoRowsErr(err, progress.ErrReportNotFound, "finding progress report")
	}
	return r, nil
}

func (repo *progressRepository) ListLogs(ctx context.Context, filter progress.QueryFilter) ([]progress.Log, error) {
	where, args := progressWhere("l", filter)
	logs := make([]progress.Log, 0)
	q := logSelect + where + " ORDER BY l.submission_date DESC, l.log_id DESC"
	if err := repo.db.SelectContext(ctx, &logs, q, args...); err != nil {
		return nil, errors.Wrap(err, "listing progress logs")
	}
	return logs, nil
}

func (repo *progressRepository) ListReports(ctx context.Context, filter progress.QueryFilter) ([]progress.Report, error) {
	where, args := progressWhere("r", filter)
	reports := make([]progress.Report, 0)
	q := reportSelect + where + " ORDER BY r.submission_date DESC, r.report_id DESC"
	if err := repo.db.SelectContext(ctx, &reports, q, args...); err != nil {
		return nil, errors.Wrap(err, "listing progress reports")
	}
	return reports, nil
}

func (repo *progressRepository) AppendLogFeedback(ctx context.Context, fb progress.Feedback) (progress.Log, error) {
	err := withTx(ctx, repo.db, func(tx *sqlx.Tx) error {
		var existing *string
		err := tx.GetContext(ctx, &existing, "SELECT feedback FROM progress_logs WHERE log_id = $1 FOR UPDATE", fb.ItemID)
		if err != nil {
			return trapNoRowsErr(err, progress.ErrLogNotFound, "locking progress log")
		}
		_, err = tx.ExecContext(ctx, `UPDATE progress_logs SET feedback = $2, feedback_by = $3, feedback_at = $4
			WHERE log_id = $1`, fb.ItemID, progress.AppendFeedback(existing, fb.Text), fb.By, fb.At.UTC())
		return errors.Wrap(err, "updating progress log feedback")
	})
	if err != nil {
		return progress.Log{}, err
	}
	return repo.GetLog(ctx, fb.ItemID)
}

func (repo *progressRepository) AppendReportFeedback(ctx context.Context, fb progress.Feedback) (progress.Report, error) {
	err := withTx(ctx, repo.db, func(tx *sqlx.Tx) error {
		var existing *string
		err := tx.GetContext(ctx, &existing, "SELECT feedback FROM progress_reports WHERE report_id = $1 FOR UPDATE", fb.ItemID)
		if err != nil {
			return trapNoRowsErr(err, progress.ErrReportNotFound, "locking progress report")
		}
		_, err = tx.ExecContext(ctx, `UPDATE progress_reports
			SET feedback = $2, reviewed_by = $3, reviewed_at = $4, status = $5, grade = COALESCE($6, grade)
			WHERE report_id = $1`,
			fb.ItemID, progress.AppendFeedback(existing, fb.Text), fb.By, fb.At.UTC(), progress.ReportReviewed, fb.Grade)
		return errors.Wrap(err, "updating progress report feedback")
	})
	if err != nil {
		return progress.Report{}, err
	}
	return repo.GetReport(ctx, fb.ItemID)
}

func (repo *progressRepository) StaleStudents(ctx context.Context, before time.Time) ([]progress.StaleStudent, error) {
	q := `SELECT pa.student_id, pa.project_id, p.title AS project_title, MAX(l.submission_date) AS last_log_at
		FROM project_assignments pa
		JOIN projects p ON p.project_id = pa.project_id
		LEFT JOIN progress_logs l ON l.project_id = pa.project_id AND l.student_id = pa.student_id
		WHERE pa.is_active
		GROUP BY pa.student_id, pa.project_id, p.title
		HAVING MAX(l.submission_date) IS NULL OR MAX(l.submission_date) < $1
		ORDER BY pa.student_id`

	stale := make([]progress.StaleStudent, 0)
	if err := repo.db.SelectContext(ctx, &stale, q, before.UTC()); err != nil {
		return nil, errors.Wrap(err, "listing stale students")
	}
	return stale, nil
}
