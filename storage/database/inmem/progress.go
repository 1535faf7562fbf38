package inmemdb

import (
	"context"
	"sort"
	"time"

	"github.com/trezcool/fyp/core/progress"
)

type progressRepository struct {
	db *DB
}

var _ progress.Repository = (*progressRepository)(nil) // interface compliance check

func NewProgressRepository(db *DB) *progressRepository {
	return &progressRepository{db: db}
}

func (repo *progressRepository) matches(filter progress.QueryFilter, projectID, studentID int64) bool {
	if filter.StudentID != 0 && studentID != filter.StudentID {
		return false
	}
	if filter.ProjectID != 0 && projectID != filter.ProjectID {
		return false
	}
	if filter.SupervisorID != 0 && !repo.db.supervises(filter.SupervisorID, projectID) {
		return false
	}
	return true
}

func (repo *progressRepository) withLogNames(l progress.Log) progress.Log {
	l.ProjectTitle = repo.db.projectTitle(l.ProjectID)
	l.StudentName = repo.db.userName(l.StudentID)
	return l
}

func (repo *progressRepository) withReportNames(r progress.Report) progress.Report {
	r.ProjectTitle = repo.db.projectTitle(r.ProjectID)
	r.StudentName = repo.db.userName(r.StudentID)
	return r
}

func (repo *progressRepository) CreateLog(_ context.Context, l progress.Log) (progress.Log, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	l.ID = repo.db.nextID("progress_logs")
	repo.db.logs[l.ID] = l
	return repo.withLogNames(l), nil
}

func (repo *progressRepository) CreateReport(_ context.Context, r progress.Report) (progress.Report, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	r.ID = repo.db.nextID("progress_reports")
	repo.db.reports[r.ID] = r
	return repo.withReportNames(r), nil
}

func (repo *progressRepository) GetLog(_ context.Context, id int64) (progress.Log, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	if l, ok := repo.db.logs[id]; ok {
		return repo.withLogNames(l), nil
	}
	return progress.Log{}, progress.ErrLogNotFound
}

func (repo *progressRepository) GetReport(_ context.Context, id int64) (progress.Report, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	if r, ok := repo.db.reports[id]; ok {
		return repo.withReportNames(r), nil
	}
	return progress.Report{}, progress.ErrReportNotFound
}

func newerFirst(a, b time.Time, aID, bID int64) bool {
	if !a.Equal(b) {
		return a.After(b)
	}
	return aID > bID
}

func (repo *progressRepository) ListLogs(_ context.Context, filter progress.QueryFilter) ([]progress.Log, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	logs := make([]progress.Log, 0)
	for _, l := range repo.db.logs {
		if !repo.matches(filter, l.ProjectID, l.StudentID) {
			continue
		}
		if filter.Unreviewed && l.Feedback != nil {
			continue
		}
		logs = append(logs, repo.withLogNames(l))
	}
	sort.Slice(logs, func(i, j int) bool {
		return newerFirst(logs[i].SubmissionDate, logs[j].SubmissionDate, logs[i].ID, logs[j].ID)
	})
	return logs, nil
}

func (repo *progressRepository) ListReports(_ context.Context, filter progress.QueryFilter) ([]progress.Report, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	reports := make([]progress.Report, 0)
	for _, r := range repo.db.reports {
		if !repo.matches(filter, r.ProjectID, r.StudentID) {
			continue
		}
		if filter.Unreviewed && r.Status != progress.ReportSubmitted {
			continue
		}
		reports = append(reports, repo.withReportNames(r))
	}
	sort.Slice(reports, func(i, j int) bool {
		return newerFirst(reports[i].SubmissionDate, reports[j].SubmissionDate, reports[i].ID, reports[j].ID)
	})
	return reports, nil
}

func (repo *progressRepository) AppendLogFeedback(_ context.Context, fb progress.Feedback) (progress.Log, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	l, ok := repo.db.logs[fb.ItemID]
	if !ok {
		return progress.Log{}, progress.ErrLogNotFound
	}
	text := progress.AppendFeedback(l.Feedback, fb.Text)
	at, by := fb.At, fb.By
	l.Feedback, l.FeedbackBy, l.FeedbackAt = &text, &by, &at
	repo.db.logs[l.ID] = l
	return repo.withLogNames(l), nil
}

func (repo *progressRepository) AppendReportFeedback(_ context.Context, fb progress.Feedback) (progress.Report, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	r, ok := repo.db.reports[fb.ItemID]
	if !ok {
		return progress.Report{}, progress.ErrReportNotFound
	}
	text := progress.AppendFeedback(r.Feedback, fb.Text)
	at, by := fb.At, fb.By
	r.Feedback, r.ReviewedBy, r.ReviewedAt = &text, &by, &at
	r.Status = progress.ReportReviewed
	if fb.Grade != nil {
		r.Grade = fb.Grade
	}
	repo.db.reports[r.ID] = r
	return repo.withReportNames(r), nil
}

func (repo *progressRepository) StaleStudents(_ context.Context, before time.Time) ([]progress.StaleStudent, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	stale := make([]progress.StaleStudent, 0)
	for _, a := range repo.db.assignments {
		if !a.IsActive {
			continue
		}
		var last *time.Time
		for _, l := range repo.db.logs {
			if l.StudentID != a.StudentID || l.ProjectID != a.ProjectID {
				continue
			}
			if last == nil || l.SubmissionDate.After(*last) {
				at := l.SubmissionDate
				last = &at
			}
		}
		if last != nil && !last.Before(before) {
			continue
		}
		stale = append(stale, progress.StaleStudent{
			StudentID:    a.StudentID,
			ProjectID:    a.ProjectID,
			ProjectTitle: repo.db.projectTitle(a.ProjectID),
			LastLogAt:    last,
		})
	}
	sort.Slice(stale, func(i, j int) bool { return stale[i].StudentID < stale[j].StudentID })
	return stale, nil
}
