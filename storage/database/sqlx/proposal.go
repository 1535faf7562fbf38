package sqlxrepos

import (
	"context"
	"strconv"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/fyp/core"
	"github.com/trezcool/fyp/core/project"
	"github.com/trezcool/fyp/core/proposal"
)

const proposalSelect = `SELECT pr.proposal_id, pr.student_id, st.name AS student_name,
		pr.submitted_to, sup.name AS supervisor_name, pr.project_id, pr.title, pr.proposal_description,
		pr.type, pr.specialization, pr.outcome, pr.status_id, ps.status_name, pr.reviewer_comments,
		pr.submission_date, pr.updated_at, pr.decided_at
	FROM proposals pr
	JOIN proposal_statuses ps ON ps.status_id = pr.status_id
	JOIN users st ON st.user_id = pr.student_id
	JOIN users sup ON sup.user_id = pr.submitted_to`

type proposalRepository struct {
	db core.DB
}

var _ proposal.Repository = (*proposalRepository)(nil) // interface compliance check

func NewProposalRepository(db core.DB) *proposalRepository {
	return &proposalRepository{db: db}
}

func getProposal(ctx context.Context, exec core.DBExecutor, id int64) (proposal.Proposal, error) {
	var p proposal.Proposal
	if err := exec.GetContext(ctx, &p, proposalSelect+" WHERE pr.proposal_id = $1", id); err != nil {
		return proposal.Proposal{}, trapNoRowsErr(err, proposal.ErrNotFound, "finding proposal")
	}
	return p, nil
}

func addHistory(ctx context.Context, tx *sqlx.Tx, h proposal.History) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO proposal_history (proposal_id, old_status, new_status, changed_by, comments, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`, h.ProposalID, h.OldStatus, h.NewStatus, h.ChangedBy, h.Comments, h.CreatedAt.UTC())
	return errors.Wrap(err, "inserting proposal history")
}

func (repo *proposalRepository) CreateProposal(ctx context.Context, p proposal.Proposal) (proposal.Proposal, error) {
	var id int64
	err := withTx(ctx, repo.db, func(tx *sqlx.Tx) error {
		if err := lockStudent(ctx, tx, p.StudentID); err != nil {
			return err
		}
		var hasActive bool
		err := tx.GetContext(ctx, &hasActive,
			"SELECT EXISTS (SELECT 1 FROM project_assignments WHERE student_id = $1 AND is_active)", p.StudentID)
		if err != nil {
			return errors.Wrap(err, "checking active project")
		}
		if hasActive {
			return project.ErrActiveProjectExists
		}

		err = tx.GetContext(ctx, &id, `INSERT INTO proposals (student_id, submitted_to, project_id, title,
				proposal_description, type, specialization, outcome, status_id, submission_date, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11) RETURNING proposal_id`,
			p.StudentID, p.SubmittedTo, p.ProjectID, p.Title, p.Description, p.Type, p.Specialization,
			p.Outcome, proposal.StatusPending.ID(), p.SubmissionDate.UTC(), p.UpdatedAt.UTC())
		if err != nil {
			return errors.Wrap(err, "inserting proposal")
		}
		return addHistory(ctx, tx, proposal.History{
			ProposalID: id,
			NewStatus:  proposal.StatusPending,
			ChangedBy:  p.StudentID,
			CreatedAt:  p.SubmissionDate,
		})
	})
	if err != nil {
		return proposal.Proposal{}, err
	}
	return getProposal(ctx, repo.db, id)
}

func (repo *proposalRepository) GetProposal(ctx context.Context, id int64) (proposal.Proposal, error) {
	return getProposal(ctx, repo.db, id)
}

func (repo *proposalRepository) ListProposals(ctx context.Context, filter proposal.QueryFilter) ([]proposal.Proposal, error) {
	var (
		where []string
		args  []interface{}
	)
	arg := func(v interface{}) string {
		args = append(args, v)
		return "$" + strconv.Itoa(len(args))
	}
	if filter.StudentID != 0 {
		where = append(where, "pr.student_id = "+arg(filter.StudentID))
	}
	if filter.SubmittedTo != 0 {
		where = append(where, "pr.submitted_to = "+arg(filter.SubmittedTo))
	}
	if filter.Status != "" {
		where = append(where, "pr.status_id = "+arg(filter.Status.ID()))
	}

	q := proposalSelect
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	q += " ORDER BY pr.submission_date DESC, pr.proposal_id DESC"

	proposals := make([]proposal.Proposal, 0)
	if err := repo.db.SelectContext(ctx, &proposals, q, args...); err != nil {
		return nil, errors.Wrap(err, "listing proposals")
	}
	return proposals, nil
}

func (repo *proposalRepository) UpdateProposal(ctx context.Context, p proposal.Proposal) (proposal.Proposal, error) {
	res, err := repo.db.ExecContext(ctx, `UPDATE proposals
		SET title = $2, proposal_description = $3, type = $4, specialization = $5, outcome = $6, updated_at = $7
		WHERE proposal_id = $1 AND status_id IN ($8, $9)`,
		p.ID, p.Title, p.Description, p.Type, p.Specialization, p.Outcome, p.UpdatedAt.UTC(),
		proposal.StatusPending.ID(), proposal.StatusRequiresModification.ID())
	if err != nil {
		return proposal.Proposal{}, errors.Wrap(err, "updating proposal")
	}
	if n, err := res.RowsAffected(); err != nil {
		return proposal.Proposal{}, errors.Wrap(err, "updating proposal")
	} else if n == 0 {
		// either gone or no longer editable
		if _, err = getProposal(ctx, repo.db, p.ID); err != nil {
			return proposal.Proposal{}, err
		}
		return proposal.Proposal{}, proposal.ErrNotEditable
	}
	return getProposal(ctx, repo.db, p.ID)
}

func (repo *proposalRepository) ApplyTransition(ctx context.Context, t proposal.Transition) (proposal.Proposal, error) {
	err := withTx(ctx, repo.db, func(tx *sqlx.Tx) error {
		var cur struct {
			StudentID int64  `db:"student_id"`
			Status    string `db:"status_name"`
		}
		err := tx.GetContext(ctx, &cur, `SELECT pr.student_id, ps.status_name FROM proposals pr
			JOIN proposal_statuses ps ON ps.status_id = pr.status_id
			WHERE pr.proposal_id = $1 FOR UPDATE OF pr`, t.ProposalID)
		if err != nil {
			return trapNoRowsErr(err, proposal.ErrNotFound, "locking proposal")
		}
		from := proposal.Status(cur.Status)
		if !t.Allows(from) || !from.CanTransitionTo(t.To) {
			return proposal.ErrInvalidTransition
		}

		if t.To == proposal.StatusApproved {
			if err = approve(ctx, tx, t); err != nil {
				return err
			}
		}

		if t.To == proposal.StatusPending {
			_, err = tx.ExecContext(ctx, "UPDATE proposals SET status_id = $2, updated_at = $3 WHERE proposal_id = $1",
				t.ProposalID, t.To.ID(), t.At.UTC())
		} else {
			_, err = tx.ExecContext(ctx, `UPDATE proposals
				SET status_id = $2, updated_at = $3, decided_at = $3, reviewer_comments = $4
				WHERE proposal_id = $1`, t.ProposalID, t.To.ID(), t.At.UTC(), t.Comments)
		}
		if err != nil {
			return errors.Wrap(err, "updating proposal status")
		}
		return addHistory(ctx, tx, proposal.History{
			ProposalID: t.ProposalID,
			OldStatus:  &from,
			NewStatus:  t.To,
			ChangedBy:  t.ChangedBy,
			Comments:   t.Comments,
			CreatedAt:  t.At,
		})
	})
	if err != nil {
		return proposal.Proposal{}, err
	}
	return getProposal(ctx, repo.db, t.ProposalID)
}

// approve links (or creates) the proposal's project and assigns it to the student.
func approve(ctx context.Context, tx *sqlx.Tx, t proposal.Transition) error {
	var p struct {
		StudentID      int64  `db:"student_id"`
		SubmittedTo    int64  `db:"submitted_to"`
		ProjectID      *int64 `db:"project_id"`
		Title          string `db:"title"`
		Description    string `db:"proposal_description"`
		Type           string `db:"type"`
		Specialization string `db:"specialization"`
	}
	err := tx.GetContext(ctx, &p, `SELECT student_id, submitted_to, project_id, title, proposal_description, type, specialization
		FROM proposals WHERE proposal_id = $1`, t.ProposalID)
	if err != nil {
		return errors.Wrap(err, "reading proposal")
	}
	if err = lockStudent(ctx, tx, p.StudentID); err != nil {
		return err
	}

	var projectID int64
	if p.ProjectID != nil {
		projectID = *p.ProjectID
	} else {
		err = tx.GetContext(ctx, &projectID, `INSERT INTO projects (title, description, type, specialization, status, created_at, updated_at)
			VALUES ($1, $2, $3, $4, 'Active', $5, $5) RETURNING project_id`,
			p.Title, p.Description, p.Type, p.Specialization, t.At.UTC())
		if err != nil {
			return errors.Wrap(err, "creating project from proposal")
		}
		if _, err = tx.ExecContext(ctx, "UPDATE proposals SET project_id = $2 WHERE proposal_id = $1", t.ProposalID, projectID); err != nil {
			return errors.Wrap(err, "linking proposal project")
		}
	}
	if _, err = assignStudent(ctx, tx, p.StudentID, projectID, t.At); err != nil {
		return err
	}
	return linkSupervisor(ctx, tx, p.SubmittedTo, projectID)
}

func (repo *proposalRepository) ListHistory(ctx context.Context, proposalID int64) ([]proposal.History, error) {
	hist := make([]proposal.History, 0)
	err := repo.db.SelectContext(ctx, &hist, `SELECT history_id, proposal_id, old_status, new_status, changed_by, comments, created_at
		FROM proposal_history WHERE proposal_id = $1 ORDER BY created_at ASC, history_id ASC`, proposalID)
	if err != nil {
		return nil, errors.Wrap(err, "listing proposal history")
	}
	return hist, nil
}
