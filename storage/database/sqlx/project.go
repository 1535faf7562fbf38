package sqlxrepos

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/fyp/core"
	"github.com/trezcool/fyp/core/project"
	"github.com/trezcool/fyp/core/proposal"
)

const (
	projectColumns = "p.project_id, p.title, p.description, p.type, p.specialization, p.status, " +
		"p.examiner_id, p.moderator_id, p.created_at, p.updated_at"
	listingSelect = "SELECT " + projectColumns + `,
		u.user_id AS supervisor_id, u.name AS supervisor_name, u.email AS supervisor_email
		FROM projects p
		JOIN supervisor_projects sp ON sp.project_id = p.project_id
		JOIN users u ON u.user_id = sp.supervisor_id`

	// projectAvailable holds for Active projects neither held nor approved for a student.
	projectAvailable = `p.status = 'Active'
		AND NOT EXISTS (SELECT 1 FROM project_assignments pa WHERE pa.project_id = p.project_id AND pa.is_active)
		AND NOT EXISTS (SELECT 1 FROM proposals pr
			JOIN proposal_statuses ps ON ps.status_id = pr.status_id
			WHERE pr.project_id = p.project_id AND ps.status_name = '` + string(proposal.StatusApproved) + `')`
)

type projectRepository struct {
	db core.DB
}

var _ project.Repository = (*projectRepository)(nil) // interface compliance check

func NewProjectRepository(db core.DB) *projectRepository {
	return &projectRepository{db: db}
}

func (repo *projectRepository) CreateProject(ctx context.Context, supervisorID int64, prj project.Project) (project.Listing, error) {
	var created project.Listing
	err := withTx(ctx, repo.db, func(tx *sqlx.Tx) error {
		var id int64
		err := tx.GetContext(ctx, &id, `INSERT INTO projects (title, description, type, specialization, status, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING project_id`,
			prj.Title, prj.Description, prj.Type, prj.Specialization, prj.Status, prj.CreatedAt.UTC(), prj.UpdatedAt.UTC())
		if err != nil {
			return errors.Wrap(err, "inserting project")
		}
		if err = linkSupervisor(ctx, tx, supervisorID, id); err != nil {
			return err
		}
		err = tx.GetContext(ctx, &created, listingSelect+" WHERE p.project_id = $1 AND sp.supervisor_id = $2", id, supervisorID)
		return errors.Wrap(err, "finding created project")
	})
	if err != nil {
		return project.Listing{}, err
	}
	return created, nil
}

func linkSupervisor(ctx context.Context, tx *sqlx.Tx, supervisorID, projectID int64) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO supervisor_projects (supervisor_id, project_id)
		VALUES ($1, $2) ON CONFLICT DO NOTHING`, supervisorID, projectID)
	return errors.Wrap(err, "linking project supervisor")
}

func (repo *projectRepository) GetProject(ctx context.Context, id int64) (project.Project, error) {
	var prj project.Project
	err := repo.db.GetContext(ctx, &prj, "SELECT "+projectColumns+" FROM projects p WHERE p.project_id = $1", id)
	if err != nil {
		return project.Project{}, trapNoRowsErr(err, project.ErrNotFound, "finding project")
	}
	return prj, nil
}

func (repo *projectRepository) QueryProjects(ctx context.Context, filter *project.QueryFilter, ordering []core.DBOrdering) ([]project.Listing, error) {
	var (
		where []string
		args  []interface{}
	)
	arg := func(v interface{}) string {
		args = append(args, v)
		return "$" + strconv.Itoa(len(args))
	}

	if filter != nil {
		if filter.Search != "" {
			p := arg("%" + filter.Search + "%")
			where = append(where, "(p.title ILIKE "+p+" OR p.description ILIKE "+p+")")
		}
		if filter.Status != "" {
			where = append(where, "p.status = "+arg(filter.Status))
		}
		if filter.SupervisorID != 0 {
			where = append(where, "sp.supervisor_id = "+arg(filter.SupervisorID))
		}
		if filter.ExaminerID != 0 {
			where = append(where, "p.examiner_id = "+arg(filter.ExaminerID))
		}
		if filter.ModeratorID != 0 {
			where = append(where, "p.moderator_id = "+arg(filter.ModeratorID))
		}
	}

	q := listingSelect
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	if len(ordering) == 0 {
		q += " ORDER BY p.created_at DESC, p.project_id DESC"
	} else {
		q += orderBy("p", ordering, "p.project_id ASC")
	}

	listings := make([]project.Listing, 0)
	if err := repo.db.SelectContext(ctx, &listings, q, args...); err != nil {
		return nil, errors.Wrap(err, "querying projects")
	}
	return listings, nil
}

func (repo *projectRepository) AvailableProjects(ctx context.Context) ([]project.Listing, error) {
	listings := make([]project.Listing, 0)
	q := listingSelect + " WHERE " + projectAvailable + " ORDER BY LOWER(p.title) ASC, p.project_id ASC"
	if err := repo.db.SelectContext(ctx, &listings, q); err != nil {
		return nil, errors.Wrap(err, "querying available projects")
	}
	return listings, nil
}

// assignStudent runs inside a transaction holding the student's row lock.
func assignStudent(ctx context.Context, tx *sqlx.Tx, studentID, projectID int64, at time.Time) (project.Assignment, error) {
	var hasActive bool
	err := tx.GetContext(ctx, &hasActive,
		"SELECT EXISTS (SELECT 1 FROM project_assignments WHERE student_id = $1 AND is_active)", studentID)
	if err != nil {
		return project.Assignment{}, errors.Wrap(err, "checking active project")
	}
	if hasActive {
		return project.Assignment{}, project.ErrActiveProjectExists
	}

	// lock the project row, so concurrent takers queue up behind us
	var available bool
	err = tx.GetContext(ctx, &available,
		"SELECT "+projectAvailable+" FROM projects p WHERE p.project_id = $1 FOR UPDATE", projectID)
	if err != nil {
		return project.Assignment{}, trapNoRowsErr(err, project.ErrNotFound, "checking project availability")
	}
	if !available {
		return project.Assignment{}, project.ErrProjectUnavailable
	}

	var asg project.Assignment
	err = tx.GetContext(ctx, &asg, `INSERT INTO project_assignments (student_id, project_id, is_active, assigned_at)
		VALUES ($1, $2, TRUE, $3)
		RETURNING assignment_id, student_id, project_id, is_active, assigned_at, ended_at`,
		studentID, projectID, at.UTC())
	switch {
	case uniqueViolation(err, "project_assignments_one_active_per_student"):
		return project.Assignment{}, project.ErrActiveProjectExists
	case uniqueViolation(err, "project_assignments_one_active_per_project"):
		return project.Assignment{}, project.ErrProjectUnavailable
	case err != nil:
		return project.Assignment{}, errors.Wrap(err, "inserting assignment")
	}
	return asg, nil
}

func (repo *projectRepository) AssignStudent(ctx context.Context, studentID, projectID int64) (project.Assignment, error) {
	var asg project.Assignment
	err := withTx(ctx, repo.db, func(tx *sqlx.Tx) error {
		if err := lockStudent(ctx, tx, studentID); err != nil {
			return err
		}
		var err error
		asg, err = assignStudent(ctx, tx, studentID, projectID, time.Now())
		return err
	})
	if err != nil {
		return project.Assignment{}, err
	}
	return asg, nil
}

func (repo *projectRepository) ActiveProject(ctx context.Context, studentID int64) (project.ActiveProject, error) {
	q := "SELECT " + projectColumns + `,
			u.user_id AS supervisor_id, u.name AS supervisor_name, u.email AS supervisor_email,
			pa.assignment_id, pa.student_id, pa.assigned_at
		FROM project_assignments pa
		JOIN projects p ON p.project_id = pa.project_id
		JOIN supervisor_projects sp ON sp.project_id = p.project_id
		JOIN users u ON u.user_id = sp.supervisor_id
		WHERE pa.student_id = $1 AND pa.is_active
		ORDER BY sp.supervisor_id ASC
		LIMIT 1`

	var active project.ActiveProject
	if err := repo.db.GetContext(ctx, &active, q, studentID); err != nil {
		return project.ActiveProject{}, trapNoRowsErr(err, project.ErrNoActiveProject, "finding active project")
	}
	return active, nil
}

func (repo *projectRepository) UpdateStatus(ctx context.Context, id int64, status project.Status) (project.Project, error) {
	var prj project.Project
	err := withTx(ctx, repo.db, func(tx *sqlx.Tx) error {
		err := tx.GetContext(ctx, &prj, `UPDATE projects p SET status = $2, updated_at = NOW()
			WHERE p.project_id = $1 RETURNING `+projectColumns, id, status)
		if err != nil {
			return trapNoRowsErr(err, project.ErrNotFound, "updating project status")
		}
		if status == project.StatusArchived {
			_, err = tx.ExecContext(ctx, `UPDATE project_assignments SET is_active = FALSE, ended_at = NOW()
				WHERE project_id = $1 AND is_active`, id)
			return errors.Wrap(err, "ending assignments")
		}
		return nil
	})
	if err != nil {
		return project.Project{}, err
	}
	return prj, nil
}

func (repo *projectRepository) setUser(ctx context.Context, id int64, column string, userID int64) (project.Project, error) {
	var prj project.Project
	err := repo.db.GetContext(ctx, &prj, "UPDATE projects p SET "+column+` = $2, updated_at = NOW()
		WHERE p.project_id = $1 RETURNING `+projectColumns, id, userID)
	if err != nil {
		return project.Project{}, trapNoRowsErr(err, project.ErrNotFound, "updating project "+column)
	}
	return prj, nil
}

func (repo *projectRepository) SetExaminer(ctx context.Context, id, examinerID int64) (project.Project, error) {
	return repo.setUser(ctx, id, "examiner_id", examinerID)
}

func (repo *projectRepository) SetModerator(ctx context.Context, id, moderatorID int64) (project.Project, error) {
	return repo.setUser(ctx, id, "moderator_id", moderatorID)
}

func (repo *projectRepository) SupervisorIDs(ctx context.Context, projectID int64) ([]int64, error) {
	ids := make([]int64, 0, 1)
	err := repo.db.SelectContext(ctx, &ids,
		"SELECT supervisor_id FROM supervisor_projects WHERE project_id = $1 ORDER BY supervisor_id", projectID)
	if err != nil {
		return nil, errors.Wrap(err, "listing project supervisors")
	}
	return ids, nil
}

func (repo *projectRepository) ActiveStudentID(ctx context.Context, projectID int64) (int64, error) {
	ids := make([]int64, 0, 1)
	err := repo.db.SelectContext(ctx, &ids,
		"SELECT student_id FROM project_assignments WHERE project_id = $1 AND is_active", projectID)
	if err != nil {
		return 0, errors.Wrap(err, "finding project holder")
	}
	if len(ids) == 0 {
		return 0, nil
	}
	return ids[0], nil
}
