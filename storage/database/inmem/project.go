package inmemdb

import (
	"context"
	"sort"
	"time"

	"github.com/trezcool/fyp/core"
	"github.com/trezcool/fyp/core/project"
)

type projectRepository struct {
	db *DB
}

var _ project.Repository = (*projectRepository)(nil) // interface compliance check

func NewProjectRepository(db *DB) *projectRepository {
	return &projectRepository{db: db}
}

var defaultProjectOrdering = []core.DBOrdering{{Field: "created_at"}, {Field: "project_id"}}

func (repo *projectRepository) listing(prj project.Project, supervisorID int64) project.Listing {
	sup := repo.db.users[supervisorID]
	return project.Listing{
		Project:         prj,
		SupervisorID:    sup.ID,
		SupervisorName:  sup.Name,
		SupervisorEmail: sup.Email,
	}
}

// listings returns one Listing per (project, supervisor) pair matching keep.
func (repo *projectRepository) listings(keep func(prj project.Project, supervisorID int64) bool) []project.Listing {
	out := make([]project.Listing, 0)
	for _, sp := range repo.db.supervisorProjects {
		prj, ok := repo.db.projects[sp.projectID]
		if !ok || !keep(prj, sp.supervisorID) {
			continue
		}
		out = append(out, repo.listing(prj, sp.supervisorID))
	}
	return out
}

func sortListings(listings []project.Listing, ordering []core.DBOrdering) {
	if len(ordering) == 0 {
		ordering = defaultProjectOrdering
	} else {
		ordering = append(append([]core.DBOrdering{}, ordering...), core.DBOrdering{Field: "project_id", Ascending: true})
	}
	sort.SliceStable(listings, orderedLess(ordering, func(i, j int, column string) int {
		a, b := listings[i], listings[j]
		switch column {
		case "project_id":
			return cmpInt64(a.ID, b.ID)
		case "title":
			return cmpString(a.Title, b.Title)
		case "status":
			return cmpString(string(a.Status), string(b.Status))
		case "created_at":
			return cmpTime(a.CreatedAt, b.CreatedAt)
		}
		return 0
	}))
}

func (repo *projectRepository) CreateProject(_ context.Context, supervisorID int64, prj project.Project) (project.Listing, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	prj.ID = repo.db.nextID("projects")
	repo.db.projects[prj.ID] = prj
	repo.db.supervisorProjects = append(repo.db.supervisorProjects, supervisorProject{supervisorID: supervisorID, projectID: prj.ID})
	return repo.listing(prj, supervisorID), nil
}

func (repo *projectRepository) GetProject(_ context.Context, id int64) (project.Project, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	if prj, ok := repo.db.projects[id]; ok {
		return prj, nil
	}
	return project.Project{}, project.ErrNotFound
}

func (repo *projectRepository) QueryProjects(_ context.Context, filter *project.QueryFilter, ordering []core.DBOrdering) ([]project.Listing, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	listings := repo.listings(func(prj project.Project, supervisorID int64) bool {
		if filter == nil {
			return true
		}
		if filter.Search != "" && !(containsFold(prj.Title, filter.Search) || containsFold(prj.Description, filter.Search)) {
			return false
		}
		if filter.Status != "" && prj.Status != filter.Status {
			return false
		}
		if filter.SupervisorID != 0 && supervisorID != filter.SupervisorID {
			return false
		}
		if filter.ExaminerID != 0 && (prj.ExaminerID == nil || *prj.ExaminerID != filter.ExaminerID) {
			return false
		}
		if filter.ModeratorID != 0 && (prj.ModeratorID == nil || *prj.ModeratorID != filter.ModeratorID) {
			return false
		}
		return true
	})
	sortListings(listings, ordering)
	return listings, nil
}

func (repo *projectRepository) AvailableProjects(_ context.Context) ([]project.Listing, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	listings := repo.listings(func(prj project.Project, _ int64) bool {
		return repo.db.available(prj.ID)
	})
	sortListings(listings, []core.DBOrdering{{Field: "title", Ascending: true}})
	return listings, nil
}

// assignStudent expects the write lock to be held.
func (db *DB) assignStudent(studentID, projectID int64, at time.Time) (project.Assignment, error) {
	if _, ok := db.activeAssignmentOfStudent(studentID); ok {
		return project.Assignment{}, project.ErrActiveProjectExists
	}
	if !db.available(projectID) {
		return project.Assignment{}, project.ErrProjectUnavailable
	}
	asg := project.Assignment{
		ID:         db.nextID("project_assignments"),
		StudentID:  studentID,
		ProjectID:  projectID,
		IsActive:   true,
		AssignedAt: at,
	}
	db.assignments[asg.ID] = asg
	return asg, nil
}

func (repo *projectRepository) AssignStudent(_ context.Context, studentID, projectID int64) (project.Assignment, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if _, ok := repo.db.projects[projectID]; !ok {
		return project.Assignment{}, project.ErrNotFound
	}
	return repo.db.assignStudent(studentID, projectID, time.Now().UTC())
}

func (repo *projectRepository) ActiveProject(_ context.Context, studentID int64) (project.ActiveProject, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	asg, ok := repo.db.activeAssignmentOfStudent(studentID)
	if !ok {
		return project.ActiveProject{}, project.ErrNoActiveProject
	}
	var supervisorID int64
	if ids := repo.db.supervisorIDs(asg.ProjectID); len(ids) > 0 {
		sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
		supervisorID = ids[0]
	}
	return project.ActiveProject{
		Listing:      repo.listing(repo.db.projects[asg.ProjectID], supervisorID),
		AssignmentID: asg.ID,
		StudentID:    asg.StudentID,
		AssignedAt:   asg.AssignedAt,
	}, nil
}

func (repo *projectRepository) UpdateStatus(_ context.Context, id int64, status project.Status) (project.Project, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	prj, ok := repo.db.projects[id]
	if !ok {
		return project.Project{}, project.ErrNotFound
	}
	now := time.Now().UTC()
	prj.Status = status
	prj.UpdatedAt = now
	repo.db.projects[id] = prj

	if status == project.StatusArchived {
		for aid, a := range repo.db.assignments {
			if a.ProjectID == id && a.IsActive {
				a.IsActive = false
				a.EndedAt = &now
				repo.db.assignments[aid] = a
			}
		}
	}
	return prj, nil
}

func (repo *projectRepository) update(id int64, apply func(prj *project.Project)) (project.Project, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	prj, ok := repo.db.projects[id]
	if !ok {
		return project.Project{}, project.ErrNotFound
	}
	apply(&prj)
	prj.UpdatedAt = time.Now().UTC()
	repo.db.projects[id] = prj
	return prj, nil
}

func (repo *projectRepository) SetExaminer(_ context.Context, id, examinerID int64) (project.Project, error) {
	return repo.update(id, func(prj *project.Project) { prj.ExaminerID = &examinerID })
}

func (repo *projectRepository) SetModerator(_ context.Context, id, moderatorID int64) (project.Project, error) {
	return repo.update(id, func(prj *project.Project) { prj.ModeratorID = &moderatorID })
}

func (repo *projectRepository) SupervisorIDs(_ context.Context, projectID int64) ([]int64, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()
	return repo.db.supervisorIDs(projectID), nil
}

func (repo *projectRepository) ActiveStudentID(_ context.Context, projectID int64) (int64, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	if asg, ok := repo.db.activeAssignmentOfProject(projectID); ok {
		return asg.StudentID, nil
	}
	return 0, nil
}
