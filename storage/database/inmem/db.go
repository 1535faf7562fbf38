package inmemdb

import (
	"strings"
	"sync"

	"github.com/trezcool/fyp/core"
	"github.com/trezcool/fyp/core/evaluation"
	"github.com/trezcool/fyp/core/notification"
	"github.com/trezcool/fyp/core/progress"
	"github.com/trezcool/fyp/core/project"
	"github.com/trezcool/fyp/core/proposal"
	"github.com/trezcool/fyp/core/user"
)

type supervisorProject struct {
	supervisorID int64
	projectID    int64
}

// DB is an in-memory store shared by all in-memory repositories.
// A single lock guards every table, so multi-table operations are atomic.
type DB struct {
	mu  sync.RWMutex
	seq map[string]int64

	users              map[int64]user.User
	projects           map[int64]project.Project
	supervisorProjects []supervisorProject
	assignments        map[int64]project.Assignment
	proposals          map[int64]proposal.Proposal
	history            []proposal.History
	logs               map[int64]progress.Log
	reports            map[int64]progress.Report
	notifications      map[int64]notification.Notification
	evaluations        map[int64]evaluation.Evaluation
}

func NewDB() *DB {
	db := new(DB)
	db.reset()
	return db
}

// Reset empties every table.
func (db *DB) Reset() {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.reset()
}

func (db *DB) reset() {
	db.seq = make(map[string]int64)
	db.users = make(map[int64]user.User)
	db.projects = make(map[int64]project.Project)
	db.supervisorProjects = nil
	db.assignments = make(map[int64]project.Assignment)
	db.proposals = make(map[int64]proposal.Proposal)
	db.history = nil
	db.logs = make(map[int64]progress.Log)
	db.reports = make(map[int64]progress.Report)
	db.notifications = make(map[int64]notification.Notification)
	db.evaluations = make(map[int64]evaluation.Evaluation)
}

func (db *DB) nextID(table string) int64 {
	db.seq[table]++
	return db.seq[table]
}

func (db *DB) userName(id int64) string {
	return db.users[id].Name
}

func (db *DB) projectTitle(id int64) string {
	return db.projects[id].Title
}

func (db *DB) supervisorIDs(projectID int64) []int64 {
	ids := make([]int64, 0, 1)
	for _, sp := range db.supervisorProjects {
		if sp.projectID == projectID {
			ids = append(ids, sp.supervisorID)
		}
	}
	return ids
}

func (db *DB) supervises(supervisorID, projectID int64) bool {
	for _, sp := range db.supervisorProjects {
		if sp.projectID == projectID && sp.supervisorID == supervisorID {
			return true
		}
	}
	return false
}

func (db *DB) activeAssignmentOfStudent(studentID int64) (project.Assignment, bool) {
	for _, a := range db.assignments {
		if a.IsActive && a.StudentID == studentID {
			return a, true
		}
	}
	return project.Assignment{}, false
}

func (db *DB) activeAssignmentOfProject(projectID int64) (project.Assignment, bool) {
	for _, a := range db.assignments {
		if a.IsActive && a.ProjectID == projectID {
			return a, true
		}
	}
	return project.Assignment{}, false
}

func (db *DB) approvedForAnyone(projectID int64) bool {
	for _, p := range db.proposals {
		if p.ProjectID != nil && *p.ProjectID == projectID && p.Status == proposal.StatusApproved {
			return true
		}
	}
	return false
}

func (db *DB) available(projectID int64) bool {
	prj, ok := db.projects[projectID]
	if !ok || prj.Status != project.StatusActive {
		return false
	}
	if _, held := db.activeAssignmentOfProject(projectID); held {
		return false
	}
	return !db.approvedForAnyone(projectID)
}

// containsFold is a case-insensitive strings.Contains, like ILIKE '%sub%'.
func containsFold(s, sub string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(sub))
}

// orderedLess builds a sort.SliceStable less func from ordering.
// cmp compares items i & j on a column and returns -1, 0 or 1.
func orderedLess(ordering []core.DBOrdering, cmp func(i, j int, column string) int) func(i, j int) bool {
	return func(i, j int) bool {
		for _, ord := range ordering {
			c := cmp(i, j, ord.Field)
			if c == 0 {
				continue
			}
			if ord.Ascending {
				return c < 0
			}
			return c > 0
		}
		return false
	}
}

func cmpInt64(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func cmpString(a, b string) int {
	return strings.Compare(strings.ToLower(a), strings.ToLower(b))
}
