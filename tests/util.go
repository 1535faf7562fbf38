package testutil

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/trezcool/fyp/core"
	"github.com/trezcool/fyp/core/project"
	"github.com/trezcool/fyp/core/user"
	"github.com/trezcool/fyp/storage/database"
)

// Password satisfies the password policy of every test user.
const Password = "Pa$$w0rd!2024"

func CreateUser(
	t *testing.T,
	repo user.Repository,
	name, email, pwd string,
	roles user.Roles,
	isActive bool,
	createdAt ...time.Time,
) user.User {
	t.Helper()

	tstamp := time.Now().UTC()
	if len(createdAt) > 0 {
		tstamp = createdAt[0].UTC()
	}
	usr := user.User{
		Name:      name,
		Email:     email,
		Roles:     roles,
		IsActive:  isActive,
		CreatedAt: tstamp,
		UpdatedAt: tstamp,
	}
	if pwd != "" {
		if err := usr.SetPassword(pwd); err != nil {
			t.Fatalf("createUser() failed: %v", err)
		}
	}
	usr, err := repo.CreateUser(context.Background(), usr)
	if err != nil {
		t.Fatalf("createUser() failed: %v", err)
	}
	return usr
}

func CreateProject(t *testing.T, repo project.Repository, supervisorID int64, title string) project.Listing {
	t.Helper()

	now := time.Now().UTC()
	lst, err := repo.CreateProject(context.Background(), supervisorID, project.Project{
		Title:          title,
		Description:    "A project description that is long enough.",
		Type:           "Research",
		Specialization: "Software Engineering",
		Status:         project.StatusActive,
		CreatedAt:      now,
		UpdatedAt:      now,
	})
	if err != nil {
		t.Fatalf("createProject() failed: %v", err)
	}
	return lst
}

// PrepareDB opens & migrates the test database, and empties it after the test.
// Tests are skipped unless ENV=TEST and the database is reachable.
func PrepareDB(t *testing.T) *sqlx.DB {
	t.Helper()

	if !strings.EqualFold(os.Getenv("ENV"), "TEST") {
		t.Skip("skipping DB tests: ENV is not TEST")
	}
	conf := core.NewConfig()
	if err := database.CreateIfNotExist(conf); err != nil {
		t.Skipf("skipping DB tests: %v", err)
	}
	db, err := database.Open(conf)
	if err != nil {
		t.Skipf("skipping DB tests: %v", err)
	}
	if err = database.MigrateUp(db.DB); err != nil {
		t.Fatalf("migrating test database: %v", err)
	}

	t.Cleanup(func() {
		_, err := db.Exec(`TRUNCATE evaluations, notifications, progress_reports, progress_logs, proposal_history,
			proposals, project_assignments, supervisor_projects, projects, users RESTART IDENTITY CASCADE`)
		if err != nil {
			t.Errorf("truncating test database: %v", err)
		}
		_ = db.Close()
	})
	return db
}
