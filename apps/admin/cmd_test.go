package main

import (
	"context"
	"database/sql"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/fyp/core"
	"github.com/trezcool/fyp/core/user"
	"github.com/trezcool/fyp/tests"
)

func setup(t *testing.T) (*commandLine, *testutil.App) {
	app := testutil.NewApp(t)
	return &commandLine{usrSvc: app.Users}, app
}

type cliTest struct {
	name    string
	args    []string // without program name
	pwd     string
	wantErr error
}

func runCLITests(t *testing.T, cli *commandLine, tests []cliTest) {
	t.Helper()

	for _, tt := range tests {
		tt := tt
		args := append([]string{"admin"}, tt.args...)

		t.Run(tt.name, func(t *testing.T) {
			readPasswordFunc = func(fd int) ([]byte, error) {
				return []byte(tt.pwd), nil
			}

			err := cli.run(args)
			if tt.wantErr == nil {
				assert.NoError(t, err)
			} else {
				assert.Equal(t, tt.wantErr, errors.Cause(err))
			}
		})
	}
}

func Test_commandLine_migrate(t *testing.T) {
	cli, _ := setup(t)

	var gotCommand string
	var gotArgs []string
	migrateFunc = func(db *sql.DB, command string, args ...string) error {
		gotCommand, gotArgs = command, args
		return nil
	}

	runCLITests(t, cli, []cliTest{
		{name: "no command", wantErr: errHelp},
		{name: "unknown command", args: []string{"lol"}, wantErr: errHelp},
		{name: "no subcommand", args: []string{"migrate"}, wantErr: errHelp},
		{name: "up", args: []string{"migrate", "up"}},
	})
	assert.Equal(t, "up", gotCommand)
	assert.Empty(t, gotArgs)

	runCLITests(t, cli, []cliTest{{name: "up-to", args: []string{"migrate", "up-to", "3"}}})
	assert.Equal(t, "up-to", gotCommand)
	assert.Equal(t, []string{"3"}, gotArgs)
}

func Test_commandLine_addUser(t *testing.T) {
	cli, app := setup(t)
	app.CreateUser(t, "Dr. Wanjiru", "wanjiru@uni.test", user.RoleSupervisor)

	runCLITests(t, cli, []cliTest{
		{name: "no args", args: []string{"adduser"}, wantErr: errHelp},
		{name: "roles required", args: []string{"adduser", "-name", "Grace", "-email", "grace@uni.test"}, wantErr: errHelp},
		{
			name: "no password", args: []string{"adduser", "-name", "Grace", "-email", "grace@uni.test", "-roles", "manager"},
			wantErr: errHelp,
		},
	})

	t.Run("unknown role", func(t *testing.T) {
		err := cli.run([]string{"admin", "adduser", "-name", "Grace", "-email", "grace@uni.test", "-roles", "manager,janitor"})
		assert.Error(t, err)
	})

	t.Run("existing email", func(t *testing.T) {
		readPasswordFunc = func(fd int) ([]byte, error) { return []byte(testutil.Password), nil }
		err := cli.run([]string{"admin", "adduser", "-name", "Someone", "-email", "wanjiru@uni.test", "-roles", "manager"})
		var vErr *core.ValidationError
		require.ErrorAs(t, err, &vErr)
	})

	runCLITests(t, cli, []cliTest{
		{
			name: "valid", args: []string{"adduser", "-name", "Grace Manager", "-email", "Grace@Uni.test", "-roles", "manager, moderator"},
			pwd: testutil.Password,
		},
	})

	usr, err := app.Users.GetByEmail(context.Background(), "grace@uni.test")
	require.NoError(t, err)
	assert.True(t, usr.IsActive)
	assert.ElementsMatch(t, []user.Role{user.RoleManager, user.RoleModerator}, usr.Roles)
	assert.NoError(t, usr.CheckPassword(testutil.Password))
}

func Test_commandLine_resetPassword(t *testing.T) {
	cli, app := setup(t)
	usr := app.CreateUser(t, "Amina Otieno", "amina@uni.test", user.RoleStudent)
	newPwd := "N3w-Pa$$phrase!"

	runCLITests(t, cli, []cliTest{
		{name: "no args", args: []string{"resetpassword"}, wantErr: errHelp},
		{name: "email but no password", args: []string{"resetpassword", "-email", usr.Email}, wantErr: errHelp},
		{name: "user not found", args: []string{"resetpassword", "-email", "nobody@uni.test"}, pwd: newPwd, wantErr: user.ErrNotFound},
		{name: "reset", args: []string{"resetpassword", "-email", "AMINA@uni.test"}, pwd: newPwd},
	})

	refreshed, err := app.Users.GetByID(context.Background(), usr.ID)
	require.NoError(t, err)
	assert.NoError(t, refreshed.CheckPassword(newPwd))
	assert.Error(t, refreshed.CheckPassword(testutil.Password))
}

func Test_commandLine_deactivate(t *testing.T) {
	cli, app := setup(t)
	usr := app.CreateUser(t, "Amina Otieno", "amina@uni.test", user.RoleStudent)

	runCLITests(t, cli, []cliTest{
		{name: "no args", args: []string{"deactivate"}, wantErr: errHelp},
		{name: "user not found", args: []string{"deactivate", "-email", "nobody@uni.test"}, wantErr: user.ErrNotFound},
		{name: "deactivate", args: []string{"deactivate", "-email", usr.Email}},
	})

	refreshed, err := app.Users.GetByID(context.Background(), usr.ID)
	require.NoError(t, err)
	assert.False(t, refreshed.IsActive)
}
