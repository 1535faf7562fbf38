package main

import (
	"context"
	"fmt"

	"github.com/trezcool/fyp/core/user"
)

// addUser creates an active user.User. Existing emails are refused.
func (cli *commandLine) addUser(name, email, pwd string, roles []user.Role) error {
	usr, err := cli.usrSvc.Create(context.Background(), user.NewUser{
		Name:            name,
		Email:           email,
		Password:        pwd,
		PasswordConfirm: pwd,
		Roles:           roles,
	})
	if err != nil {
		return err
	}
	fmt.Printf("user #%d created: %s <%s> %v\n", usr.ID, usr.Name, usr.Email, usr.Roles)
	return nil
}
