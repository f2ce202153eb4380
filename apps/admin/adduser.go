package main

import (
	"context"

	"github.com/trezcool/studybuddy/core/user"
)

func (cli *commandLine) addUser(uname, email, pwd string) error {
	ctx := context.Background()
	nu := user.NewUser{Username: uname, Email: email, Password: pwd}
	if err := nu.Validate(ctx, cli.validate, cli.usrSvc); err != nil {
		return cli.translate(err)
	}
	_, err := cli.usrSvc.Register(ctx, nu)
	return err
}
