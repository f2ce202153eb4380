package main

import (
	"context"

	"github.com/trezcool/studybuddy/core/user"
)

func (cli *commandLine) resetPassword(uname, pwd, pwdConfirm string) error {
	ctx := context.Background()
	usr, err := cli.usrSvc.GetByUsernameOrEmail(ctx, uname)
	if err != nil {
		return err
	}
	rp := user.ResetPassword{Password: pwd, PasswordConfirm: pwdConfirm, User: usr}
	if err := rp.Validate(cli.validate); err != nil {
		return cli.translate(err)
	}
	_, err = cli.usrSvc.SetPassword(ctx, usr, pwd)
	return err
}
