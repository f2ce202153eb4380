package main

import (
	"github.com/trezcool/goose"

	appfs "github.com/trezcool/studybuddy/fs"
)

var gooseRunFunc = goose.RunFS // mockable

func (cli *commandLine) migrate(args []string) error {
	return gooseRunFunc(args[0], cli.db, appfs.FS, "migrations", args[1:]...)
}
