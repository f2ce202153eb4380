package main

import (
	"context"
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/trezcool/studybuddy/core"
	"github.com/trezcool/studybuddy/core/user"
	logsvc "github.com/trezcool/studybuddy/services/logger"
	"github.com/trezcool/studybuddy/storage/database"
	sqlxrepos "github.com/trezcool/studybuddy/storage/database/sqlx"
)

func main() {
	conf := core.NewConfig()

	zl, err := zap.NewDevelopment()
	if err != nil {
		panic(fmt.Sprintf("setting up zap: %v", err))
	}
	logger := logsvc.NewZapLogger(zl.Named("ADMIN"))
	defer logger.Sync() //nolint:errcheck

	if !conf.Database.Enabled() {
		logger.Fatal("no database configured, set the DATABASE_HOST variable")
	}

	// set up DB
	db, err := database.Open(conf)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up database: %v", err), err)
	}
	defer db.Close()
	if err = database.Ping(context.Background(), db); err != nil {
		logger.Fatal(fmt.Sprintf("pinging database: %v", err), err)
	}

	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)

	// start CLI; profiles are created lazily by the API on first use
	cli := commandLine{
		db:         db.DB,
		usrSvc:     user.NewService(sqlxrepos.NewUserRepository(db), nil, nil, conf),
		validate:   validate,
		translator: translator,
	}
	if err := cli.run(os.Args); err != nil {
		if err != errHelp {
			logger.Error(fmt.Sprintf("error: %s", err), err)
		}
		db.Close()
		os.Exit(1)
	}
}
