package main

import (
	"context"
	"expvar"
	"fmt"
	"net/http"
	_ "net/http/pprof"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	echoapi "github.com/trezcool/studybuddy/apps/api/echo"
	"github.com/trezcool/studybuddy/core"
	"github.com/trezcool/studybuddy/core/chat"
	"github.com/trezcool/studybuddy/core/notes"
	"github.com/trezcool/studybuddy/core/user"
	emailsvc "github.com/trezcool/studybuddy/services/email"
	"github.com/trezcool/studybuddy/services/genai/gemini"
	logsvc "github.com/trezcool/studybuddy/services/logger"
	"github.com/trezcool/studybuddy/services/objectstore/gcs"
	"github.com/trezcool/studybuddy/storage/database"
	inmemdb "github.com/trezcool/studybuddy/storage/database/inmem"
	sqlxrepos "github.com/trezcool/studybuddy/storage/database/sqlx"
	mongostore "github.com/trezcool/studybuddy/storage/docstore/mongo"
)

const connectTimeout = 30 * time.Second

func main() {
	// =========================================================================
	// Set up Dependencies

	conf := core.NewConfig()

	// set up loggers
	zl, err := newZap(conf)
	if err != nil {
		panic(fmt.Sprintf("setting up zap: %v", err))
	}
	defer zl.Sync() //nolint:errcheck

	logger := logsvc.NewRollbarLogger(zl.Named("API"), conf)
	logger.Enable(!conf.Debug)

	dbLogger := logsvc.NewRollbarLogger(zl.Named("DB"), conf)
	dbLogger.Enable(!conf.Debug)

	// set up stores
	memDB := inmemdb.NewDB()

	var usrRepo user.Repository
	if conf.Database.Enabled() {
		db, err := database.Open(conf)
		if err != nil {
			logger.Fatal(fmt.Sprintf("setting up database: %v", err), err)
		}
		defer func() {
			if err := db.Close(); err != nil {
				dbLogger.Error("Failed to close", err)
			}
		}()

		ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
		err = database.Ping(ctx, db)
		cancel()
		if err != nil {
			logger.Fatal(fmt.Sprintf("pinging database: %v", err), err)
		}
		if err = database.Migrate(db.DB); err != nil {
			logger.Fatal(fmt.Sprintf("migrating database: %v", err), err)
		}
		usrRepo = sqlxrepos.NewUserRepository(db)
	} else {
		logger.Warn("No database configured, users are kept in memory")
		usrRepo = inmemdb.NewUserRepository(memDB)
	}

	var profiles notes.ProfileRepository
	if conf.Mongo.Enabled() {
		ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
		client, err := mongostore.Connect(ctx, conf)
		cancel()
		if err != nil {
			logger.Fatal(fmt.Sprintf("connecting to mongo: %v", err), err)
		}
		defer func() {
			if err := client.Disconnect(context.Background()); err != nil {
				dbLogger.Error("Failed to disconnect", err)
			}
		}()
		profiles = mongostore.NewProfileRepository(mongostore.Collection(client, conf))
	} else {
		logger.Warn("No document store configured, profiles are kept in memory")
		profiles = inmemdb.NewProfileRepository(memDB)
	}

	// set up external services
	var store notes.ObjectStore
	if conf.Storage.Enabled() {
		gcsStore, err := gcs.NewStore(context.Background(), conf)
		if err != nil {
			logger.Fatal(fmt.Sprintf("setting up object storage: %v", err), err)
		}
		defer gcsStore.Close()
		store = gcsStore
	} else {
		logger.Warn("No storage bucket configured, file uploads are disabled")
	}

	var ai chat.Completer
	if conf.AI.Enabled() {
		client, err := gemini.NewClient(context.Background(), conf)
		if err != nil {
			logger.Fatal(fmt.Sprintf("setting up AI client: %v", err), err)
		}
		defer client.Close()
		ai = client
	} else {
		logger.Warn("No AI key configured, chat answers come from the fallback rules")
	}

	var mailSvc core.EmailService
	if conf.Debug || conf.SendgridApiKey == "" {
		mailSvc = emailsvc.NewConsoleService(logger, conf)
	} else {
		mailSvc = emailsvc.NewSendgridService(logger, conf)
	}

	// set up app services
	notesSvc := notes.NewService(profiles, store, conf)
	usrSvc := user.NewService(usrRepo, notesSvc, mailSvc, conf)
	chatSvc := chat.NewService(ai, chat.NewHistory(), logger, conf)

	// =========================================================================
	// Initialize App

	logger.Info(fmt.Sprintf("Application initializing : version %q", conf.Build))
	defer logger.Info("Application stopped")

	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)

	// =========================================================================
	// Start Debug Service
	//
	// /debug/pprof - Added to the default mux by importing the net/http/pprof package.
	// /debug/vars - Added to the default mux by importing the expvar package.

	// Expose important info under /debug/vars.
	expvar.NewString("build").Set(conf.Build)
	expvar.NewString("env").Set(conf.Env)

	go func() {
		if err := http.ListenAndServe(conf.Server.DebugHost, http.DefaultServeMux); err != nil {
			logger.Error(fmt.Sprintf("debug server closed: %v", err), err)
		}
	}()

	// =========================================================================
	// Start API Service

	server := echoapi.NewServer(echoapi.ServerDeps{
		Conf:       conf,
		Logger:     logger,
		UserSvc:    usrSvc,
		NotesSvc:   notesSvc,
		ChatSvc:    chatSvc,
		Validate:   validate,
		Translator: translator,
	})

	go func() {
		server.Start()
	}()

	// =========================================================================
	// Shutdown

	select {
	case err := <-server.Errors():
		logger.Error(fmt.Sprintf("server error: %v", err), err)

	case sig := <-server.ShutdownSignal():
		logger.Info(fmt.Sprintf("%v: Start shutdown...", sig))

		// give outstanding requests a deadline for completion
		ctx, cancel := context.WithTimeout(context.Background(), conf.Server.ShutdownTimeout)
		defer cancel()

		// asking listener to shutdown and shed load
		if err := server.Shutdown(ctx); err != nil {
			logger.Error(fmt.Sprintf("could not stop server gracefully: %v", err), err)

			if err = server.Close(); err != nil {
				logger.Error(fmt.Sprintf("could not force stop server: %v", err), err)
			}
		}
	}
}

func newZap(conf *core.Config) (*zap.Logger, error) {
	if conf.Debug {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
