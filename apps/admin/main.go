package main

import (
	"context"
	"log"
	"os"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/teleapo/core"
	"github.com/trezcool/teleapo/core/user"
	cachesvc "github.com/trezcool/teleapo/services/cache"
	logsvc "github.com/trezcool/teleapo/services/logger"
	"github.com/trezcool/teleapo/storage/database"
	sqlxrepos "github.com/trezcool/teleapo/storage/database/sqlx"
)

var logger *log.Logger

func main() {
	exitCode := 0
	defer func() { os.Exit(exitCode) }()

	logger = log.New(os.Stdout, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)
	conf := core.NewConfig()
	if conf.Database.Engine != "postgres" {
		logger.Fatalf("the admin commands need a postgres database (engine is %q)", conf.Database.Engine)
	}

	// set up DB
	db, err := database.Open(conf)
	errAndDie(err)

	// set up services
	appLogger := logsvc.NewRollbarLogger(logger, conf)
	var cache user.Cache
	if conf.Redis.Addr != "" {
		rdb, err := cachesvc.NewClient(context.Background(), conf)
		errAndDie(err)
		defer func() { _ = rdb.Close() }()
		cache = cachesvc.NewUserCache(rdb, conf.Redis.UserTTL)
	}
	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)

	// start CLI
	cli := commandLine{
		db:       db,
		usrSvc:   user.NewService(sqlxrepos.NewUserRepository(db), cache, nil, appLogger, conf.OwnerOpenID),
		validate: validate,
	}
	if err := cli.run(os.Args); err != nil {
		if err != errHelp {
			logger.Printf("\nerror: %s\n", err)
		}
		exitCode = 1
	}
	_ = db.Close()
}

func errAndDie(err error) {
	if err != nil {
		logger.Fatal(err)
	}
}
