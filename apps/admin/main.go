package main

import (
	"fmt"
	"log"
	"os"

	"github.com/fnelms/backend/core"
	"github.com/fnelms/backend/core/assessment"
	"github.com/fnelms/backend/core/enrollment"
	emailsvc "github.com/fnelms/backend/services/email"
	logsvc "github.com/fnelms/backend/services/logger"
	"github.com/fnelms/backend/storage/database"
	sqlxrepos "github.com/fnelms/backend/storage/database/sqlx"
)

func main() {
	conf := core.NewConfig()

	logger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)
	logger.Enable(!conf.Debug)

	// set up DB
	if err := database.CreateIfNotExist(conf); err != nil {
		logger.Fatal(fmt.Sprintf("setting up database: %v", err), err)
	}
	db, err := database.Open(conf)
	if err != nil {
		logger.Fatal(fmt.Sprintf("opening database: %v", err), err)
	}
	defer db.Close()

	// set up services
	var mailSvc core.EmailService
	if conf.Debug {
		mailSvc = emailsvc.NewConsoleService(conf)
	} else {
		mailSvc = emailsvc.NewSendgridService(conf, logger)
	}
	enrollRepo := sqlxrepos.NewEnrollmentRepository(db)

	core.ParseEmailTemplates(conf, logger)

	// start CLI
	cli := commandLine{
		out:        os.Stdout,
		assessSvc:  assessment.NewService(sqlxrepos.NewAssessmentRepository(db)),
		enrollSvc:  enrollment.NewService(enrollRepo, mailSvc, conf),
		enrollRepo: enrollRepo,
	}
	if err := cli.run(os.Args); err != nil {
		if err != errHelp {
			logger.Error(fmt.Sprintf("error: %v", err), err)
		}
		os.Exit(1)
	}
}
