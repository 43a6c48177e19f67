package main

import (
	"errors"
	"flag"
	"fmt"
	"io"

	"github.com/fnelms/backend/core/assessment"
	"github.com/fnelms/backend/core/enrollment"
)

var errHelp = errors.New("help provided")

type commandLine struct {
	out        io.Writer
	assessSvc  *assessment.Service
	enrollSvc  *enrollment.Service
	enrollRepo enrollment.Repository
}

func (cli *commandLine) printUsage() {
	fmt.Fprintln(cli.out, "Usage:")
	fmt.Fprintln(cli.out, "  recalculate -instance ID | -school ID  - recompute and store assessment scores")
	fmt.Fprintln(cli.out, "  reconcile -course ID [-user ID] [-apply] [-email]  - detect enrollment drift; -apply to fix it")
	fmt.Fprintln(cli.out, "  report -course ID  - print progress-tracking diagnostics for a course")
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	recalculateCmd := flag.NewFlagSet("recalculate", flag.ExitOnError)
	recalculateInstance := recalculateCmd.String("instance", "", "Assessment instance ID to recalculate.")
	recalculateSchool := recalculateCmd.String("school", "", "School ID; recalculates all of its completed instances.")

	reconcileCmd := flag.NewFlagSet("reconcile", flag.ExitOnError)
	reconcileCourse := reconcileCmd.String("course", "", "Course ID to reconcile.")
	reconcileUser := reconcileCmd.String("user", "", "Limit reconciliation to one user.")
	reconcileApply := reconcileCmd.Bool("apply", false, "Write corrected enrollment rows. Default is a dry run.")
	reconcileEmail := reconcileCmd.Bool("email", false, "Email a drift report to the admin address.")

	reportCmd := flag.NewFlagSet("report", flag.ExitOnError)
	reportCourse := reportCmd.String("course", "", "Course ID to diagnose.")

	switch args[1] {
	case "recalculate":
		if err := recalculateCmd.Parse(args[2:]); err != nil {
			return err
		}
		if (*recalculateInstance == "") == (*recalculateSchool == "") {
			recalculateCmd.Usage()
			return errHelp
		}
		if *recalculateInstance != "" {
			return cli.recalculateInstance(*recalculateInstance)
		}
		return cli.recalculateSchool(*recalculateSchool)
	case "reconcile":
		if err := reconcileCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *reconcileCourse == "" {
			reconcileCmd.Usage()
			return errHelp
		}
		return cli.reconcile(*reconcileCourse, *reconcileUser, *reconcileApply, *reconcileEmail)
	case "report":
		if err := reportCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *reportCourse == "" {
			reportCmd.Usage()
			return errHelp
		}
		return cli.report(*reportCourse)
	default:
		cli.printUsage()
		return errHelp
	}
}
