package main

import (
	"context"
	"fmt"

	"github.com/fnelms/backend/core/enrollment"
)

func (cli *commandLine) reconcile(courseID, userID string, apply, email bool) error {
	ctx := context.Background()

	var findings []enrollment.Finding
	if userID != "" {
		finding, err := cli.enrollSvc.ReconcileUser(ctx, userID, courseID)
		if err != nil {
			return err
		}
		findings = []enrollment.Finding{finding}
	} else {
		var err error
		if findings, err = cli.enrollSvc.ReconcileCourse(ctx, courseID); err != nil {
			return err
		}
	}

	var mismatched int
	for _, finding := range findings {
		if finding.Mismatch == nil {
			continue
		}
		mismatched++
		fmt.Fprintf(cli.out, "user %s: %s (cached=%d%% computed=%d%%)\n",
			finding.Computed.UserID, finding.Mismatch.Kind,
			finding.Mismatch.CachedProgress, finding.Mismatch.ComputedProgress)
	}
	fmt.Fprintf(cli.out, "course %s: %d users checked, %d mismatched\n", courseID, len(findings), mismatched)

	if apply {
		applied, err := cli.enrollSvc.ApplyAll(ctx, findings)
		if err != nil {
			return err
		}
		fmt.Fprintf(cli.out, "applied %d corrections\n", applied)
	} else {
		fmt.Fprintln(cli.out, "dry run; use -apply to write corrections")
	}

	if email {
		cli.enrollSvc.SendDriftReport(courseID, findings, !apply)
	}
	return nil
}
