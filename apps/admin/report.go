package main

import (
	"context"
	"fmt"
	"sort"
)

// report prints progress-tracking diagnostics for a course: structure counts,
// per-user event/lesson tallies and a drift breakdown by kind.
func (cli *commandLine) report(courseID string) error {
	ctx := context.Background()

	structure, err := cli.enrollRepo.GetCourseStructure(ctx, courseID)
	if err != nil {
		return err
	}
	var blocks int
	for _, count := range structure.Lessons {
		blocks += count
	}
	fmt.Fprintf(cli.out, "course %s: %d lessons, %d blocks\n", courseID, len(structure.Lessons), blocks)

	findings, err := cli.enrollSvc.ReconcileCourse(ctx, courseID)
	if err != nil {
		return err
	}

	byKind := make(map[string]int)
	var enrolled, drifted int
	for _, finding := range findings {
		if finding.Cached != nil {
			enrolled++
		}
		status := "ok"
		if finding.Mismatch != nil {
			drifted++
			byKind[string(finding.Mismatch.Kind)]++
			status = string(finding.Mismatch.Kind)
		}
		fmt.Fprintf(cli.out, "  user %s: %d/%d lessons, %d%% [%s]\n",
			finding.Computed.UserID, finding.Computed.LessonsCompleted, len(structure.Lessons),
			finding.Computed.ProgressPercentage, status)
	}

	fmt.Fprintf(cli.out, "users: %d total, %d enrolled, %d drifted\n", len(findings), enrolled, drifted)
	kinds := make([]string, 0, len(byKind))
	for kind := range byKind {
		kinds = append(kinds, kind)
	}
	sort.Strings(kinds)
	for _, kind := range kinds {
		fmt.Fprintf(cli.out, "  %s: %d\n", kind, byKind[kind])
	}
	return nil
}
