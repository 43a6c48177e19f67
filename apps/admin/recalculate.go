package main

import (
	"context"
	"fmt"

	"github.com/fnelms/backend/core/assessment"
)

func (cli *commandLine) recalculateInstance(instanceID string) error {
	ctx := context.Background()
	summary, err := cli.assessSvc.Recalculate(ctx, instanceID)
	if err != nil {
		return err
	}

	fmt.Fprintf(cli.out, "instance %s: score=%.2f level=%d/%d meets=%t\n",
		summary.InstanceID, summary.TotalScore, summary.OverallLevel, summary.ExpectedLevel, summary.MeetsExpectations)
	for _, mod := range summary.ModuleScores {
		empty := ""
		if mod.Empty {
			empty = " (no responses)"
		}
		fmt.Fprintf(cli.out, "  module %s: score=%.2f level=%d%s\n", mod.ModuleID, mod.NormalizedScore, mod.Level, empty)
	}
	cli.printGapAnalysis(summary.GapAnalysis)
	return nil
}

func (cli *commandLine) recalculateSchool(schoolID string) error {
	ctx := context.Background()
	overview, err := cli.assessSvc.RecalculateSchool(ctx, schoolID)
	if err != nil {
		return err
	}

	fmt.Fprintf(cli.out, "school %s: %d instances, avg score=%.2f avg level=%.2f\n",
		schoolID, overview.Overall.Count, overview.Overall.AvgScore, overview.Overall.AvgLevel)
	for _, area := range overview.ByArea {
		fmt.Fprintf(cli.out, "  area %s: %d instances, avg score=%.2f, critical=%d behind=%d\n",
			area.Area, area.Count, area.AvgScore, area.Stats.Critical, area.Stats.Behind)
	}
	for _, ind := range overview.TopCriticalIndicators {
		fmt.Fprintf(cli.out, "  critical indicator %s: %d occurrences\n", ind.IndicatorID, ind.Count)
	}
	return nil
}

func (cli *commandLine) printGapAnalysis(ga assessment.GapAnalysis) {
	fmt.Fprintf(cli.out, "  gaps: critical=%d behind=%d on_track=%d ahead=%d avg=%.2f (n=%d)\n",
		ga.Stats.Critical, ga.Stats.Behind, ga.Stats.OnTrack, ga.Stats.Ahead, ga.AvgGap, ga.SampleSize)
	for _, gap := range ga.CriticalIndicators {
		fmt.Fprintf(cli.out, "    critical %s: actual=%d expected=%d gap=%d\n",
			gap.IndicatorID, gap.ActualLevel, gap.ExpectedLevel.Int, gap.Gap)
	}
}
