package assessment

import (
	"sort"

	"github.com/fnelms/backend/core"
)

const maxTopCritical = 10

type (
	// AreaAggregate rolls up instance summaries sharing one transformation area.
	AreaAggregate struct {
		Area       string   `json:"area"`
		AvgScore   float64  `json:"avg_score"`
		AvgLevel   float64  `json:"avg_level"`
		AvgGap     float64  `json:"avg_gap"`
		SampleSize int      `json:"sample_size"` // instances with classified indicators
		Stats      GapStats `json:"stats"`
		Count      int      `json:"count"`
	}

	IndicatorCount struct {
		IndicatorID   string `json:"indicator_id"`
		IndicatorName string `json:"indicator_name,omitempty"`
		Count         int    `json:"count"`
	}

	// SchoolOverview aggregates all of a school's completed instances.
	SchoolOverview struct {
		ByArea  []AreaAggregate `json:"by_area"`
		Overall AreaAggregate   `json:"overall"`
		// TopCriticalIndicators lists the indicators most often classified
		// critical across instances, capped at 10.
		TopCriticalIndicators []IndicatorCount `json:"top_critical_indicators"`
	}
)

// AggregateSchool rolls up instance summaries for a school-level view.
// ByArea is sorted by area name; top critical indicators by descending count,
// ties broken by indicator ID.
func AggregateSchool(summaries []InstanceSummary) SchoolOverview {
	byArea := make(map[string]*areaAccumulator)
	overall := new(areaAccumulator)
	criticalCounts := make(map[string]IndicatorCount)

	for _, summary := range summaries {
		acc, ok := byArea[summary.Area]
		if !ok {
			acc = new(areaAccumulator)
			byArea[summary.Area] = acc
		}
		acc.add(summary)
		overall.add(summary)

		for _, gap := range summary.GapAnalysis.CriticalIndicators {
			cnt := criticalCounts[gap.IndicatorID]
			cnt.IndicatorID = gap.IndicatorID
			cnt.IndicatorName = gap.IndicatorName
			cnt.Count++
			criticalCounts[gap.IndicatorID] = cnt
		}
	}

	overview := SchoolOverview{
		ByArea:                make([]AreaAggregate, 0, len(byArea)),
		Overall:               overall.aggregate(""),
		TopCriticalIndicators: make([]IndicatorCount, 0, len(criticalCounts)),
	}
	for area, acc := range byArea {
		overview.ByArea = append(overview.ByArea, acc.aggregate(area))
	}
	sort.Slice(overview.ByArea, func(i, j int) bool { return overview.ByArea[i].Area < overview.ByArea[j].Area })

	for _, cnt := range criticalCounts {
		overview.TopCriticalIndicators = append(overview.TopCriticalIndicators, cnt)
	}
	sort.Slice(overview.TopCriticalIndicators, func(i, j int) bool {
		ti, tj := overview.TopCriticalIndicators[i], overview.TopCriticalIndicators[j]
		if ti.Count != tj.Count {
			return ti.Count > tj.Count
		}
		return ti.IndicatorID < tj.IndicatorID
	})
	if len(overview.TopCriticalIndicators) > maxTopCritical {
		overview.TopCriticalIndicators = overview.TopCriticalIndicators[:maxTopCritical]
	}
	return overview
}

type areaAccumulator struct {
	scoreSum   float64
	levelSum   float64
	gapSum     float64
	sampleSize int // instances with classified indicators
	stats      GapStats
	count      int
}

func (acc *areaAccumulator) add(summary InstanceSummary) {
	acc.scoreSum += summary.TotalScore
	acc.levelSum += float64(summary.OverallLevel)
	if summary.GapAnalysis.SampleSize > 0 {
		acc.gapSum += summary.GapAnalysis.AvgGap
		acc.sampleSize++
	}
	acc.stats.Total += summary.GapAnalysis.Stats.Total
	acc.stats.Ahead += summary.GapAnalysis.Stats.Ahead
	acc.stats.OnTrack += summary.GapAnalysis.Stats.OnTrack
	acc.stats.Behind += summary.GapAnalysis.Stats.Behind
	acc.stats.Critical += summary.GapAnalysis.Stats.Critical
	acc.stats.NotConfigured += summary.GapAnalysis.Stats.NotConfigured
	acc.count++
}

func (acc *areaAccumulator) aggregate(area string) AreaAggregate {
	agg := AreaAggregate{
		Area:       area,
		SampleSize: acc.sampleSize,
		Stats:      acc.stats,
		Count:      acc.count,
	}
	if acc.count > 0 {
		agg.AvgScore = core.Round2(acc.scoreSum / float64(acc.count))
		agg.AvgLevel = core.Round2(acc.levelSum / float64(acc.count))
	}
	if acc.sampleSize > 0 {
		agg.AvgGap = core.Round2(acc.gapSum / float64(acc.sampleSize))
	}
	return agg
}
