package assessment

import (
	"sort"

	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/fnelms/backend/core"
)

// ResolveExpectation looks up the expected level for the given transformation
// year. An invalid return means no expectation is configured: such indicators
// are excluded from gap statistics entirely, neither ahead nor behind.
func ResolveExpectation(entry *ExpectationEntry, year int) (null.Int, error) {
	if year < MinYear || year > MaxYear {
		return null.Int{}, errors.Wrapf(ErrInvalidTransformationYear, "year %d", year)
	}
	if entry == nil {
		return null.Int{}, nil
	}
	return entry.ExpectedLevelByYear[year-1], nil
}

// ClassifyGap buckets the actual-vs-expected deviation. The second return is
// false when no expectation is configured and the indicator is unclassified.
//
// The boundaries are closed intervals exactly as compared here; moving any
// comparison by one changes the classification of indicators sitting exactly
// at the tolerance boundary.
func ClassifyGap(actualLevel int, expectedLevel null.Int, tolerance int) (GapClassification, bool) {
	if !expectedLevel.Valid {
		return "", false
	}

	gap := actualLevel - expectedLevel.Int
	critical := -2 * (tolerance + 1)
	switch {
	case gap <= critical:
		return GapCritical, true
	case gap < -tolerance:
		return GapBehind, true
	case gap <= tolerance:
		return GapOnTrack, true
	default:
		return GapAhead, true
	}
}

// GapForIndicator resolves the indicator's expectation for the year and
// classifies its gap.
func GapForIndicator(ind Indicator, actualLevel, year int) (IndicatorGap, error) {
	expectedLevel, err := ResolveExpectation(ind.Expectations, year)
	if err != nil {
		return IndicatorGap{}, errors.Wrapf(err, "indicator %s", ind.ID)
	}

	gap := IndicatorGap{
		IndicatorID:   ind.ID,
		IndicatorName: ind.Name,
		Category:      ind.Category,
		ActualLevel:   actualLevel,
		ExpectedLevel: expectedLevel,
		Tolerance:     ind.Expectations.tolerance(),
	}
	if classification, ok := ClassifyGap(actualLevel, expectedLevel, gap.Tolerance); ok {
		gap.Gap = actualLevel - expectedLevel.Int
		gap.Classification = classification
	}
	return gap, nil
}

// AggregateGaps computes the per-classification counts and the average gap
// over classified indicators. CriticalIndicators and BehindIndicators are
// sorted worst first (most negative gap), ties broken by indicator ID so the
// output is deterministic.
func AggregateGaps(gaps []IndicatorGap) GapAnalysis {
	analysis := GapAnalysis{
		Indicators:         gaps,
		CriticalIndicators: make([]IndicatorGap, 0),
		BehindIndicators:   make([]IndicatorGap, 0),
	}
	if gaps == nil {
		analysis.Indicators = make([]IndicatorGap, 0)
	}

	var gapSum int
	for _, gap := range gaps {
		analysis.Stats.Total++
		if !gap.Classified() {
			analysis.Stats.NotConfigured++
			continue
		}

		switch gap.Classification {
		case GapAhead:
			analysis.Stats.Ahead++
		case GapOnTrack:
			analysis.Stats.OnTrack++
		case GapBehind:
			analysis.Stats.Behind++
			analysis.BehindIndicators = append(analysis.BehindIndicators, gap)
		case GapCritical:
			analysis.Stats.Critical++
			analysis.CriticalIndicators = append(analysis.CriticalIndicators, gap)
		}

		gapSum += gap.Gap
		analysis.SampleSize++
	}

	if analysis.SampleSize > 0 {
		analysis.AvgGap = core.Round2(float64(gapSum) / float64(analysis.SampleSize))
	}

	sortGaps(analysis.CriticalIndicators)
	sortGaps(analysis.BehindIndicators)
	return analysis
}

func sortGaps(gaps []IndicatorGap) {
	sort.Slice(gaps, func(i, j int) bool {
		if gaps[i].Gap != gaps[j].Gap {
			return gaps[i].Gap < gaps[j].Gap
		}
		return gaps[i].IndicatorID < gaps[j].IndicatorID
	})
}
