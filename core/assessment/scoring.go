package assessment

import (
	"math"

	"github.com/pkg/errors"

	"github.com/fnelms/backend/core"
)

// ExpectedOverallLevel returns the overall maturity level a school is expected
// to have reached by the given transformation year.
func ExpectedOverallLevel(year int) (int, error) {
	lvl, ok := expectedOverallLevels[year]
	if !ok {
		return 0, errors.Wrapf(ErrInvalidTransformationYear, "year %d", year)
	}
	return lvl, nil
}

// Normalize maps a raw 0-4 rating and a positive weight to its weighted score
// contribution. Callers must not feed values outside [MinLevel, MaxLevel].
func Normalize(rawValue int, weight float64) (float64, error) {
	if rawValue < MinLevel || rawValue > MaxLevel {
		return 0, errors.Wrapf(ErrInvalidIndicatorValue, "raw value %d", rawValue)
	}
	if weight <= 0 {
		weight = DefaultWeight
	}
	return float64(rawValue) * weight, nil
}

// scoreToLevel derives the integer maturity level from a 0-100 score,
// monotonic non-decreasing in the score.
func scoreToLevel(normalizedScore float64) int {
	return core.ClampInt(int(math.Round(normalizedScore/25)), MinLevel, MaxLevel)
}

// AggregateModule combines a module's responses into a single score and level.
//
// The score is the percentage of the maximum possible weighted rating over the
// module's configured indicators; indicators without a response contribute 0
// but still count toward the maximum. A module configured with zero indicators
// scores 0 by definition (a documented boundary, not a failure). A module
// configured with indicators but zero responses additionally gets the Empty
// flag set.
func AggregateModule(mod Module, responses []IndicatorResponse) (ModuleScore, error) {
	score := ModuleScore{
		ModuleID:     mod.ID,
		ModuleName:   mod.Name,
		ModuleWeight: mod.weight(),
		Indicators:   make([]IndicatorScore, 0, len(mod.Indicators)),
	}

	responseMap := make(map[string]IndicatorResponse, len(responses))
	for _, resp := range responses {
		responseMap[resp.IndicatorID] = resp
	}

	var sum, maxSum float64
	var responded int
	for _, ind := range mod.Indicators {
		weight := ind.weight()
		maxSum += weight * MaxLevel

		indScore := IndicatorScore{
			IndicatorID: ind.ID,
			Category:    ind.Category,
			Weight:      weight,
		}
		if resp, ok := responseMap[ind.ID]; ok {
			contribution, err := Normalize(resp.RawValue, weight)
			if err != nil {
				return ModuleScore{}, errors.Wrapf(err, "indicator %s", ind.ID)
			}
			indScore.RawValue = resp.RawValue
			indScore.Contribution = contribution
			sum += contribution
			responded++
		}
		score.Indicators = append(score.Indicators, indScore)
	}

	if maxSum > 0 {
		score.NormalizedScore = core.Round2(100 * sum / maxSum)
	}
	score.Level = scoreToLevel(score.NormalizedScore)
	score.Empty = len(mod.Indicators) > 0 && responded == 0
	return score, nil
}

// Summarize aggregates module scores and indicator gaps into the instance
// summary. It is fully deterministic: identical inputs yield identical output.
func Summarize(moduleScores []ModuleScore, gaps []IndicatorGap, expectedLevel int) InstanceSummary {
	var scoreSum, levelSum, weightSum float64
	for _, ms := range moduleScores {
		w := ms.ModuleWeight
		if w <= 0 {
			w = DefaultWeight
		}
		scoreSum += ms.NormalizedScore * w
		levelSum += float64(ms.Level) * w
		weightSum += w
	}

	var totalScore float64
	var overallLevel int
	if weightSum > 0 {
		totalScore = core.Round2(scoreSum / weightSum)
		overallLevel = core.ClampInt(int(math.Round(levelSum/weightSum)), MinLevel, MaxLevel)
	}

	return InstanceSummary{
		TotalScore:        totalScore,
		OverallLevel:      overallLevel,
		ExpectedLevel:     expectedLevel,
		MeetsExpectations: overallLevel >= expectedLevel,
		ModuleScores:      moduleScores,
		GapAnalysis:       AggregateGaps(gaps),
	}
}

// Score runs the full pipeline for one instance: module aggregation, gap
// classification against the snapshot's expectations for the given year, and
// the overall summary.
func Score(snapshot TemplateSnapshot, year int, responses []IndicatorResponse) (InstanceSummary, error) {
	expectedLevel, err := ExpectedOverallLevel(year)
	if err != nil {
		return InstanceSummary{}, err
	}

	responseMap := make(map[string]IndicatorResponse, len(responses))
	for _, resp := range responses {
		responseMap[resp.IndicatorID] = resp
	}

	moduleScores := make([]ModuleScore, 0, len(snapshot.Modules))
	var gaps []IndicatorGap
	for _, mod := range snapshot.Modules {
		modResponses := make([]IndicatorResponse, 0, len(mod.Indicators))
		for _, ind := range mod.Indicators {
			if resp, ok := responseMap[ind.ID]; ok {
				modResponses = append(modResponses, resp)
			}
		}

		ms, err := AggregateModule(mod, modResponses)
		if err != nil {
			return InstanceSummary{}, errors.Wrapf(err, "module %s", mod.ID)
		}
		moduleScores = append(moduleScores, ms)

		for _, ind := range mod.Indicators {
			var actualLevel int
			if resp, ok := responseMap[ind.ID]; ok {
				actualLevel = resp.RawValue
			}
			gap, err := GapForIndicator(ind, actualLevel, year)
			if err != nil {
				return InstanceSummary{}, err
			}
			gaps = append(gaps, gap)
		}
	}

	summary := Summarize(moduleScores, gaps, expectedLevel)
	summary.Area = snapshot.Area
	summary.TransformationYear = year
	return summary, nil
}
