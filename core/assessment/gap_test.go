package assessment

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"
)

func TestClassifyGap(t *testing.T) {
	tests := []struct {
		name      string
		actual    int
		expected  null.Int
		tolerance int
		want      GapClassification
		wantOk    bool
	}{
		{name: "no expectation", actual: 3, expected: null.Int{}, tolerance: 1, wantOk: false},
		// tolerance 1: critical at gap <= -4
		{name: "within tolerance below", actual: 2, expected: null.IntFrom(3), tolerance: 1, want: GapOnTrack, wantOk: true},
		{name: "exact match", actual: 3, expected: null.IntFrom(3), tolerance: 1, want: GapOnTrack, wantOk: true},
		{name: "within tolerance above", actual: 4, expected: null.IntFrom(3), tolerance: 1, want: GapOnTrack, wantOk: true},
		{name: "behind", actual: 1, expected: null.IntFrom(3), tolerance: 1, want: GapBehind, wantOk: true},
		{name: "behind boundary", actual: 1, expected: null.IntFrom(4), tolerance: 1, want: GapBehind, wantOk: true},
		{name: "critical boundary", actual: 0, expected: null.IntFrom(4), tolerance: 1, want: GapCritical, wantOk: true},
		{name: "ahead", actual: 4, expected: null.IntFrom(2), tolerance: 1, want: GapAhead, wantOk: true},
		// tolerance 0: critical at gap <= -2
		{name: "zero tolerance behind", actual: 2, expected: null.IntFrom(3), tolerance: 0, want: GapBehind, wantOk: true},
		{name: "zero tolerance critical", actual: 1, expected: null.IntFrom(3), tolerance: 0, want: GapCritical, wantOk: true},
		{name: "zero tolerance ahead", actual: 3, expected: null.IntFrom(2), tolerance: 0, want: GapAhead, wantOk: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ClassifyGap(tt.actual, tt.expected, tt.tolerance)
			if ok != tt.wantOk {
				t.Fatalf("ClassifyGap() ok = %v, want %v", ok, tt.wantOk)
			}
			if got != tt.want {
				t.Errorf("ClassifyGap() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestResolveExpectation(t *testing.T) {
	entry := &ExpectationEntry{
		IndicatorID:         "i1",
		ExpectedLevelByYear: [5]null.Int{null.IntFrom(1), {}, null.IntFrom(2), {}, null.IntFrom(4)},
	}

	tests := []struct {
		name    string
		entry   *ExpectationEntry
		year    int
		want    null.Int
		wantErr error
	}{
		{name: "year below range", entry: entry, year: 0, wantErr: ErrInvalidTransformationYear},
		{name: "year above range", entry: entry, year: 6, wantErr: ErrInvalidTransformationYear},
		{name: "nil entry", entry: nil, year: 1, want: null.Int{}},
		{name: "configured year", entry: entry, year: 1, want: null.IntFrom(1)},
		{name: "unconfigured year", entry: entry, year: 2, want: null.Int{}},
		{name: "last year", entry: entry, year: 5, want: null.IntFrom(4)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ResolveExpectation(tt.entry, tt.year)
			if errors.Cause(err) != tt.wantErr {
				t.Fatalf("ResolveExpectation() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ResolveExpectation() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestGapForIndicator(t *testing.T) {
	ind := Indicator{
		ID: "i1",
		Expectations: &ExpectationEntry{
			IndicatorID:         "i1",
			ExpectedLevelByYear: [5]null.Int{null.IntFrom(3), {}, {}, {}, {}},
		},
	}

	gap, err := GapForIndicator(ind, 0, 1)
	if err != nil {
		t.Fatalf("GapForIndicator() failed: %v", err)
	}
	if !gap.Classified() {
		t.Fatal("Classified() = false, want true")
	}
	if gap.Gap != -3 {
		t.Errorf("Gap = %d, want -3", gap.Gap)
	}
	if gap.Tolerance != DefaultTolerance {
		t.Errorf("Tolerance = %d, want default %d", gap.Tolerance, DefaultTolerance)
	}
	if gap.Classification != GapBehind {
		t.Errorf("Classification = %v, want behind", gap.Classification)
	}

	// no expectations configured at all
	gap, err = GapForIndicator(Indicator{ID: "i2"}, 4, 1)
	if err != nil {
		t.Fatalf("GapForIndicator() failed: %v", err)
	}
	if gap.Classified() {
		t.Error("Classified() = true, want false")
	}
	if gap.Classification != "" {
		t.Errorf("Classification = %q, want empty", gap.Classification)
	}
}

func TestAggregateGaps(t *testing.T) {
	t.Run("empty sample", func(t *testing.T) {
		got := AggregateGaps(nil)
		if got.AvgGap != 0 {
			t.Errorf("AvgGap = %v, want 0", got.AvgGap)
		}
		if got.SampleSize != 0 {
			t.Errorf("SampleSize = %d, want 0", got.SampleSize)
		}
		if got.Indicators == nil || got.CriticalIndicators == nil || got.BehindIndicators == nil {
			t.Error("slices must be empty, not nil")
		}
	})

	t.Run("mixed classifications", func(t *testing.T) {
		gaps := []IndicatorGap{
			{IndicatorID: "b2", ExpectedLevel: null.IntFrom(3), Gap: -2, Classification: GapBehind},
			{IndicatorID: "c1", ExpectedLevel: null.IntFrom(4), Gap: -4, Classification: GapCritical},
			{IndicatorID: "a1", ExpectedLevel: null.IntFrom(1), Gap: 2, Classification: GapAhead},
			{IndicatorID: "b1", ExpectedLevel: null.IntFrom(4), Gap: -3, Classification: GapBehind},
			{IndicatorID: "o1", ExpectedLevel: null.IntFrom(2), Gap: 0, Classification: GapOnTrack},
			{IndicatorID: "n1"}, // not configured
		}

		got := AggregateGaps(gaps)
		want := GapStats{Total: 6, Ahead: 1, OnTrack: 1, Behind: 2, Critical: 1, NotConfigured: 1}
		if got.Stats != want {
			t.Errorf("Stats = %+v, want %+v", got.Stats, want)
		}
		if got.SampleSize != 5 {
			t.Errorf("SampleSize = %d, want 5", got.SampleSize)
		}
		// (-2 - 4 + 2 - 3 + 0) / 5
		if got.AvgGap != -1.4 {
			t.Errorf("AvgGap = %v, want -1.4", got.AvgGap)
		}
		// worst first
		if len(got.BehindIndicators) != 2 || got.BehindIndicators[0].IndicatorID != "b1" {
			t.Errorf("BehindIndicators = %+v, want b1 first", got.BehindIndicators)
		}
	})

	t.Run("sort ties by indicator ID", func(t *testing.T) {
		gaps := []IndicatorGap{
			{IndicatorID: "z", ExpectedLevel: null.IntFrom(4), Gap: -4, Classification: GapCritical},
			{IndicatorID: "a", ExpectedLevel: null.IntFrom(4), Gap: -4, Classification: GapCritical},
		}
		got := AggregateGaps(gaps)
		if got.CriticalIndicators[0].IndicatorID != "a" {
			t.Errorf("CriticalIndicators[0] = %s, want a", got.CriticalIndicators[0].IndicatorID)
		}
	})
}
