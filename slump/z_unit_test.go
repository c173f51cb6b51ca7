// Copyright 2025 Zintix Labs
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package slump_test

import (
	"math"
	"testing"

	"github.com/zintix-labs/judgelab/slump"
	"github.com/zintix-labs/judgelab/spec"
)

// -----------------------------------------------------------------------------
// Helper Functions
// -----------------------------------------------------------------------------

// stdAxis 上校正 +1000枚（y=0）、下校正 -1000枚（y=200）。
func stdAxis() slump.Axis {
	return slump.Axis{
		Top:    slump.CalibPoint{Y: 0, Value: 1000},
		Bottom: slump.CalibPoint{Y: 200, Value: -1000},
	}
}

func near(t *testing.T, name string, got, want, tol float64) {
	t.Helper()
	if math.Abs(got-want) > tol {
		t.Errorf("%s: got %v, want %v (tol %v)", name, got, want, tol)
	}
}

// -----------------------------------------------------------------------------
// Metrics
// -----------------------------------------------------------------------------

func TestMeasureMonotoneSeriesHasNoDrawdown(t *testing.T) {
	m := slump.Measure([]float64{0, 100, 250, 400, 600})
	if m.DdMax != 0 {
		t.Errorf("strictly increasing series must have zero drawdown, got %v", m.DdMax)
	}
	if m.RecoverRate != 0 {
		t.Errorf("no drawdown means no recovery, got %v", m.RecoverRate)
	}
	if m.TimeUnder0 != 0 {
		t.Errorf("series never below zero, got %v", m.TimeUnder0)
	}
	if m.TrendRecent <= 0 {
		t.Errorf("rising tail must give positive recent trend, got %v", m.TrendRecent)
	}
}

func TestMeasureDrawdownAndRecovery(t *testing.T) {
	m := slump.Measure([]float64{0, 500, -200, 300, 100})
	near(t, "DdMax", m.DdMax, 700, 1e-9)
	near(t, "DdPeak", m.DdPeak, 500, 1e-9)
	near(t, "DdTrough", m.DdTrough, -200, 1e-9)
	// (100 - (-200)) / 700
	near(t, "RecoverRate", m.RecoverRate, 300.0/700.0, 1e-9)
	near(t, "TimeUnder0", m.TimeUnder0, 0.2, 1e-9)
	// 末段視窗 2 點: 100 - 300
	near(t, "TrendRecent", m.TrendRecent, -200, 1e-9)
	if m.Volatility <= 0 {
		t.Errorf("non-flat series must have positive volatility")
	}
}

func TestMeasureDegenerateInputs(t *testing.T) {
	cases := [][]float64{
		nil,
		{},
		{42},
		{math.NaN(), math.Inf(1)},
	}
	for i, series := range cases {
		if m := slump.Measure(series); m != (slump.Metrics{}) {
			t.Errorf("case %d: expected zero metrics, got %+v", i, m)
		}
	}
}

func TestMeasureDropsNonFiniteSamples(t *testing.T) {
	with := slump.Measure([]float64{0, math.NaN(), 500, math.Inf(-1), -200, 300, 100})
	without := slump.Measure([]float64{0, 500, -200, 300, 100})
	if with != without {
		t.Errorf("non-finite samples must be dropped: %+v vs %+v", with, without)
	}
}

// -----------------------------------------------------------------------------
// Axis / Normalize
// -----------------------------------------------------------------------------

func TestAxisValueAt(t *testing.T) {
	a := stdAxis()
	near(t, "ValueAt(0)", a.ValueAt(0), 1000, 1e-9)
	near(t, "ValueAt(100)", a.ValueAt(100), 500, 1e-9)
	near(t, "ValueAt(200)", a.ValueAt(200), 0, 1e-9)
	near(t, "Range", a.Range(), 2000, 1e-9)
}

func TestAxisValid(t *testing.T) {
	if !stdAxis().Valid() {
		t.Fatal("standard axis must be valid")
	}
	bad := []slump.Axis{
		{Top: slump.CalibPoint{Y: 50, Value: 1000}, Bottom: slump.CalibPoint{Y: 50, Value: 0}},
		{Top: slump.CalibPoint{Y: 0, Value: 500}, Bottom: slump.CalibPoint{Y: 200, Value: 500}},
		{Top: slump.CalibPoint{Y: math.NaN(), Value: 1000}, Bottom: slump.CalibPoint{Y: 200, Value: 0}},
	}
	for i, a := range bad {
		if a.Valid() {
			t.Errorf("axis %d must be invalid", i)
		}
	}
}

func TestNormalizeAnchorsAtWindowStart(t *testing.T) {
	pts := []slump.Point{
		{X: 0, Y: 100},   // 500枚
		{X: 50, Y: 60},   // 700枚
		{X: 100, Y: 140}, // 300枚
	}
	n := slump.Normalize(pts, stdAxis(), 0, 100)
	if len(n.Series) != 3 {
		t.Fatalf("expected 3 samples, got %d", len(n.Series))
	}
	near(t, "series[0]", n.Series[0], 0, 1e-9)
	near(t, "series[1]", n.Series[1], 200, 1e-9)
	near(t, "series[2]", n.Series[2], -200, 1e-9)
	near(t, "AxisRange", n.AxisRange, 2000, 1e-9)
}

func TestNormalizeWindowFilterAndSwap(t *testing.T) {
	pts := []slump.Point{
		{X: -10, Y: 100},
		{X: 10, Y: 100},
		{X: 90, Y: 120},
		{X: 300, Y: 0},
	}
	// startX > endX は自動スワップ
	n := slump.Normalize(pts, stdAxis(), 100, 0)
	if len(n.Series) != 2 {
		t.Fatalf("expected 2 in-window samples, got %d", len(n.Series))
	}
}

func TestNormalizeDegenerate(t *testing.T) {
	pts := []slump.Point{{X: 0, Y: 100}, {X: 100, Y: 50}}
	if n := slump.Normalize(pts, slump.Axis{}, 0, 100); len(n.Series) != 0 {
		t.Errorf("invalid axis must yield empty series")
	}
	if n := slump.Normalize(pts[:1], stdAxis(), 0, 100); len(n.Series) != 0 {
		t.Errorf("single in-window point must yield empty series")
	}
}

// -----------------------------------------------------------------------------
// Tap estimate
// -----------------------------------------------------------------------------

func TestTapEstimateNetLoss(t *testing.T) {
	// 始点 1000枚 -> 終点 500枚、純減 -500枚。
	// 偏差 = tanh(-500 / (2000/2)) = tanh(-0.5)
	b := slump.TapEstimate(
		slump.Point{X: 0, Y: 0},
		slump.Point{X: 100, Y: 100},
		stdAxis(), spec.CategoryAType, 0,
	)
	near(t, "BiasZ", b.BiasZ, math.Tanh(-0.5), 1e-9)
	// span 100 >= 80, range 2000 >= 500, a_type 天井 0.8
	near(t, "Confidence", b.Confidence, 0.8, 1e-9)
}

func TestTapEstimateDegenerate(t *testing.T) {
	if b := slump.TapEstimate(slump.Point{X: 10, Y: 0}, slump.Point{X: 10, Y: 50}, stdAxis(), spec.CategoryAType, 0); b != (slump.Bias{}) {
		t.Errorf("zero horizontal span must yield zero bias, got %+v", b)
	}
	if b := slump.TapEstimate(slump.Point{}, slump.Point{X: 100}, slump.Axis{}, spec.CategoryAType, 0); b != (slump.Bias{}) {
		t.Errorf("invalid axis must yield zero bias, got %+v", b)
	}
}

func TestTapEstimateShortSpanReducesConfidence(t *testing.T) {
	wide := slump.TapEstimate(slump.Point{X: 0, Y: 50}, slump.Point{X: 100, Y: 100}, stdAxis(), spec.CategoryAType, 0)
	narrow := slump.TapEstimate(slump.Point{X: 0, Y: 50}, slump.Point{X: 40, Y: 100}, stdAxis(), spec.CategoryAType, 0)
	if narrow.Confidence >= wide.Confidence {
		t.Errorf("short span must reduce confidence: %v >= %v", narrow.Confidence, wide.Confidence)
	}
	// span 40 / 最小 80 で信心は半減（天井前の値 1.0 から）
	near(t, "narrow confidence", narrow.Confidence, 0.5, 1e-9)
}

func TestTapEstimateSpinsScaleConfidence(t *testing.T) {
	full := slump.TapEstimate(slump.Point{X: 0, Y: 50}, slump.Point{X: 100, Y: 100}, stdAxis(), spec.CategoryAType, 400)
	half := slump.TapEstimate(slump.Point{X: 0, Y: 50}, slump.Point{X: 100, Y: 100}, stdAxis(), spec.CategoryAType, 100)
	if half.Confidence >= full.Confidence {
		t.Errorf("few spins must reduce confidence: %v >= %v", half.Confidence, full.Confidence)
	}
}

func TestTapEstimateCategoryCeilings(t *testing.T) {
	start, end := slump.Point{X: 0, Y: 180}, slump.Point{X: 200, Y: 20}
	at := slump.TapEstimate(start, end, stdAxis(), spec.CategoryAType, 0)
	sm := slump.TapEstimate(start, end, stdAxis(), spec.CategorySmartAT, 0)
	if at.Confidence > spec.TuningFor(spec.CategoryAType).ConfCeiling {
		t.Errorf("a_type confidence above ceiling: %v", at.Confidence)
	}
	if sm.Confidence > spec.TuningFor(spec.CategorySmartAT).ConfCeiling {
		t.Errorf("smart_at confidence above ceiling: %v", sm.Confidence)
	}
	if sm.Confidence >= at.Confidence {
		t.Errorf("smart_at ceiling must be lower: %v >= %v", sm.Confidence, at.Confidence)
	}
}

// -----------------------------------------------------------------------------
// Series estimate
// -----------------------------------------------------------------------------

func TestSeriesEstimateInsufficientData(t *testing.T) {
	d := slump.SeriesEstimate(slump.Normalized{}, spec.CategoryAType, 0)
	if d.BiasZ != 0 || d.Confidence != 0 {
		t.Errorf("empty input must be zero-confidence, got %+v", d.Bias)
	}
	if d.DecisionHint == "" {
		t.Error("degenerate input still carries a decision hint")
	}
}

func TestSeriesEstimateDeepDrawdownFavorsContinue(t *testing.T) {
	// 深い未回復ドローダウン: 正の偏差（続行有利）
	norm := slump.Normalized{
		Series:    []float64{0, -300, -700, -1100, -1300, -1250},
		AxisRange: 2000,
	}
	d := slump.SeriesEstimate(norm, spec.CategoryAType, 300)
	if d.BiasZ <= 0 {
		t.Errorf("deep unrecovered drawdown must lean positive, got %v", d.BiasZ)
	}
	if d.Confidence <= 0 {
		t.Errorf("valid series must carry confidence, got %v", d.Confidence)
	}
}

func TestSeriesEstimateOneShotDetection(t *testing.T) {
	// 単発で軸範囲の 25% を超える跳ね: 一撃タイプは強い負偏差に固定
	norm := slump.Normalized{
		Series:    []float64{0, -100, 520, 480, 450},
		AxisRange: 2000,
	}
	d := slump.SeriesEstimate(norm, spec.CategoryATypeLight, 300)
	near(t, "BiasZ", d.BiasZ, -0.85, 1e-9)
	if d.DecisionHint == "" {
		t.Error("one-shot must carry a decision hint")
	}
	// a_type では同じ系列でも一撃判定はかからない
	at := slump.SeriesEstimate(norm, spec.CategoryAType, 300)
	if at.BiasZ == -0.85 {
		t.Error("one-shot detection must be ATypeLight-only")
	}
}

func TestSeriesEstimateConfidenceCeilings(t *testing.T) {
	norm := slump.Normalized{
		Series:    []float64{0, -200, -400, -300, -500, -600},
		AxisRange: 2000,
	}
	for _, cat := range []spec.MachineCategory{
		spec.CategoryAType, spec.CategoryATypeLight, spec.CategorySmartAT,
	} {
		d := slump.SeriesEstimate(norm, cat, 10000)
		if ceil := spec.TuningFor(cat).ConfCeiling; d.Confidence > ceil {
			t.Errorf("category %v: confidence %v above ceiling %v", cat, d.Confidence, ceil)
		}
	}
}

func TestSeriesEstimateDeterministic(t *testing.T) {
	norm := slump.Normalized{
		Series:    []float64{0, 150, -250, 100, -50, 300, 250},
		AxisRange: 1500,
	}
	a := slump.SeriesEstimate(norm, spec.CategorySmartAT, 500)
	b := slump.SeriesEstimate(norm, spec.CategorySmartAT, 500)
	if a.Bias != b.Bias || a.DecisionHint != b.DecisionHint || a.Metrics != b.Metrics {
		t.Errorf("same input must give identical decision: %+v vs %+v", a, b)
	}
}
