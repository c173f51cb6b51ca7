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

package judge_test

import (
	"math"
	"testing"

	"github.com/zintix-labs/judgelab/judge"
	"github.com/zintix-labs/judgelab/spec"
)

// -----------------------------------------------------------------------------
// Helper Functions
// -----------------------------------------------------------------------------

const eps = 1e-9

// sixSettings 六段設定：BIG/REG 隨設定段單調變好。
func sixSettings() []spec.SettingOdds {
	return []spec.SettingOdds{
		{S: "1", Big: 300, Reg: 450, Payout: 97},
		{S: "2", Big: 290, Reg: 420, Payout: 98},
		{S: "3", Big: 280, Reg: 380, Payout: 100},
		{S: "4", Big: 260, Reg: 330, Payout: 102},
		{S: "5", Big: 245, Reg: 300, Payout: 105},
		{S: "6", Big: 230, Reg: 280, Payout: 110},
	}
}

func postOf(t *testing.T, ps []judge.SettingPosterior, s string) float64 {
	t.Helper()
	for _, sp := range ps {
		if sp.S == s {
			return sp.Posterior
		}
	}
	t.Fatalf("setting %q missing from posterior", s)
	return 0
}

func assertNormalized(t *testing.T, ps []judge.SettingPosterior) {
	t.Helper()
	sum := 0.0
	for _, sp := range ps {
		if sp.Posterior < 0 || sp.Posterior > 1 {
			t.Fatalf("posterior for %q out of range: %v", sp.S, sp.Posterior)
		}
		sum += sp.Posterior
	}
	if math.Abs(sum-1) > 1e-6 {
		t.Fatalf("posterior does not sum to 1: %v", sum)
	}
}

// -----------------------------------------------------------------------------
// Posterior
// -----------------------------------------------------------------------------

func TestPosteriorUniformWhenOddsEqual(t *testing.T) {
	odds := []spec.SettingOdds{
		{S: "1", Big: 250, Reg: 400, Payout: 98},
		{S: "2", Big: 250, Reg: 400, Payout: 100},
		{S: "3", Big: 250, Reg: 400, Payout: 103},
	}
	ps := judge.Posterior(odds, judge.Input{
		Games:    3000,
		BigCount: judge.IntP(12),
		RegCount: judge.IntP(8),
	})
	if len(ps) != 3 {
		t.Fatalf("expected 3 posteriors, got %d", len(ps))
	}
	assertNormalized(t, ps)
	for _, sp := range ps {
		if math.Abs(sp.Posterior-1.0/3.0) > 1e-9 {
			t.Errorf("setting %q: expected uniform 1/3, got %v", sp.S, sp.Posterior)
		}
	}
}

func TestPosteriorFavorsHighSettingOnHighBigCount(t *testing.T) {
	odds := sixSettings()
	// 3000G で BIG 14回：設定6の期待値 (~13.0) に最も近い。
	ps := judge.Posterior(odds, judge.Input{
		Games:    3000,
		BigCount: judge.IntP(14),
		RegCount: judge.IntP(11),
	})
	assertNormalized(t, ps)
	if postOf(t, ps, "6") <= postOf(t, ps, "1") {
		t.Errorf("expected setting 6 to dominate setting 1: p6=%v p1=%v",
			postOf(t, ps, "6"), postOf(t, ps, "1"))
	}
}

func TestPosteriorFavorsLowSettingOnLowBigCount(t *testing.T) {
	odds := sixSettings()
	ps := judge.Posterior(odds, judge.Input{
		Games:    3000,
		BigCount: judge.IntP(7),
		RegCount: judge.IntP(5),
	})
	assertNormalized(t, ps)
	if postOf(t, ps, "1") <= postOf(t, ps, "6") {
		t.Errorf("expected setting 1 to dominate setting 6: p1=%v p6=%v",
			postOf(t, ps, "1"), postOf(t, ps, "6"))
	}
}

func TestPosteriorRejectsInvalidInput(t *testing.T) {
	odds := sixSettings()
	cases := []struct {
		name string
		in   judge.Input
	}{
		{"zero games", judge.Input{Games: 0, BigCount: judge.IntP(1)}},
		{"negative count", judge.Input{Games: 100, BigCount: judge.IntP(-1)}},
		{"count exceeds games", judge.Input{Games: 100, BigCount: judge.IntP(101)}},
		{"big+reg exceeds games", judge.Input{Games: 10, BigCount: judge.IntP(6), RegCount: judge.IntP(5)}},
		{"hits exceed trials", judge.Input{Games: 100, SuikaTrials: judge.IntP(5), SuikaCzHits: judge.IntP(6)}},
	}
	for _, tc := range cases {
		if ps := judge.Posterior(odds, tc.in); ps != nil {
			t.Errorf("[%s] expected nil posterior, got %v", tc.name, ps)
		}
	}
}

func TestPosteriorIdempotent(t *testing.T) {
	odds := sixSettings()
	in := judge.Input{
		Games:    5000,
		BigCount: judge.IntP(20),
		RegCount: judge.IntP(15),
		ExtraCounts: map[spec.MetricID]int{
			"grape":        800,
			"weak_cherry":  150,
			"strong_bell":  40,
			"chance_melon": 12,
		},
	}
	a := judge.Posterior(odds, in)
	b := judge.Posterior(odds, in)
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("posterior not deterministic at %d: %+v vs %+v", i, a[i], b[i])
		}
	}
}

func TestPosteriorAllowedHardExcludes(t *testing.T) {
	odds := sixSettings()
	allow := map[string]struct{}{"5": {}, "6": {}}
	ps := judge.PosteriorAllowed(odds, judge.Input{
		Games:    1000,
		BigCount: judge.IntP(4),
	}, allow)
	assertNormalized(t, ps)
	if len(ps) != len(odds) {
		t.Fatalf("excluded settings must stay in the output: got %d rows", len(ps))
	}
	for _, sp := range ps {
		if _, ok := allow[sp.S]; !ok && sp.Posterior != 0 {
			t.Errorf("setting %q excluded but has posterior %v", sp.S, sp.Posterior)
		}
	}
}

func TestTopNStableDescending(t *testing.T) {
	ps := []judge.SettingPosterior{
		{S: "1", Posterior: 0.05},
		{S: "2", Posterior: 0.30},
		{S: "3", Posterior: 0.30},
		{S: "4", Posterior: 0.35},
	}
	top := judge.TopN(ps, 3)
	if len(top) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(top))
	}
	if top[0].S != "4" {
		t.Errorf("expected setting 4 first, got %q", top[0].S)
	}
	// 同値は入力順のまま
	if top[1].S != "2" || top[2].S != "3" {
		t.Errorf("tie order not stable: got %q, %q", top[1].S, top[2].S)
	}
	if got := judge.TopN(ps, 10); len(got) != len(ps) {
		t.Errorf("n beyond length must clamp: got %d", len(got))
	}
}

// -----------------------------------------------------------------------------
// Hints
// -----------------------------------------------------------------------------

func hintedMachine() *spec.MachineSpec {
	return &spec.MachineSpec{
		MachineName: "test_machine",
		MachineID:   1,
		Category:    "a_type",
		Settings:    sixSettings(),
		HintGroups: []spec.HintGroup{
			{
				Name: "cards",
				Items: []spec.HintItem{
					{ID: "card_silver", Label: "silver", Effects: []spec.HintEffect{
						{Type: "min_setting", Setting: 2},
					}},
					{ID: "card_gold", Label: "gold", Effects: []spec.HintEffect{
						{Type: "all_of", Effects: []spec.HintEffect{
							{Type: "min_setting", Setting: 4},
							{Type: "weight", Weights: map[string]float64{"5": 1.2, "6": 1.5}},
						}},
					}},
					{ID: "card_rainbow", Label: "rainbow", Effects: []spec.HintEffect{
						{Type: "exact_setting", Setting: 6},
					}},
					{ID: "card_black", Label: "black", Effects: []spec.HintEffect{
						{Type: "exact_setting", Setting: 1},
					}},
				},
			},
			{
				Name: "voices",
				Items: []spec.HintItem{
					{ID: "voice_no_one", Label: "not 1", Effects: []spec.HintEffect{
						{Type: "exclude_setting", Setting: 1},
					}},
					{ID: "voice_even", Label: "even", Effects: []spec.HintEffect{
						{Type: "weight", Weights: map[string]float64{
							"1": 0.5, "2": 2, "3": 0.5, "4": 2, "5": 0.5, "6": 2,
						}},
					}},
				},
			},
		},
	}
}

func uniformSix() []judge.SettingPosterior {
	out := make([]judge.SettingPosterior, 6)
	for i := range out {
		out[i] = judge.SettingPosterior{S: string(rune('1' + i)), Posterior: 1.0 / 6.0}
	}
	return out
}

func TestAdjustWithHintsNoCountsPassThrough(t *testing.T) {
	base := uniformSix()
	adj := judge.AdjustWithHints(base, hintedMachine(), nil)
	if adj.Contradiction || adj.Note != "" {
		t.Fatalf("unexpected note/contradiction: %+v", adj)
	}
	for i := range base {
		if adj.Posteriors[i] != base[i] {
			t.Errorf("row %d changed without hints", i)
		}
	}
}

func TestAdjustWithHintsMinSetting(t *testing.T) {
	adj := judge.AdjustWithHints(uniformSix(), hintedMachine(), judge.HintCounts{"card_gold": 1})
	if adj.Contradiction {
		t.Fatalf("unexpected contradiction: %s", adj.Note)
	}
	assertNormalized(t, adj.Posteriors)
	for _, sp := range adj.Posteriors {
		n, _ := spec.SettingNum(sp.S)
		if n < 4 && sp.Posterior != 0 {
			t.Errorf("setting %q below floor must be zero, got %v", sp.S, sp.Posterior)
		}
		if n >= 4 && sp.Posterior <= 0 {
			t.Errorf("setting %q above floor must stay positive", sp.S)
		}
	}
	// weight 1.5 for 6 vs 1.0 for 4
	if postOf(t, adj.Posteriors, "6") <= postOf(t, adj.Posteriors, "4") {
		t.Errorf("gold card weight must favor 6 over 4")
	}
}

func TestAdjustWithHintsExactSetting(t *testing.T) {
	adj := judge.AdjustWithHints(uniformSix(), hintedMachine(), judge.HintCounts{"card_rainbow": 1})
	if adj.Contradiction {
		t.Fatalf("unexpected contradiction: %s", adj.Note)
	}
	if got := postOf(t, adj.Posteriors, "6"); math.Abs(got-1) > eps {
		t.Errorf("exact setting 6: expected posterior 1, got %v", got)
	}
}

func TestAdjustWithHintsExcludeSetting(t *testing.T) {
	adj := judge.AdjustWithHints(uniformSix(), hintedMachine(), judge.HintCounts{"voice_no_one": 3})
	assertNormalized(t, adj.Posteriors)
	if got := postOf(t, adj.Posteriors, "1"); got != 0 {
		t.Errorf("excluded setting 1 must be zero, got %v", got)
	}
	// 排除一次即生效，重複計數不改變結果
	once := judge.AdjustWithHints(uniformSix(), hintedMachine(), judge.HintCounts{"voice_no_one": 1})
	for i := range adj.Posteriors {
		if adj.Posteriors[i] != once.Posteriors[i] {
			t.Errorf("hard constraint must not scale with count")
		}
	}
}

func TestAdjustWithHintsWeightScalesWithCount(t *testing.T) {
	once := judge.AdjustWithHints(uniformSix(), hintedMachine(), judge.HintCounts{"voice_even": 1})
	twice := judge.AdjustWithHints(uniformSix(), hintedMachine(), judge.HintCounts{"voice_even": 2})
	assertNormalized(t, once.Posteriors)
	assertNormalized(t, twice.Posteriors)
	r1 := postOf(t, once.Posteriors, "2") / postOf(t, once.Posteriors, "1")
	r2 := postOf(t, twice.Posteriors, "2") / postOf(t, twice.Posteriors, "1")
	// 倍率 4 (=2/0.5) が回数分だけ累乗される
	if math.Abs(r1-4) > 1e-9 || math.Abs(r2-16) > 1e-9 {
		t.Errorf("weight ratio: got %v and %v, want 4 and 16", r1, r2)
	}
}

func TestAdjustWithHintsConflictingExact(t *testing.T) {
	base := uniformSix()
	adj := judge.AdjustWithHints(base, hintedMachine(), judge.HintCounts{
		"card_rainbow": 1,
		"card_black":   1,
	})
	if !adj.Contradiction {
		t.Fatal("expected contradiction flag")
	}
	if adj.Note == "" {
		t.Error("contradiction must carry a note")
	}
	for i := range base {
		if adj.Posteriors[i] != base[i] {
			t.Errorf("contradiction must return the base distribution unchanged")
		}
	}
}

func TestAdjustWithHintsExcludesEverything(t *testing.T) {
	base := []judge.SettingPosterior{
		{S: "1", Posterior: 0.5},
		{S: "2", Posterior: 0.5},
	}
	// exact 6 だが設定6が存在しない -> 全滅、フェイルソフトで base を返す
	adj := judge.AdjustWithHints(base, hintedMachine(), judge.HintCounts{"card_rainbow": 1})
	if !adj.Contradiction {
		t.Fatal("expected contradiction when hints exclude every setting")
	}
	for i := range base {
		if adj.Posteriors[i] != base[i] {
			t.Errorf("fallback must keep the base distribution")
		}
	}
}

func TestAdjustWithHintsUnknownIDIgnored(t *testing.T) {
	base := uniformSix()
	adj := judge.AdjustWithHints(base, hintedMachine(), judge.HintCounts{"no_such_hint": 5})
	if adj.Contradiction || adj.Note != "" {
		t.Fatalf("unknown hint id must be fail-soft: %+v", adj)
	}
	for i := range base {
		if adj.Posteriors[i] != base[i] {
			t.Errorf("unknown hint id must not change the distribution")
		}
	}
}

func TestAdjustWithHintsSentinelExcludedByHardConstraint(t *testing.T) {
	base := []judge.SettingPosterior{
		{S: "L", Posterior: 0.25},
		{S: "5", Posterior: 0.25},
		{S: "6", Posterior: 0.50},
	}
	adj := judge.AdjustWithHints(base, hintedMachine(), judge.HintCounts{"card_silver": 1})
	// 数値制約がある以上、非数値の sentinel は判定不能 -> 除外
	if got := postOf(t, adj.Posteriors, "L"); got != 0 {
		t.Errorf("sentinel must be excluded under a deterministic constraint, got %v", got)
	}
}

// -----------------------------------------------------------------------------
// Graph bias
// -----------------------------------------------------------------------------

func TestApplyBiasZeroStrengthIsIdentity(t *testing.T) {
	ps := uniformSix()
	out := judge.ApplyBias(ps, 0.8, 0, spec.CategoryAType)
	if &out[0] != &ps[0] {
		t.Fatal("zero-strength bias must return the input slice untouched")
	}
	out = judge.ApplyBias(ps, 0, 1, spec.CategoryAType)
	if &out[0] != &ps[0] {
		t.Fatal("zero biasZ must return the input slice untouched")
	}
}

func TestApplyBiasShiftsTowardHighSettings(t *testing.T) {
	ps := uniformSix()
	out := judge.ApplyBias(ps, 1, 1, spec.CategoryAType)
	assertNormalized(t, out)
	if postOf(t, out, "6") <= postOf(t, out, "1") {
		t.Errorf("positive bias must favor high settings: p6=%v p1=%v",
			postOf(t, out, "6"), postOf(t, out, "1"))
	}
	neg := judge.ApplyBias(uniformSix(), -1, 1, spec.CategoryAType)
	if postOf(t, neg, "1") <= postOf(t, neg, "6") {
		t.Errorf("negative bias must favor low settings")
	}
}

func TestApplyBiasNeverRevivesZeroPosterior(t *testing.T) {
	ps := []judge.SettingPosterior{
		{S: "1", Posterior: 0},
		{S: "5", Posterior: 0.5},
		{S: "6", Posterior: 0.5},
	}
	out := judge.ApplyBias(ps, -1, 1, spec.CategoryAType)
	if got := postOf(t, out, "1"); got != 0 {
		t.Errorf("hard-excluded setting resurrected by bias: %v", got)
	}
}

func TestApplyBiasBoundedByClamp(t *testing.T) {
	ps := uniformSix()
	out := judge.ApplyBias(ps, 1, 1, spec.CategoryAType)
	// 強度上限 ±BiasStrengthClamp、端の設定で highness ±1。
	maxRatio := math.Exp(2 * spec.BiasStrengthClamp)
	if r := postOf(t, out, "6") / postOf(t, out, "1"); r > maxRatio+eps {
		t.Errorf("bias exceeded clamp: ratio %v > %v", r, maxRatio)
	}
}

func TestApplyBiasSmartATDamped(t *testing.T) {
	at := judge.ApplyBias(uniformSix(), 1, 1, spec.CategoryAType)
	sm := judge.ApplyBias(uniformSix(), 1, 1, spec.CategorySmartAT)
	rAT := postOf(t, at, "6") / postOf(t, at, "1")
	rSM := postOf(t, sm, "6") / postOf(t, sm, "1")
	if rSM >= rAT {
		t.Errorf("smart_at must damp graph bias: %v >= %v", rSM, rAT)
	}
}

// -----------------------------------------------------------------------------
// Advice / Forecast
// -----------------------------------------------------------------------------

func TestRecommendFavorableByTopMass(t *testing.T) {
	ps := []judge.SettingPosterior{
		{S: "1", Posterior: 0.05},
		{S: "2", Posterior: 0.05},
		{S: "3", Posterior: 0.10},
		{S: "4", Posterior: 0.10},
		{S: "5", Posterior: 0.30},
		{S: "6", Posterior: 0.40},
	}
	adv := judge.Recommend(ps, sixSettings(), 1000)
	if adv.Level != judge.AdviceFavorable {
		t.Fatalf("expected favorable, got %s (%s)", adv.Level, adv.Reason)
	}
}

func TestRecommendUnfavorableOnLowSettings(t *testing.T) {
	ps := []judge.SettingPosterior{
		{S: "1", Posterior: 0.6},
		{S: "2", Posterior: 0.3},
		{S: "3", Posterior: 0.05},
		{S: "4", Posterior: 0.03},
		{S: "5", Posterior: 0.01},
		{S: "6", Posterior: 0.01},
	}
	adv := judge.Recommend(ps, sixSettings(), 1000)
	if adv.Level != judge.AdviceUnfavorable {
		t.Fatalf("expected unfavorable, got %s (%s)", adv.Level, adv.Reason)
	}
	if adv.LossProb < 0.55 {
		t.Errorf("expected high loss probability, got %v", adv.LossProb)
	}
}

func TestRecommendNeutralWithoutSignal(t *testing.T) {
	ps := uniformSix()
	adv := judge.Recommend(ps, sixSettings(), 1000)
	if adv.Level != judge.AdviceNeutral {
		t.Fatalf("expected neutral on uniform posterior, got %s (%s)", adv.Level, adv.Reason)
	}
}

func TestRecommendEmptyPosterior(t *testing.T) {
	adv := judge.Recommend(nil, sixSettings(), 1000)
	if adv.Level != judge.AdviceNeutral {
		t.Fatalf("expected neutral, got %s", adv.Level)
	}
}

func TestPredictExpectedCoins(t *testing.T) {
	odds := []spec.SettingOdds{
		{S: "1", Big: 300, Reg: 450, Payout: 97},
		{S: "6", Big: 230, Reg: 280, Payout: 110},
	}
	ps := []judge.SettingPosterior{
		{S: "1", Posterior: 0.5},
		{S: "6", Posterior: 0.5},
	}
	f := judge.Predict(ps, odds, 1000, 20)
	// 1000G x 3枚掛け: 設定1 -> -90枚, 設定6 -> +300枚, 半々で +105枚
	if math.Abs(f.ExpectedCoins-105) > 1e-9 {
		t.Errorf("expected coins 105, got %v", f.ExpectedCoins)
	}
	if math.Abs(f.ExpectedYen-2100) > 1e-9 {
		t.Errorf("expected yen 2100, got %v", f.ExpectedYen)
	}
	if len(f.Top) != 2 {
		t.Errorf("expected 2 forecast rows, got %d", len(f.Top))
	}
}

func TestPredictDefaultsRate(t *testing.T) {
	ps := []judge.SettingPosterior{{S: "1", Posterior: 1}}
	odds := []spec.SettingOdds{{S: "1", Big: 300, Reg: 450, Payout: 97}}
	f := judge.Predict(ps, odds, 1000, 0)
	if f.Rate != 1.0 {
		t.Errorf("rate must default to 1.0, got %v", f.Rate)
	}
	if f.ExpectedYen != f.ExpectedCoins {
		t.Errorf("at rate 1.0 yen must equal coins")
	}
}
