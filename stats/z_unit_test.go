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

package stats_test

import (
	"math"
	"testing"

	"github.com/zintix-labs/judgelab/spec"
	"github.com/zintix-labs/judgelab/stats"
)

// buildReport constructs a ConvergenceReport from a list of per-session
// true-setting posteriors. Sessions with posterior >= 0.5 are counted as Top1,
// >= 0.3 as Top2, to keep the fixture simple.
func buildReport(posts []float64) *stats.ConvergenceReport {
	L := stats.Buckets.Len()
	collect := make([]int, L)

	var top1, top2 int
	var sum, sqSum float64
	for _, p := range posts {
		collect[stats.Buckets.Index(p)]++
		if p >= 0.5 {
			top1++
		}
		if p >= 0.3 {
			top2++
		}
		sum += p
		sqSum += p * p
	}

	return &stats.ConvergenceReport{
		Summary: &stats.SummaryReport{
			MachineName: "test_machine",
			MachineId:   spec.MID(1),
			TrueSetting: "4",
			Games:       3000,
			Sessions:    len(posts),
			BigTotal:    120,
			RegTotal:    90,
		},
		Hit: &stats.HitReport{Top1: top1, Top2: top2},
		Post: &stats.PostReport{
			TrueSum:     sum,
			TrueSqSum:   sqSum,
			Bucket:      stats.Buckets.PostBucketStr(),
			PostCollect: collect,
		},
	}
}

func TestPostBucketsIndex(t *testing.T) {
	cases := []struct {
		post float64
		want int
	}{
		{-0.5, 0},
		{0, 0},
		{0.05, 0},
		{0.1, 1},
		{0.55, 5},
		{0.9999, 9},
		{1, 9},
		{1.5, 9},
	}
	for _, tc := range cases {
		if got := stats.Buckets.Index(tc.post); got != tc.want {
			t.Errorf("Index(%v) = %d, want %d", tc.post, got, tc.want)
		}
	}
	if stats.Buckets.Len() != len(stats.Buckets.PostBucketStr()) {
		t.Error("bucket labels and bucket count out of sync")
	}
}

func TestConvergenceReportDone(t *testing.T) {
	posts := []float64{0.1, 0.3, 0.5, 0.7, 0.9, 0.8, 0.6, 0.4, 0.2, 0.55}
	rep := buildReport(posts)
	rep.Done()

	if got := rep.Hit.Top1Rate.Hat; math.Abs(got-0.6) > 1e-9 {
		t.Errorf("Top1Rate = %v, want 0.6", got)
	}
	if got := rep.Hit.Top2Rate.Hat; math.Abs(got-0.8) > 1e-9 {
		t.Errorf("Top2Rate = %v, want 0.8", got)
	}
	if ci := rep.Hit.Top1Rate.CI; ci.Lo > rep.Hit.Top1Rate.Hat || ci.Hi < rep.Hit.Top1Rate.Hat {
		t.Errorf("Top1Rate CI must bracket the point estimate: %+v", ci)
	}

	wantMean := 0.505
	if got := rep.Post.TrueMean; math.Abs(got-wantMean) > 1e-9 {
		t.Errorf("TrueMean = %v, want %v", got, wantMean)
	}
	if rep.Post.TrueStd <= 0 {
		t.Errorf("TrueStd must be positive for spread posts, got %v", rep.Post.TrueStd)
	}

	distSum := 0.0
	for _, d := range rep.Post.PostDist {
		distSum += d
	}
	if math.Abs(distSum-1) > 1e-9 {
		t.Errorf("PostDist must sum to 1, got %v", distSum)
	}
}

func TestConvergenceReportDoneIdempotent(t *testing.T) {
	rep := buildReport([]float64{0.2, 0.8, 0.6})
	rep.Done()
	first := *rep.Post
	rep.Done()
	if rep.Post.TrueMean != first.TrueMean || rep.Post.TrueStd != first.TrueStd {
		t.Error("second Done must be a no-op")
	}
}

func TestTrueStdSmallSamples(t *testing.T) {
	rep := buildReport([]float64{0.5})
	if got := rep.TrueStd(); got != 0 {
		t.Errorf("std of a single session must be 0, got %v", got)
	}
}

func TestEstimatorSessionExp(t *testing.T) {
	samples := []stats.SessionSample{
		{TruePost: 0.95, Top1: true, Top2: true, Advice: "favorable"},
		{TruePost: 0.80, Top1: true, Top2: true, Advice: "favorable"},
		{TruePost: 0.72, Top1: true, Top2: true, Advice: "neutral"},
		{TruePost: 0.55, Top1: true, Top2: true, Advice: "neutral"},
		{TruePost: 0.40, Top1: false, Top2: true, Advice: "neutral"},
		{TruePost: 0.35, Top1: false, Top2: true, Advice: "neutral"},
		{TruePost: 0.20, Top1: false, Top2: false, Advice: "unfavorable"},
		{TruePost: 0.10, Top1: false, Top2: false, Advice: "unfavorable"},
		{TruePost: 0.05, Top1: false, Top2: false, Advice: "unfavorable"},
		{TruePost: 0.02, Top1: false, Top2: false, Advice: "unfavorable"},
	}
	est := stats.EstimatorSessionExp(samples)

	if got := est.HitStat.Top1.Hat; math.Abs(got-0.4) > 1e-9 {
		t.Errorf("Top1 = %v, want 0.4", got)
	}
	if got := est.HitStat.Top2.Hat; math.Abs(got-0.6) > 1e-9 {
		t.Errorf("Top2 = %v, want 0.6", got)
	}
	if got := est.AdviceStat.Favorable.Hat; math.Abs(got-0.2) > 1e-9 {
		t.Errorf("Favorable = %v, want 0.2", got)
	}
	if got := est.AdviceStat.Unfavorable.Hat; math.Abs(got-0.4) > 1e-9 {
		t.Errorf("Unfavorable = %v, want 0.4", got)
	}
	if got := est.PostStat.Above.Above50.Hat; math.Abs(got-0.4) > 1e-9 {
		t.Errorf("Above50 = %v, want 0.4", got)
	}
	if got := est.PostStat.Above.Above90.Hat; math.Abs(got-0.1) > 1e-9 {
		t.Errorf("Above90 = %v, want 0.1", got)
	}

	med := est.PostStat.Median
	if med.Hat < 0.2 || med.Hat > 0.55 {
		t.Errorf("median hat out of plausible range: %v", med.Hat)
	}
	if med.CI.Lo > med.Hat || med.CI.Hi < med.Hat {
		t.Errorf("median CI must bracket the hat: %+v", med)
	}
	if est.PostStat.Perc.PostP10.Hat > est.PostStat.Perc.PostP90.Hat {
		t.Errorf("P10 must not exceed P90: %+v", est.PostStat.Perc)
	}
}

func TestEstimatorSessionExpEmpty(t *testing.T) {
	est := stats.EstimatorSessionExp(nil)
	if est == nil {
		t.Fatal("empty input must still return a report")
	}
	if est.HitStat.Top1.Hat != 0 {
		t.Errorf("empty input must be all-zero, got %+v", est.HitStat)
	}
}

func TestProportionCIBounds(t *testing.T) {
	// Clopper-Pearson: 端点でも [0,1] に収まり、Hat を挟む
	rep := buildReport([]float64{0.9, 0.9, 0.9, 0.9})
	rep.Done()
	ci := rep.Hit.Top1Rate.CI
	if ci.Lo < 0 || ci.Hi > 1 {
		t.Errorf("CI out of [0,1]: %+v", ci)
	}
	if rep.Hit.Top1Rate.Hat != 1 {
		t.Errorf("all-hit fixture must give Hat=1, got %v", rep.Hit.Top1Rate.Hat)
	}
	if ci.Hi != 1 {
		t.Errorf("upper bound at k=n must be 1, got %v", ci.Hi)
	}
}
