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

package judgelab_test

import (
	"testing"
	"testing/fstest"

	"github.com/zintix-labs/judgelab"
	"github.com/zintix-labs/judgelab/demo/demo_configs"
	"github.com/zintix-labs/judgelab/judge"
	"github.com/zintix-labs/judgelab/spec"
)

// -----------------------------------------------------------------------------
// Helper Functions
// -----------------------------------------------------------------------------

const machineYAML = `
machine_name: unit_machine
machine_id: 1
category: a_type
settings:
  - {s: "1", big: 300, reg: 450, total: 180, payout: 97}
  - {s: "4", big: 260, reg: 330, total: 145, payout: 102}
  - {s: "6", big: 230, reg: 280, total: 126, payout: 110}
hint_groups:
  - name: cards
    items:
      - id: card_gold
        label: gold
        effects: [{type: min_setting, setting: 4}]
`

func newTestLab(t *testing.T) *judgelab.Lab {
	t.Helper()
	fsys := fstest.MapFS{
		"unit_machine.yaml": &fstest.MapFile{Data: []byte(machineYAML)},
	}
	lab, err := judgelab.NewAuto(judgelab.Configs(fsys))
	if err != nil {
		t.Fatalf("NewAuto failed: %v", err)
	}
	return lab
}

// -----------------------------------------------------------------------------
// Lab assembly
// -----------------------------------------------------------------------------

func TestNewRequiresConfigs(t *testing.T) {
	if _, err := judgelab.New(nil); err == nil {
		t.Fatal("expected error on empty configs")
	}
}

func TestNewAutoRegistersAndFreezes(t *testing.T) {
	lab := newTestLab(t)

	ent, ok := lab.EntryById(spec.MID(1))
	if !ok || ent.Name != "unit_machine" {
		t.Fatalf("entry missing: %+v", ent)
	}
	if _, ok := lab.EntryByName("unit_machine"); !ok {
		t.Fatal("lookup by name failed")
	}

	sum, err := lab.Summary()
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	if len(sum) != 1 || sum[0].Category != "a_type" || sum[0].Hints != 1 {
		t.Errorf("summary mismatch: %+v", sum)
	}
	if len(sum[0].Settings) != 3 {
		t.Errorf("expected 3 settings in summary, got %v", sum[0].Settings)
	}
}

func TestNewAutoRejectsDuplicateID(t *testing.T) {
	dup := `
machine_name: another_machine
machine_id: 1
category: a_type
settings:
  - {s: "1", big: 280, reg: 400, total: 165, payout: 98}
`
	fsys := fstest.MapFS{
		"a.yaml": &fstest.MapFile{Data: []byte(machineYAML)},
		"b.yaml": &fstest.MapFile{Data: []byte(dup)},
	}
	if _, err := judgelab.NewAuto(judgelab.Configs(fsys)); err == nil {
		t.Fatal("duplicate machine id must fail registration")
	}
}

func TestNewAutoRejectsNestedConfigs(t *testing.T) {
	fsys := fstest.MapFS{
		"sub/unit_machine.yaml": &fstest.MapFile{Data: []byte(machineYAML)},
	}
	if _, err := judgelab.NewAuto(judgelab.Configs(fsys)); err == nil {
		t.Fatal("nested config dirs must be rejected")
	}
}

func TestDemoConfigsLoad(t *testing.T) {
	lab, err := judgelab.NewAuto(judgelab.Configs(demo_configs.FS))
	if err != nil {
		t.Fatalf("demo configs must load: %v", err)
	}
	sum, err := lab.Summary()
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	if len(sum) != 3 {
		t.Fatalf("expected 3 demo machines, got %d", len(sum))
	}
}

// -----------------------------------------------------------------------------
// Analyzer
// -----------------------------------------------------------------------------

func TestAnalyzerJudgePipeline(t *testing.T) {
	lab := newTestLab(t)
	an, err := lab.NewAnalyzer(spec.MID(1))
	if err != nil {
		t.Fatalf("NewAnalyzer: %v", err)
	}

	in := judge.Input{
		Games:    3000,
		BigCount: judge.IntP(13),
		RegCount: judge.IntP(11),
	}
	res, err := an.Judge(in, judgelab.JudgeOptions{
		Hints: judge.HintCounts{"card_gold": 1},
		TopN:  2,
	})
	if err != nil {
		t.Fatalf("Judge: %v", err)
	}
	if res.Contradiction || res.Note != "" {
		t.Fatalf("unexpected note: %+v", res)
	}
	if len(res.Top) != 2 {
		t.Errorf("expected 2 top rows, got %d", len(res.Top))
	}
	// min_setting 4 口コミ: 設定1は除外される
	for _, sp := range res.Posteriors {
		if sp.S == "1" && sp.Posterior != 0 {
			t.Errorf("setting 1 must be excluded by the gold card hint, got %v", sp.Posterior)
		}
	}
}

func TestAnalyzerJudgeInvalidInput(t *testing.T) {
	lab := newTestLab(t)
	an, _ := lab.NewAnalyzer(spec.MID(1))
	if _, err := an.Judge(judge.Input{Games: 0}, judgelab.JudgeOptions{}); err == nil {
		t.Fatal("invalid counts must return an error")
	}
}

func TestAnalyzerUnknownMachine(t *testing.T) {
	lab := newTestLab(t)
	if _, err := lab.NewAnalyzer(spec.MID(999)); err == nil {
		t.Fatal("unknown machine id must fail")
	}
	if _, err := lab.NewAnalyzerByName("no_such_machine"); err == nil {
		t.Fatal("unknown machine name must fail")
	}
}

// -----------------------------------------------------------------------------
// Simulator
// -----------------------------------------------------------------------------

func TestSimulatorConvergesOnTrueSetting(t *testing.T) {
	lab := newTestLab(t)
	sim, err := lab.NewSimulator(spec.MID(1), 12345)
	if err != nil {
		t.Fatalf("NewSimulator: %v", err)
	}

	rep, _, err := sim.Sim("6", 5000, 60, false)
	if err != nil {
		t.Fatalf("Sim: %v", err)
	}
	if rep.Summary.Sessions != 60 || rep.Summary.TrueSetting != "6" {
		t.Fatalf("summary mismatch: %+v", rep.Summary)
	}
	// 設定1/4/6 は大きく離れている: 5000G あれば過半の session で正解が1位に来る
	if rep.Hit.Top1Rate.Hat < 0.5 {
		t.Errorf("Top1 rate unexpectedly low: %v", rep.Hit.Top1Rate.Hat)
	}
	if rep.Hit.Top2Rate.Hat < rep.Hit.Top1Rate.Hat {
		t.Errorf("Top2 rate must dominate Top1: %+v", rep.Hit)
	}
	if rep.Post.TrueMean <= 1.0/3.0 {
		t.Errorf("true-setting posterior mean must beat uniform: %v", rep.Post.TrueMean)
	}
}

func TestSimulatorDeterministicWithSeed(t *testing.T) {
	lab := newTestLab(t)
	s1, _ := lab.NewSimulator(spec.MID(1), 777)
	s2, _ := lab.NewSimulator(spec.MID(1), 777)

	r1, _, err := s1.Sim("4", 2000, 20, false)
	if err != nil {
		t.Fatalf("Sim: %v", err)
	}
	r2, _, err := s2.Sim("4", 2000, 20, false)
	if err != nil {
		t.Fatalf("Sim: %v", err)
	}
	if *r1.Summary != *r2.Summary {
		t.Errorf("same seed must reproduce the run: %+v vs %+v", r1.Summary, r2.Summary)
	}
	if r1.Hit.Top1 != r2.Hit.Top1 || r1.Hit.Top2 != r2.Hit.Top2 {
		t.Errorf("hit counts diverged: %+v vs %+v", r1.Hit, r2.Hit)
	}
}

func TestSimulatorUnknownSetting(t *testing.T) {
	lab := newTestLab(t)
	sim, _ := lab.NewSimulator(spec.MID(1), 1)
	if _, _, err := sim.Sim("9", 1000, 5, false); err == nil {
		t.Fatal("unknown setting must fail")
	}
}

func TestSimulatorEstimates(t *testing.T) {
	lab := newTestLab(t)
	sim, _ := lab.NewSimulator(spec.MID(1), 42)

	rep, est, _, err := sim.SimEst("6", 3000, 15, 2, false)
	if err != nil {
		t.Fatalf("SimEst: %v", err)
	}
	if rep.Summary.Sessions != 30 {
		t.Errorf("2 workers x 15 sessions = 30, got %d", rep.Summary.Sessions)
	}
	if est == nil {
		t.Fatal("estimator report missing")
	}
	total := est.AdviceStat.Favorable.Hat + est.AdviceStat.Neutral.Hat + est.AdviceStat.Unfavorable.Hat
	if total < 0.999 || total > 1.001 {
		t.Errorf("advice proportions must sum to 1, got %v", total)
	}
}
