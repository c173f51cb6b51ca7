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

package spec_test

import (
	"testing"

	"github.com/zintix-labs/judgelab/spec"
)

const validYAML = `
machine_name: test_machine
machine_id: 7
category: a_type
settings:
  - s: "1"
    big: 273.1
    reg: 439.8
    total: 168.5
    payout: 97.0
    extras:
      grape: 6.02
  - s: "6"
    big: 226.0
    reg: 268.6
    total: 122.7
    payout: 109.0
    extras:
      grape: 5.66
hint_groups:
  - name: cards
    items:
      - id: card_gold
        label: gold
        effects:
          - type: all_of
            effects:
              - type: min_setting
                setting: 4
              - type: weight
                weights: { "5": 1.2, "6": 1.5 }
`

func TestGetMachineSpecByYAML(t *testing.T) {
	ms, err := spec.GetMachineSpecByYAML([]byte(validYAML))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ms.MachineName != "test_machine" || ms.MachineID != 7 {
		t.Errorf("identity mismatch: %+v", ms)
	}
	if ms.Cat() != spec.CategoryAType {
		t.Errorf("category mismatch: %v", ms.Cat())
	}
	if len(ms.Settings) != 2 || ms.Settings[1].Extras["grape"] != 5.66 {
		t.Errorf("settings not parsed: %+v", ms.Settings)
	}
	if _, ok := ms.HintItemByID("card_gold"); !ok {
		t.Error("hint item card_gold missing")
	}
}

func TestGetMachineSpecByJSON(t *testing.T) {
	data := []byte(`{
		"machine_name": "json_machine",
		"machine_id": 9,
		"category": "smart_at",
		"settings": [
			{"s": "1", "big": 400, "reg": 650, "total": 250, "payout": 97.5, "suika_cz_rate": 0.22},
			{"s": "L", "big": 310, "reg": 364, "total": 167, "payout": 113, "suika_cz_rate": 0.42}
		]
	}`)
	ms, err := spec.GetMachineSpecByJSON(data)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ms.Cat() != spec.CategorySmartAT {
		t.Errorf("category mismatch: %v", ms.Cat())
	}
	if ms.Settings[1].S != "L" || ms.Settings[1].SuikaCzRate != 0.42 {
		t.Errorf("sentinel setting not parsed: %+v", ms.Settings[1])
	}
}

func TestGetMachineSpecRejectsBadConfigs(t *testing.T) {
	cases := []struct {
		name string
		yaml string
	}{
		{"empty name", `
machine_name: ""
machine_id: 1
category: a_type
settings: [{s: "1", big: 200, reg: 300, total: 120, payout: 98}]
`},
		{"unknown category", `
machine_name: m
machine_id: 1
category: b_type
settings: [{s: "1", big: 200, reg: 300, total: 120, payout: 98}]
`},
		{"no settings", `
machine_name: m
machine_id: 1
category: a_type
settings: []
`},
		{"duplicate setting", `
machine_name: m
machine_id: 1
category: a_type
settings:
  - {s: "1", big: 200, reg: 300, total: 120, payout: 98}
  - {s: "1", big: 190, reg: 280, total: 113, payout: 100}
`},
		{"zero denominator", `
machine_name: m
machine_id: 1
category: a_type
settings: [{s: "1", big: 0, reg: 300, total: 120, payout: 98}]
`},
		{"rate above one", `
machine_name: m
machine_id: 1
category: smart_at
settings: [{s: "1", big: 200, reg: 300, total: 120, payout: 98, suika_cz_rate: 1.5}]
`},
		{"zero payout", `
machine_name: m
machine_id: 1
category: a_type
settings: [{s: "1", big: 200, reg: 300, total: 120}]
`},
		{"unknown hint effect", `
machine_name: m
machine_id: 1
category: a_type
settings: [{s: "1", big: 200, reg: 300, total: 120, payout: 98}]
hint_groups:
  - name: g
    items:
      - id: h1
        label: x
        effects: [{type: teleport, setting: 3}]
`},
		{"duplicate hint id across groups", `
machine_name: m
machine_id: 1
category: a_type
settings: [{s: "1", big: 200, reg: 300, total: 120, payout: 98}]
hint_groups:
  - name: g1
    items: [{id: h1, label: a, effects: [{type: min_setting, setting: 2}]}]
  - name: g2
    items: [{id: h1, label: b, effects: [{type: min_setting, setting: 3}]}]
`},
		{"weight on non-numeric setting", `
machine_name: m
machine_id: 1
category: a_type
settings: [{s: "1", big: 200, reg: 300, total: 120, payout: 98}]
hint_groups:
  - name: g
    items:
      - id: h1
        label: x
        effects: [{type: weight, weights: {L: 1.5}}]
`},
	}
	for _, tc := range cases {
		if _, err := spec.GetMachineSpecByYAML([]byte(tc.yaml)); err == nil {
			t.Errorf("[%s] expected error, got nil", tc.name)
		}
	}
}

func TestHintEffectFlatten(t *testing.T) {
	eff := spec.HintEffect{
		Type: "all_of",
		Effects: []spec.HintEffect{
			{Type: "min_setting", Setting: 2},
			{Type: "all_of", Effects: []spec.HintEffect{
				{Type: "exclude_setting", Setting: 1},
				{Type: "weight", Weights: map[string]float64{"6": 2}},
			}},
		},
	}
	leaves := eff.Flatten()
	if len(leaves) != 3 {
		t.Fatalf("expected 3 leaves, got %d", len(leaves))
	}
	for _, l := range leaves {
		if l.Type == "all_of" {
			t.Errorf("flatten must not emit all_of leaves")
		}
	}
}

func TestSettingNum(t *testing.T) {
	cases := []struct {
		in  string
		num int
		ok  bool
	}{
		{"1", 1, true},
		{" 6 ", 6, true},
		{"0", 0, false},
		{"-2", 0, false},
		{"L", 0, false},
		{"", 0, false},
	}
	for _, tc := range cases {
		num, ok := spec.SettingNum(tc.in)
		if num != tc.num || ok != tc.ok {
			t.Errorf("SettingNum(%q) = (%d, %v), want (%d, %v)", tc.in, num, ok, tc.num, tc.ok)
		}
	}
}

func TestCategoryTuning(t *testing.T) {
	at := spec.TuningFor(spec.CategoryAType)
	lt := spec.TuningFor(spec.CategoryATypeLight)
	sm := spec.TuningFor(spec.CategorySmartAT)

	if !(sm.ConfCeiling < lt.ConfCeiling && lt.ConfCeiling < at.ConfCeiling) {
		t.Errorf("confidence ceilings must tighten with graph unreliability: %v %v %v",
			at.ConfCeiling, lt.ConfCeiling, sm.ConfCeiling)
	}
	if sm.BiasTypeFactor >= at.BiasTypeFactor {
		t.Errorf("smart_at posterior bias must be damped: %v >= %v",
			sm.BiasTypeFactor, at.BiasTypeFactor)
	}
	// 未知カテゴリは A型 にフォールバック
	if spec.TuningFor(spec.MachineCategory(99)) != at {
		t.Error("unknown category must fall back to a_type tuning")
	}
}

func TestParseCategory(t *testing.T) {
	for s, want := range map[string]spec.MachineCategory{
		"a_type":       spec.CategoryAType,
		"a_type_light": spec.CategoryATypeLight,
		"smart_at":     spec.CategorySmartAT,
	} {
		got, ok := spec.ParseCategory(s)
		if !ok || got != want {
			t.Errorf("ParseCategory(%q) = (%v, %v)", s, got, ok)
		}
	}
	if _, ok := spec.ParseCategory("jug_type"); ok {
		t.Error("unknown category string must not parse")
	}
}
