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

package spec

import (
	"fmt"

	"github.com/zintix-labs/judgelab/errs"
)

// HintEffectType 定義示唆效果的封閉集合（closed sum type）。
type HintEffectType int

const (
	EffectMinSetting HintEffectType = iota
	EffectExactSetting
	EffectExcludeSetting
	EffectWeight
	EffectAllOf
)

var effectTypeMap = map[string]HintEffectType{
	"min_setting":     EffectMinSetting,
	"exact_setting":   EffectExactSetting,
	"exclude_setting": EffectExcludeSetting,
	"weight":          EffectWeight,
	"all_of":          EffectAllOf,
}

// ParseEffectType 解析設定檔中的效果型別字串。
func ParseEffectType(s string) (HintEffectType, bool) {
	t, ok := effectTypeMap[s]
	return t, ok
}

// HintEffect 一個示唆效果。tagged variant：
//   - min_setting     : Setting 生效（設定 >= n 確定）
//   - exact_setting   : Setting 生效（設定 == n 確定）
//   - exclude_setting : Setting 生效（設定 != n 確定）
//   - weight          : Weights 生效（各設定段的軟性倍率）
//   - all_of          : Effects 生效（複合效果，展開後逐一套用）
//
// 欄位不混用；valid() 會拒絕帶了非本型別欄位以外必填缺漏的設定。
type HintEffect struct {
	Type    string             `yaml:"type"              json:"type"`
	Setting int                `yaml:"setting,omitempty" json:"setting,omitempty"`
	Weights map[string]float64 `yaml:"weights,omitempty" json:"weights,omitempty"`
	Effects []HintEffect       `yaml:"effects,omitempty" json:"effects,omitempty"`
}

const maxEffectDepth = 4

func (he *HintEffect) valid(depth int) error {
	if depth > maxEffectDepth {
		return errs.NewFatal("hint effect nested too deep")
	}
	t, ok := ParseEffectType(he.Type)
	if !ok {
		return errs.NewFatal(fmt.Sprintf("unknown hint effect type: %q", he.Type))
	}
	switch t {
	case EffectMinSetting, EffectExactSetting, EffectExcludeSetting:
		if he.Setting < 1 {
			return errs.NewFatal(fmt.Sprintf("hint effect %q: setting must be >= 1", he.Type))
		}
	case EffectWeight:
		if len(he.Weights) == 0 {
			return errs.NewFatal("hint effect weight: empty weights")
		}
		for s, w := range he.Weights {
			if _, ok := SettingNum(s); !ok {
				return errs.NewFatal(fmt.Sprintf("hint effect weight: non-numeric setting %q", s))
			}
			if w <= 0 {
				return errs.NewFatal(fmt.Sprintf("hint effect weight: multiplier for %q must be > 0", s))
			}
		}
	case EffectAllOf:
		if len(he.Effects) == 0 {
			return errs.NewFatal("hint effect all_of: empty effects")
		}
		for i := range he.Effects {
			if err := he.Effects[i].valid(depth + 1); err != nil {
				return err
			}
		}
	}
	return nil
}

// Flatten 將效果展開為不含 all_of 的葉效果列表。
func (he HintEffect) Flatten() []HintEffect {
	t, ok := ParseEffectType(he.Type)
	if !ok || t != EffectAllOf {
		return []HintEffect{he}
	}
	out := make([]HintEffect, 0, len(he.Effects))
	for _, sub := range he.Effects {
		out = append(out, sub.Flatten()...)
	}
	return out
}

// HintItem 一個可計數的示唆演出（動畫/音聲/色彩等）。
type HintItem struct {
	ID      string       `yaml:"id"                json:"id"`
	Label   string       `yaml:"label"             json:"label"`
	Effects []HintEffect `yaml:"effects,omitempty" json:"effects,omitempty"`
}

// HintGroup 示唆演出的分組（例如「REG 後ボイス」「エンディング」）。
type HintGroup struct {
	Name  string     `yaml:"name"  json:"name"`
	Items []HintItem `yaml:"items" json:"items"`
}

func (hg *HintGroup) init() error {
	if hg.Name == "" {
		return errs.NewFatal("hint group name required")
	}
	if len(hg.Items) == 0 {
		return errs.NewFatal(fmt.Sprintf("hint group %q: empty items", hg.Name))
	}
	for i := range hg.Items {
		it := &hg.Items[i]
		if it.ID == "" {
			return errs.NewFatal(fmt.Sprintf("hint group %q: item id required", hg.Name))
		}
		for j := range it.Effects {
			if err := it.Effects[j].valid(0); err != nil {
				return errs.Wrap(err, fmt.Sprintf("hint item %q", it.ID))
			}
		}
	}
	return nil
}
