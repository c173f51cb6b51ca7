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

package judge

import (
	"fmt"
	"math"
	"sort"

	"github.com/zintix-labs/judgelab/spec"
)

// HintCounts 使用者回報的示唆演出計數，key 為 HintItem.ID。
// 機種未定義的 ID 逐項忽略（fail-soft）。
type HintCounts map[string]int

// Adjusted 示唆調整後的結果。
//
// 示唆互相矛盾或把所有設定都排除時，Posteriors 原封不動等於輸入，
// Contradiction 置真並在 Note 說明原因；呼叫端永遠拿得到可用的分布。
type Adjusted struct {
	Posteriors    []SettingPosterior `json:"posteriors"`
	Note          string             `json:"note,omitempty"`
	Contradiction bool               `json:"contradiction,omitempty"`
}

// hintConstraints 展開後的硬制約與軟性權重。
type hintConstraints struct {
	floor    int
	exact    int
	hasExact bool
	excluded map[int]struct{}
	weights  map[string]float64
}

// AdjustWithHints 把示唆演出的計數套用到既有的設定後驗上。
//
// 硬制約（min/exact/exclude）出現一次即生效，重複計數不加乘；
// 軟性權重（weight）每出現一次乘一次倍率。兩類制約先各自彙整，
// 再一次套用並重新正規化，因此同一組輸入永遠得到同一組輸出。
//
// 互相矛盾的 exact、或制約排除了所有設定時，放棄示唆回傳原分布。
func AdjustWithHints(base []SettingPosterior, ms *spec.MachineSpec, counts HintCounts) Adjusted {
	if len(base) == 0 || ms == nil || len(counts) == 0 {
		return Adjusted{Posteriors: base}
	}

	cons, err := collectConstraints(ms, counts)
	if err != "" {
		return Adjusted{Posteriors: base, Note: err, Contradiction: true}
	}
	if !cons.active() {
		return Adjusted{Posteriors: base}
	}

	out := make([]SettingPosterior, len(base))
	copy(out, base)

	sum := 0.0
	for i := range out {
		p := out[i].Posterior
		if !cons.allows(out[i].S) {
			p = 0
		} else if w, ok := cons.weights[out[i].S]; ok {
			p *= w
		}
		out[i].Posterior = p
		sum += p
	}
	if sum <= 0 || math.IsInf(sum, 0) || math.IsNaN(sum) {
		return Adjusted{
			Posteriors:    base,
			Note:          "hints exclude every setting; hints ignored",
			Contradiction: true,
		}
	}
	for i := range out {
		out[i].Posterior /= sum
	}
	return Adjusted{Posteriors: out}
}

// collectConstraints 依 item ID 排序後彙整所有被觸發的效果。
// 發現兩個不同值的 exact_setting 即視為矛盾，回傳非空的說明字串。
func collectConstraints(ms *spec.MachineSpec, counts HintCounts) (hintConstraints, string) {
	ids := make([]string, 0, len(counts))
	for id, n := range counts {
		if n > 0 {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)

	cons := hintConstraints{
		excluded: map[int]struct{}{},
		weights:  map[string]float64{},
	}
	for _, id := range ids {
		item, ok := ms.HintItemByID(id)
		if !ok {
			continue
		}
		n := counts[id]
		for _, eff := range item.Effects {
			for _, leaf := range eff.Flatten() {
				t, ok := spec.ParseEffectType(leaf.Type)
				if !ok {
					continue
				}
				switch t {
				case spec.EffectMinSetting:
					if leaf.Setting > cons.floor {
						cons.floor = leaf.Setting
					}
				case spec.EffectExactSetting:
					if cons.hasExact && cons.exact != leaf.Setting {
						return hintConstraints{}, fmt.Sprintf(
							"conflicting exact-setting hints (%d vs %d); hints ignored",
							cons.exact, leaf.Setting)
					}
					cons.exact = leaf.Setting
					cons.hasExact = true
				case spec.EffectExcludeSetting:
					cons.excluded[leaf.Setting] = struct{}{}
				case spec.EffectWeight:
					for s, mult := range leaf.Weights {
						w, ok := cons.weights[s]
						if !ok {
							w = 1
						}
						cons.weights[s] = w * math.Pow(mult, float64(n))
					}
				}
			}
		}
	}
	return cons, ""
}

func (hc *hintConstraints) active() bool {
	return hc.floor > 0 || hc.hasExact || len(hc.excluded) > 0 || len(hc.weights) > 0
}

// deterministic 是否有任何硬制約；有的話非數字設定段一律排除，
// 因為制約只對數字設定有定義。
func (hc *hintConstraints) deterministic() bool {
	return hc.floor > 0 || hc.hasExact || len(hc.excluded) > 0
}

func (hc *hintConstraints) allows(s string) bool {
	num, ok := spec.SettingNum(s)
	if !ok {
		return !hc.deterministic()
	}
	if num < hc.floor {
		return false
	}
	if hc.hasExact && num != hc.exact {
		return false
	}
	if _, ex := hc.excluded[num]; ex {
		return false
	}
	return true
}
