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

package judgelab

import (
	"github.com/zintix-labs/judgelab/errs"
	"github.com/zintix-labs/judgelab/judge"
	"github.com/zintix-labs/judgelab/slump"
	"github.com/zintix-labs/judgelab/spec"
)

// Analyzer 單一機種的推論入口。
//
// 持有機種的 odds/hints 設定後即不可變；所有方法都是純函數，
// 可被多個 goroutine 同時呼叫。
type Analyzer struct {
	ms  *spec.MachineSpec
	cat spec.MachineCategory
}

func newAnalyzer(ms *spec.MachineSpec) *Analyzer {
	return &Analyzer{ms: ms, cat: ms.Cat()}
}

// Spec 回傳機種設定（呼叫端不得修改）。
func (a *Analyzer) Spec() *spec.MachineSpec {
	return a.ms
}

// JudgeOptions Judge 的可選輸入。零值代表「只用計數證據」。
type JudgeOptions struct {
	// Hints 示唆演出計數（hintItemID -> 次數）。
	Hints judge.HintCounts
	// Bias 圖形偏差估計的結果；nil 表示不套用。
	Bias *slump.Bias
	// Allow 設定段白名單（店公告「設定 456 のみ」之類）；nil 表示全開。
	Allow []string
	// TopN 摘要列的長度；<= 0 時取 3。
	TopN int
}

// JudgeResult 一次完整推論的輸出。
type JudgeResult struct {
	// Posteriors 全設定段的後驗（含被硬排除的 0 列）。
	Posteriors []judge.SettingPosterior `json:"posteriors"`
	// Top 後驗由高到低的前 N 段。
	Top []judge.SettingPosterior `json:"top"`
	// Note 示唆被放棄時的說明，平常為空。
	Note string `json:"note,omitempty"`
	// Contradiction 示唆互相矛盾（此時示唆未被套用）。
	Contradiction bool `json:"contradiction,omitempty"`
}

// Judge 執行完整的推論管線：
//
//	counts -> posterior -> 示唆調整 -> 圖形偏差補正 -> Top-N
//
// 每一段都 fail-soft：示唆矛盾或偏差無法套用時，回傳前一段的結果
// 並在 Note 說明。輸入計數本身不合法時才回 error。
func (a *Analyzer) Judge(in judge.Input, opt JudgeOptions) (JudgeResult, error) {
	var allow map[string]struct{}
	if len(opt.Allow) > 0 {
		allow = make(map[string]struct{}, len(opt.Allow))
		for _, s := range opt.Allow {
			allow[s] = struct{}{}
		}
	}

	ps := judge.PosteriorAllowed(a.ms.Settings, in, allow)
	if ps == nil {
		return JudgeResult{}, errs.NewWarn("invalid judge input")
	}

	res := JudgeResult{}
	adj := judge.AdjustWithHints(ps, a.ms, opt.Hints)
	ps = adj.Posteriors
	res.Note = adj.Note
	res.Contradiction = adj.Contradiction

	if opt.Bias != nil {
		ps = judge.ApplyBias(ps, opt.Bias.BiasZ, opt.Bias.Confidence, a.cat)
	}

	n := opt.TopN
	if n <= 0 {
		n = 3
	}
	res.Posteriors = ps
	res.Top = judge.TopN(ps, n)
	return res, nil
}

// TapBias 兩點式圖形偏差估計（拍照後點兩個點）。
func (a *Analyzer) TapBias(start, end slump.Point, axis slump.Axis, spins int) slump.Bias {
	return slump.TapEstimate(start, end, axis, a.cat, spins)
}

// SlumpBias 全折線圖形偏差估計，附帶判斷文字與診斷用指標。
func (a *Analyzer) SlumpBias(pts []slump.Point, axis slump.Axis, startX, endX float64, spins int) slump.Decision {
	norm := slump.Normalize(pts, axis, startX, endX)
	return slump.SeriesEstimate(norm, a.cat, spins)
}

// Recommend 由後驗產生三段式續行建議。
func (a *Analyzer) Recommend(ps []judge.SettingPosterior, futureGames int) judge.Advice {
	return judge.Recommend(ps, a.ms.Settings, futureGames)
}

// Predict 未來轉數的期待値預測。rate <= 0 視為等價 1.0。
func (a *Analyzer) Predict(ps []judge.SettingPosterior, games int, rate float64) judge.Forecast {
	return judge.Predict(ps, a.ms.Settings, games, rate)
}
