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

// Package judge 實作設定判別引擎：
// 依觀測計數對各設定段做貝氏更新（均勻先驗、來源間條件獨立、log 空間合成），
// 再疊加示唆制約與圖形偏差補正，最後做 Top-N 與續行建議的摘要。
//
// 本包為純函數：不依賴 I/O、時鐘或亂數；同輸入必同輸出（冪等）。
// 不合法輸入採 fail-closed：回空結果，不報錯（呼叫端視為「還不能算」）。
package judge

import "github.com/zintix-labs/judgelab/spec"

// Input 一次觀測會話的原始計數。
//
// Games 為必填；其餘皆為可選證據來源，nil 指標 / 缺項代表「此來源無證據」。
// Contract（不合法即整體 fail-closed）：
//   - Games 必須 > 0。
//   - 所有計數非負；BigCount/RegCount/ExtraCount/ExtraCounts 各自 <= Games，
//     且 BigCount+RegCount <= Games。
//   - hits 類數值不得超過成對的 trials 類數值。
//   - trials/hits 只提供一邊時，該來源視為 malformed，跳過不計（不 fail）。
type Input struct {
	Games int

	BigCount *int
	RegCount *int

	ExtraCount  *int
	ExtraCounts map[spec.MetricID]int

	BinomialTrials map[spec.MetricID]int
	BinomialHits   map[spec.MetricID]int

	SuikaTrials *int
	SuikaCzHits *int

	UraAtTrials *int
	UraAtHits   *int
}

// valid 回傳輸入是否可計算。違反任何 contract 即 false（引擎回空結果）。
func (in *Input) valid() bool {
	if in == nil || in.Games < 1 {
		return false
	}

	inRange := func(p *int, hi int) bool {
		return p == nil || (*p >= 0 && *p <= hi)
	}
	if !inRange(in.BigCount, in.Games) || !inRange(in.RegCount, in.Games) {
		return false
	}
	if in.BigCount != nil && in.RegCount != nil && *in.BigCount+*in.RegCount > in.Games {
		return false
	}
	if !inRange(in.ExtraCount, in.Games) {
		return false
	}
	for _, k := range in.ExtraCounts {
		if k < 0 || k > in.Games {
			return false
		}
	}
	for id, k := range in.BinomialHits {
		if k < 0 {
			return false
		}
		if n, ok := in.BinomialTrials[id]; ok && k > n {
			return false
		}
	}
	for _, n := range in.BinomialTrials {
		if n < 0 {
			return false
		}
	}
	if !pairValid(in.SuikaTrials, in.SuikaCzHits) {
		return false
	}
	if !pairValid(in.UraAtTrials, in.UraAtHits) {
		return false
	}
	return true
}

// pairValid 檢查 trials/hits 成對值。只提供一邊不算錯（會被跳過），
// 但負值或 hits > trials 即不合法。
func pairValid(trials, hits *int) bool {
	if trials != nil && *trials < 0 {
		return false
	}
	if hits != nil && *hits < 0 {
		return false
	}
	if trials != nil && hits != nil && *hits > *trials {
		return false
	}
	return true
}

// IntP 把 int 包成指標，方便組裝 Input。
func IntP(v int) *int { return &v }
