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

// Package slump 處理累積差枚折線（スランプグラフ）的數值摘要與偏差估計。
//
// 本包為純函數：不依賴 I/O、時鐘或亂數，輸入相同則輸出相同。
// 所有輸出保證有限（不產生 NaN/Inf），不合法輸入一律退化為零值輸出。
package slump

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// Metrics 一條差枚序列的數值摘要。
type Metrics struct {
	DdMax       float64 `json:"dd_max"`       // 最大回落（peak - trough），恆 >= 0
	DdPeak      float64 `json:"dd_peak"`      // 產生最大回落的峰值
	DdTrough    float64 `json:"dd_trough"`    // 產生最大回落的谷值
	RecoverRate float64 `json:"recover_rate"` // 最大回落至終點的回復比例，[0,1]
	TrendRecent float64 `json:"trend_recent"` // 末段每步平均斜率
	Volatility  float64 `json:"volatility"`   // 一階差分的樣本標準差（n-1）
	TimeUnder0  float64 `json:"time_under0"`  // 嚴格小於 0 的樣本比例，[0,1]
}

// 末段趨勢的取樣比例與最小視窗。
const (
	recentFraction  = 0.2
	minRecentWindow = 2
)

// Measure 計算序列摘要。
//
// 非有限值（NaN/Inf）樣本會先被剔除；清理後長度 < 2 視為退化序列，
// 回傳全零 Metrics。所有除法都有分母保護。
func Measure(series []float64) Metrics {
	clean := make([]float64, 0, len(series))
	for _, v := range series {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		clean = append(clean, v)
	}
	if len(clean) < 2 {
		return Metrics{}
	}

	var m Metrics
	n := len(clean)

	// 最大回落：追蹤 running peak，逐點計算 peak - value。
	peak := clean[0]
	curPeak := clean[0]
	for _, v := range clean[1:] {
		if v > curPeak {
			curPeak = v
		}
		if dd := curPeak - v; dd > m.DdMax {
			m.DdMax = dd
			m.DdPeak = curPeak
			m.DdTrough = v
		}
		if v > peak {
			peak = v
		}
	}

	// 回復比例：(last - trough) / (peak - trough)，無回落時為 0。
	if m.DdMax > 0 {
		last := clean[n-1]
		r := (last - m.DdTrough) / (m.DdPeak - m.DdTrough)
		m.RecoverRate = clamp01(r)
	}

	// 末段趨勢：最後 ⌈20%⌉ 個樣本（最少 2 個）的平均一階差分。
	w := int(math.Ceil(recentFraction * float64(n)))
	if w < minRecentWindow {
		w = minRecentWindow
	}
	if w > n {
		w = n
	}
	if w >= 2 {
		m.TrendRecent = (clean[n-1] - clean[n-w]) / float64(w-1)
	}

	// 波動度：全序列一階差分的樣本標準差。
	if n >= 3 {
		diffs := make([]float64, 0, n-1)
		for i := 1; i < n; i++ {
			diffs = append(diffs, clean[i]-clean[i-1])
		}
		sd := stat.StdDev(diffs, nil)
		if !math.IsNaN(sd) && !math.IsInf(sd, 0) {
			m.Volatility = sd
		}
	}

	// 水面下時間比。
	under := 0
	for _, v := range clean {
		if v < 0 {
			under++
		}
	}
	m.TimeUnder0 = float64(under) / float64(n)

	return m.sanitize()
}

// sanitize 保證所有欄位有限，違反時歸零。
func (m Metrics) sanitize() Metrics {
	fix := func(v float64) float64 {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return 0
		}
		return v
	}
	m.DdMax = fix(m.DdMax)
	m.DdPeak = fix(m.DdPeak)
	m.DdTrough = fix(m.DdTrough)
	m.RecoverRate = fix(m.RecoverRate)
	m.TrendRecent = fix(m.TrendRecent)
	m.Volatility = fix(m.Volatility)
	m.TimeUnder0 = fix(m.TimeUnder0)
	return m
}

func clamp01(v float64) float64 {
	if v < 0 || math.IsNaN(v) {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func clamp(v, lo, hi float64) float64 {
	if v < lo || math.IsNaN(v) {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
