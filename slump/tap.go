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

package slump

import (
	"math"

	"github.com/zintix-labs/judgelab/spec"
)

// Bias 圖形偏差估計的輸出：帶符號偏差與信心。
//
// BiasZ ∈ [-1,1]：正值表示圖形支持續行（高設定傾向），負值相反。
// Confidence ∈ [0,1]：0 表示訊號不可用；後驗補正對近零信心為 no-op。
type Bias struct {
	BiasZ      float64 `json:"bias_z"`
	Confidence float64 `json:"confidence"`
}

// TapEstimate 兩點式幾何估計（タップ輸入フロー）。
//
// 使用者在圖上點出起點/終點，加上軸的上下校正點，即可線性換算出
// 淨差枚並正規化成偏差分數。輸入退化（軸不可用、水平跨距為零）時
// 回傳 {0, 0}，不報錯。
//
// spins <= 0 表示未提供實際轉數。
func TapEstimate(start, end Point, axis Axis, cat spec.MachineCategory, spins int) Bias {
	if !axis.Valid() {
		return Bias{}
	}
	span := math.Abs(end.X - start.X)
	if span == 0 || math.IsNaN(span) {
		return Bias{}
	}
	axisRange := axis.Range()
	if axisRange <= 0 {
		return Bias{}
	}

	tune := spec.TuningFor(cat)

	// 偏差：淨差枚以半個軸範圍正規化，乘上類別倍率後壓入 tanh。
	netCoins := axis.ValueAt(end.Y) - axis.ValueAt(start.Y)
	rawStrength := netCoins / (axisRange / 2)
	biasZ := math.Tanh(rawStrength * tune.TapMultiplier)

	// 信心：從 1 開始乘法折減。
	conf := 1.0
	if span < spec.MinTapSpanPx {
		conf *= span / spec.MinTapSpanPx
	}
	if axisRange < spec.MinAxisCoinRange {
		conf *= axisRange / spec.MinAxisCoinRange
	}
	conf *= tune.TapFlatPenalty
	if spins > 0 {
		conf *= math.Min(1, float64(spins)/tune.TargetSpins)
	}
	conf = math.Min(conf, tune.ConfCeiling)
	conf = clamp01(conf)

	return Bias{BiasZ: biasZ, Confidence: conf}
}
