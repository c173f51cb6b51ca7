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

// MachineCategory 定義機台類別。
// 類別決定圖形偏差估計的倍率、信心上限與轉數基準。
type MachineCategory uint8

const (
	// CategoryAType 一般 A 型（リール機）。
	CategoryAType MachineCategory = iota
	// CategoryATypeLight A 型但波動幅度較窄的機種；信心上限較低，
	// 且需偵測單發大躍升（一撃タイプ）訊號。
	CategoryATypeLight
	// CategorySmartAT スマート AT 型；圖形訊號最不可靠，文字判斷優先於數值。
	CategorySmartAT
)

var categoryMap = map[string]MachineCategory{
	"a_type":       CategoryAType,
	"a_type_light": CategoryATypeLight,
	"smart_at":     CategorySmartAT,
}

// ParseCategory 解析設定檔內的類別字串。
func ParseCategory(s string) (MachineCategory, bool) {
	c, ok := categoryMap[s]
	return c, ok
}

// String 回傳類別的設定檔字串。
func (c MachineCategory) String() string {
	switch c {
	case CategoryAType:
		return "a_type"
	case CategoryATypeLight:
		return "a_type_light"
	case CategorySmartAT:
		return "smart_at"
	}
	return "a_type"
}

// CategoryTuning 每類別的調校常數。
//
// 全部集中具名管理，禁止在引擎內 inline magic number，
// 測試可逐項列舉驗證。
type CategoryTuning struct {
	TapMultiplier  float64 // 兩點式估計的原始強度倍率
	TapFlatPenalty float64 // 兩點式估計的固定信心折減（1.0 = 不折減）
	TargetSpins    float64 // 信心達滿所需的實際轉數基準
	ConfCeiling    float64 // 信心上限
	BiasTypeFactor float64 // 後驗補正時的類別阻尼
}

var tuningTable = map[MachineCategory]CategoryTuning{
	CategoryAType: {
		TapMultiplier:  1.0,
		TapFlatPenalty: 1.0,
		TargetSpins:    200,
		ConfCeiling:    0.8,
		BiasTypeFactor: 1.0,
	},
	CategoryATypeLight: {
		TapMultiplier:  1.0,
		TapFlatPenalty: 1.0,
		TargetSpins:    240,
		ConfCeiling:    0.5,
		BiasTypeFactor: 1.0,
	},
	CategorySmartAT: {
		TapMultiplier:  0.6,
		TapFlatPenalty: 0.8,
		TargetSpins:    260,
		ConfCeiling:    0.35,
		BiasTypeFactor: 0.3,
	},
}

// TuningFor 回傳指定類別的調校常數。未知類別回傳 A 型的保守值。
func TuningFor(c MachineCategory) CategoryTuning {
	if t, ok := tuningTable[c]; ok {
		return t
	}
	return tuningTable[CategoryAType]
}

// 跨類別共用常數。
const (
	// BiasK 後驗補正的固定調整係數。
	BiasK = 0.3
	// BiasStrengthClamp 後驗補正強度的上下限（±）。
	BiasStrengthClamp = 0.15

	// MinTapSpanPx 兩點式估計的最小水平像素跨距；低於此線性折減信心。
	MinTapSpanPx = 80.0
	// MinAxisCoinRange 軸校正的最小枚數範圍；低於此線性折減信心。
	MinAxisCoinRange = 500.0

	// OneShotJumpRatio 單步躍升達軸範圍此比例即視為一撃訊號（ATypeLight）。
	OneShotJumpRatio = 0.25

	// CoinInPerGame 每 G 投入枚數，用於期待値換算。
	CoinInPerGame = 3.0

	// TopMassThreshold 前兩名後驗質量合計達此值即直接判「續行有利」。
	TopMassThreshold = 0.55
	// FavorableEV / UnfavorableEV 期待値（枚）門檻。
	FavorableEV   = 150.0
	UnfavorableEV = -50.0
	// FavorableLossProb / UnfavorableLossProb 虧損機率門檻。
	FavorableLossProb   = 0.45
	UnfavorableLossProb = 0.55
)
