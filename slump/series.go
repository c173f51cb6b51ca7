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

// Decision 全序列估計的輸出：偏差、信心、文字判斷與中間指標。
//
// SmartAT 類別的 DecisionHint 優先於數值 BiasZ（圖形訊號太弱，
// 文字判斷才是使用者該看的東西）。Metrics 供診斷顯示用。
type Decision struct {
	Bias
	DecisionHint string  `json:"decision_hint"`
	Metrics      Metrics `json:"metrics"`
}

// 全序列估計的正規化基準。
const (
	// trendUnitRatio 末段斜率以軸範圍的 1% 為一單位。
	trendUnitRatio = 0.01
	// volUnitRatio 波動度以軸範圍的 5% 為一單位。
	volUnitRatio = 0.05
	// volConfAttenuation 波動度對信心的最大折減比例。
	volConfAttenuation = 0.5
	// oneShotBias 一撃訊號成立時強制給出的偏差。
	oneShotBias = -0.85
)

// SeriesEstimate 全序列估計（スランプライン輸入フロー）。
//
// 先以 Measure 取得數值摘要，再依機台類別組合成偏差分數與文字判斷。
// 空序列或軸範圍不可用時回傳零值 Decision（信心 0）。
//
// spins <= 0 表示未提供實際轉數。
func SeriesEstimate(norm Normalized, cat spec.MachineCategory, spins int) Decision {
	if len(norm.Series) < 2 || norm.AxisRange <= 0 {
		return Decision{DecisionHint: "insufficient graph data"}
	}

	m := Measure(norm.Series)
	tune := spec.TuningFor(cat)

	ddNorm := clamp01(m.DdMax / norm.AxisRange)
	trendNorm := clamp(m.TrendRecent/(trendUnitRatio*norm.AxisRange), -1, 1)
	volNorm := clamp01(m.Volatility / (volUnitRatio * norm.AxisRange))

	var biasZ float64
	var hint string
	oneShot := false

	switch cat {
	case spec.CategoryATypeLight:
		// 一撃タイプ偵測：單步躍升達軸範圍 25% 即視為已出完，
		// 強制強負偏差，其他指標不再參與。
		if maxSingleJump(norm.Series) >= spec.OneShotJumpRatio*norm.AxisRange {
			oneShot = true
			biasZ = oneShotBias
			hint = "one-shot spike detected: payout likely already delivered, unfavorable to continue"
			break
		}
		raw := 0.8 * (1.0*ddNorm + 0.6*m.TimeUnder0 -
			0.5*math.Max(0, m.RecoverRate-0.7) -
			0.7*math.Max(0, -trendNorm))
		biasZ = math.Tanh(raw)
		hint = hintAType(biasZ, m)

	case spec.CategorySmartAT:
		raw := 0.5*ddNorm + 0.4*m.TimeUnder0 -
			0.5*math.Max(0, m.RecoverRate-0.6) -
			0.3*volNorm
		biasZ = math.Tanh(raw)
		hint = hintSmartAT(ddNorm, volNorm, m)

	default: // CategoryAType
		raw := 1.2*ddNorm + 0.8*m.TimeUnder0 -
			0.6*math.Max(0, m.RecoverRate-0.7) -
			0.9*math.Max(0, -trendNorm)
		biasZ = math.Tanh(raw)
		hint = hintAType(biasZ, m)
	}

	conf := 1.0
	if spins > 0 {
		conf *= math.Min(1, float64(spins)/tune.TargetSpins)
	}
	conf = math.Min(conf, tune.ConfCeiling)
	if !oneShot {
		conf *= 1 - volConfAttenuation*volNorm
	}
	conf = clamp01(conf)

	return Decision{
		Bias:         Bias{BiasZ: biasZ, Confidence: conf},
		DecisionHint: hint,
		Metrics:      m,
	}
}

// maxSingleJump 回傳序列中最大的單步上昇量（無上昇時為 0）。
func maxSingleJump(series []float64) float64 {
	maxJump := 0.0
	for i := 1; i < len(series); i++ {
		if d := series[i] - series[i-1]; d > maxJump {
			maxJump = d
		}
	}
	return maxJump
}

func hintAType(biasZ float64, m Metrics) string {
	switch {
	case biasZ >= 0.3 && m.RecoverRate < 0.5:
		return "deep drawdown not yet recovered: graph supports continuing"
	case biasZ >= 0.3:
		return "graph leans favorable, but most of the drawdown is already recovered"
	case biasZ <= -0.3:
		return "recent trend is down with little time below zero: graph leans unfavorable"
	default:
		return "no strong graph signal"
	}
}

func hintSmartAT(ddNorm, volNorm float64, m Metrics) string {
	switch {
	case volNorm > 0.7:
		return "high volatility: graph signal unreliable, rely on counters"
	case ddNorm > 0.5 && m.RecoverRate < 0.3:
		return "deep unrecovered drawdown: proceed with caution"
	case m.RecoverRate > 0.8:
		return "drawdown mostly recovered: neutral"
	default:
		return "no strong graph signal"
	}
}
