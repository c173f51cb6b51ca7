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
	"math"

	"github.com/zintix-labs/judgelab/spec"
)

// ApplyBias 把圖形偏差估計（biasZ, confidence）輕度疊加到設定後驗上。
//
// 強度 = confidence * biasZ * BiasK * 類別阻尼，夾在 ±BiasStrengthClamp；
// 也就是圖形訊號最多只能把分布推動一小步，計數證據永遠是主角。
//
// 強度為 0 時直接回傳輸入 slice，不做任何浮點運算；
// 因此「零信心補正」與「不補正」逐 bit 相同。
//
// 偏差只對數字設定段有定義：依設定高低線性映射到 [-1, 1]，
// 正偏差往高設定推，負偏差往低設定推。後驗為 0 的設定段維持 0
// （硬排除不因圖形訊號復活）。可比較的數字設定不足兩段時不動作。
func ApplyBias(ps []SettingPosterior, biasZ, confidence float64, cat spec.MachineCategory) []SettingPosterior {
	if len(ps) == 0 {
		return ps
	}
	strength := confidence * biasZ * spec.BiasK * spec.TuningFor(cat).BiasTypeFactor
	if math.IsNaN(strength) {
		return ps
	}
	if strength > spec.BiasStrengthClamp {
		strength = spec.BiasStrengthClamp
	} else if strength < -spec.BiasStrengthClamp {
		strength = -spec.BiasStrengthClamp
	}
	if strength == 0 {
		return ps
	}

	// 只看後驗 > 0 的數字設定段。
	minNum, maxNum := 0, 0
	live := 0
	for i := range ps {
		num, ok := spec.SettingNum(ps[i].S)
		if !ok || ps[i].Posterior <= 0 {
			continue
		}
		if live == 0 || num < minNum {
			minNum = num
		}
		if live == 0 || num > maxNum {
			maxNum = num
		}
		live++
	}
	if live < 2 || maxNum == minNum {
		return ps
	}
	span := float64(maxNum - minNum)

	out := make([]SettingPosterior, len(ps))
	copy(out, ps)
	sum := 0.0
	for i := range out {
		num, ok := spec.SettingNum(out[i].S)
		if ok && out[i].Posterior > 0 {
			// highness -1（最低設定）～ +1（最高設定）
			center := 2*float64(num-minNum)/span - 1
			delta := strength * center
			out[i].LogLikelihood += delta
			out[i].Posterior *= math.Exp(delta)
		}
		sum += out[i].Posterior
	}
	if sum <= 0 || math.IsNaN(sum) || math.IsInf(sum, 0) {
		return ps
	}
	for i := range out {
		out[i].Posterior /= sum
	}
	return out
}
