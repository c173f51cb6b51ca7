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
	"sort"

	"github.com/zintix-labs/judgelab/spec"
)

// AdviceLevel 三段式續行建議。
type AdviceLevel string

const (
	AdviceFavorable   AdviceLevel = "favorable"
	AdviceNeutral     AdviceLevel = "neutral"
	AdviceUnfavorable AdviceLevel = "unfavorable"
)

// Advice 續行建議與其依據數值。
type Advice struct {
	Level         AdviceLevel `json:"level"`
	Reason        string      `json:"reason"`
	ExpectedCoins float64     `json:"expected_coins"`
	LossProb      float64     `json:"loss_prob"`
}

// Recommend 由設定後驗產生三段式續行建議。
//
// 先看高設定側：後驗由高到低取最高兩段設定，質量合計達
// TopMassThreshold 直接判有利。否則以 futureGames 換算期待枚數與
// 虧損機率（機械割 < 100% 的設定段質量合計），按固定門檻分級。
func Recommend(ps []SettingPosterior, odds []spec.SettingOdds, futureGames int) Advice {
	if len(ps) == 0 || len(odds) == 0 {
		return Advice{Level: AdviceNeutral, Reason: "no posterior available"}
	}
	if futureGames <= 0 {
		futureGames = 1000
	}

	payout := payoutByS(odds)
	ev, loss := expectCoins(ps, payout, futureGames)

	if topSettingsMass(ps, 2) >= spec.TopMassThreshold {
		return Advice{
			Level:         AdviceFavorable,
			Reason:        "posterior mass concentrated on the highest settings",
			ExpectedCoins: ev,
			LossProb:      loss,
		}
	}
	switch {
	case ev >= spec.FavorableEV && loss <= spec.FavorableLossProb:
		return Advice{
			Level:         AdviceFavorable,
			Reason:        "positive expected coins with acceptable loss probability",
			ExpectedCoins: ev,
			LossProb:      loss,
		}
	case ev <= spec.UnfavorableEV || loss >= spec.UnfavorableLossProb:
		return Advice{
			Level:         AdviceUnfavorable,
			Reason:        "negative expected coins or high loss probability",
			ExpectedCoins: ev,
			LossProb:      loss,
		}
	}
	return Advice{
		Level:         AdviceNeutral,
		Reason:        "insufficient signal",
		ExpectedCoins: ev,
		LossProb:      loss,
	}
}

// SettingForecast 單一設定段的期待値明細。
type SettingForecast struct {
	S             string  `json:"s"`
	Posterior     float64 `json:"posterior"`
	ExpectedCoins float64 `json:"expected_coins"`
}

// Forecast 未來 Games 轉的期待値預測。
// Rate 為枚數換算金額的比率（等價交換 = 1.0）。
type Forecast struct {
	Games         int               `json:"games"`
	ExpectedCoins float64           `json:"expected_coins"`
	ExpectedYen   float64           `json:"expected_yen"`
	Rate          float64           `json:"rate"`
	Top           []SettingForecast `json:"top"`
}

// Predict 計算未來 games 轉的後驗加權期待枚數，
// 並附上後驗前三名設定段的明細。rate <= 0 視為等價 1.0。
func Predict(ps []SettingPosterior, odds []spec.SettingOdds, games int, rate float64) Forecast {
	if rate <= 0 {
		rate = 1.0
	}
	f := Forecast{Games: games, Rate: rate}
	if len(ps) == 0 || len(odds) == 0 || games <= 0 {
		return f
	}

	payout := payoutByS(odds)
	ev, _ := expectCoins(ps, payout, games)
	f.ExpectedCoins = ev
	f.ExpectedYen = ev * rate

	for _, sp := range TopN(ps, 3) {
		po, ok := payout[sp.S]
		if !ok {
			continue
		}
		f.Top = append(f.Top, SettingForecast{
			S:             sp.S,
			Posterior:     sp.Posterior,
			ExpectedCoins: settingCoins(po, games),
		})
	}
	return f
}

func payoutByS(odds []spec.SettingOdds) map[string]float64 {
	m := make(map[string]float64, len(odds))
	for i := range odds {
		m[odds[i].S] = odds[i].Payout
	}
	return m
}

// settingCoins 單一設定段在 games 轉內的期待淨枚數。
func settingCoins(payout float64, games int) float64 {
	return float64(games) * spec.CoinInPerGame * (payout - 100) / 100
}

// expectCoins 後驗加權期待枚數與虧損機率。
// 依設定段 ID 排序後累加，同一輸入必得同一輸出。
func expectCoins(ps []SettingPosterior, payout map[string]float64, games int) (ev, loss float64) {
	ordered := make([]SettingPosterior, len(ps))
	copy(ordered, ps)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].S < ordered[j].S })

	for _, sp := range ordered {
		po, ok := payout[sp.S]
		if !ok {
			continue
		}
		ev += sp.Posterior * settingCoins(po, games)
		if po < 100 {
			loss += sp.Posterior
		}
	}
	return ev, loss
}

// topSettingsMass 設定段數字由高到低取前 n 段的後驗質量合計。
// 非數字設定段視為最高階層（通常是隱藏的最上位設定）。
func topSettingsMass(ps []SettingPosterior, n int) float64 {
	ordered := make([]SettingPosterior, len(ps))
	copy(ordered, ps)
	sort.SliceStable(ordered, func(i, j int) bool {
		ni, iok := spec.SettingNum(ordered[i].S)
		nj, jok := spec.SettingNum(ordered[j].S)
		if iok != jok {
			return !iok // 非數字（隱藏上位）排最前
		}
		return ni > nj
	})

	mass := 0.0
	for i := 0; i < n && i < len(ordered); i++ {
		mass += ordered[i].Posterior
	}
	return mass
}
