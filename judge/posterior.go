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
	"sort"

	"github.com/zintix-labs/judgelab/spec"
	"gonum.org/v1/gonum/stat/combin"
	"gonum.org/v1/gonum/stat/distuv"
)

// SettingPosterior 引擎對單一設定段的輸出。
//
// LogLikelihood 為各證據來源 log 似然的總和；被硬制約排除的設定為 -Inf。
// Posterior 為正規化後的機率；全設定皆不可能（似然皆非有限）時整組為 0，
// 代表證據矛盾。
type SettingPosterior struct {
	S             string  `json:"s"`
	LogLikelihood float64 `json:"log_likelihood"`
	Posterior     float64 `json:"posterior"`
}

// Posterior 計算 P(setting | 觀測計數)。
//
// 均勻先驗；各證據來源視為條件獨立（原始實作的已知簡化，刻意保留），
// 在 log 空間加總後以 log-sum-exp 正規化。
//
// 輸入不合法（fail-closed）或 odds 為空時回傳 nil。
func Posterior(odds []spec.SettingOdds, in Input) []SettingPosterior {
	return PosteriorAllowed(odds, in, nil)
}

// PosteriorAllowed 與 Posterior 相同，但允許指定白名單：
// 不在 allow 內的設定段強制 logLikelihood = -Inf（硬排除），
// 仍保留在輸出列中（posterior 0），讓下游看得到完整設定集。
// allow 為 nil 表示不啟用白名單。
func PosteriorAllowed(odds []spec.SettingOdds, in Input, allow map[string]struct{}) []SettingPosterior {
	if !in.valid() || len(odds) == 0 {
		return nil
	}

	out := make([]SettingPosterior, len(odds))
	for i := range odds {
		so := &odds[i]
		ll := 0.0
		if allow != nil {
			if _, ok := allow[so.S]; !ok {
				ll = math.Inf(-1)
			}
		}
		if !math.IsInf(ll, -1) {
			ll = logLikelihood(so, &in)
		}
		out[i] = SettingPosterior{S: so.S, LogLikelihood: ll}
	}

	normalizePosterior(out)
	return out
}

// logLikelihood 合成單一設定段的各證據來源 log 似然。
// 只計入實際有提供的來源；設定段缺對應理論值的來源逐項跳過。
func logLikelihood(so *spec.SettingOdds, in *Input) float64 {
	ll := 0.0
	n := in.Games

	// BIG/REG：兩者都有 → 三元多項（BIG / REG / どちらでもない）。
	// 只有一邊 → 對總 G 數的二項。
	switch {
	case in.BigCount != nil && in.RegCount != nil:
		ll += multinomialLogProb(n, *in.BigCount, *in.RegCount, 1/so.Big, 1/so.Reg)
	case in.BigCount != nil:
		ll += binomLogProb(n, *in.BigCount, 1/so.Big)
	case in.RegCount != nil:
		ll += binomLogProb(n, *in.RegCount, 1/so.Reg)
	}

	// 主要輔助計數（例如弱チェリー等單一代表役）。
	if in.ExtraCount != nil && so.Extra > 0 {
		ll += binomLogProb(n, *in.ExtraCount, 1/so.Extra)
	}

	// 具名輔助計數群：逐 metric 比對設定段的分母，缺者跳過。
	for _, id := range sortedMetricIDs(in.ExtraCounts) {
		if d, ok := so.Extras[id]; ok && d > 0 {
			ll += binomLogProb(n, in.ExtraCounts[id], 1/d)
		}
	}

	// 試行數非總 G 數的二項訊號。
	for _, id := range sortedMetricIDs(in.BinomialHits) {
		trials, okT := in.BinomialTrials[id]
		p, okP := so.BinomialRates[id]
		if okT && okP {
			ll += binomLogProb(trials, in.BinomialHits[id], p)
		}
	}

	// 兩個具名輔助訊號。
	if in.SuikaTrials != nil && in.SuikaCzHits != nil && so.SuikaCzRate > 0 {
		ll += binomLogProb(*in.SuikaTrials, *in.SuikaCzHits, so.SuikaCzRate)
	}
	if in.UraAtTrials != nil && in.UraAtHits != nil && so.UraAtRate > 0 {
		ll += binomLogProb(*in.UraAtTrials, *in.UraAtHits, so.UraAtRate)
	}

	return ll
}

// binomLogProb 回傳 ln P(K = k)，K ~ Binomial(n, p)。
// n == 0 時無證據，回 0。p 的兩端另行處理，避免 0*ln(0) 產生 NaN。
func binomLogProb(n, k int, p float64) float64 {
	if n <= 0 {
		return 0
	}
	if p >= 1 {
		if k == n {
			return 0
		}
		return math.Inf(-1)
	}
	if p <= 0 {
		if k == 0 {
			return 0
		}
		return math.Inf(-1)
	}
	b := distuv.Binomial{N: float64(n), P: p}
	return b.LogProb(float64(k))
}

// multinomialLogProb 三元多項（BIG / REG / 其他）的 log 機率。
// pBig + pReg >= 1 的設定段在觀測到未中 G 時不可能，直接回 -Inf。
func multinomialLogProb(n, kBig, kReg int, pBig, pReg float64) float64 {
	kNone := n - kBig - kReg
	pNone := 1 - pBig - pReg
	if kNone > 0 && pNone <= 0 {
		return math.Inf(-1)
	}

	ll := combin.LogGeneralizedBinomial(float64(n), float64(kBig)) +
		combin.LogGeneralizedBinomial(float64(n-kBig), float64(kReg))
	ll += logPow(pBig, kBig)
	ll += logPow(pReg, kReg)
	ll += logPow(pNone, kNone)
	return ll
}

// logPow 回傳 k*ln(p)，約定 0*ln(0) = 0（未觀測到的事件不貢獻）。
func logPow(p float64, k int) float64 {
	if k == 0 {
		return 0
	}
	if p <= 0 {
		return math.Inf(-1)
	}
	return float64(k) * math.Log(p)
}

// normalizePosterior 以 log-sum-exp 正規化，in-place。
//
// 先減去最大 log 似然再取 exp，避免 underflow。最大值非有限
// （全設定被排除/不可能）時不做減法，以免 -Inf - (-Inf) 產生 NaN，
// 整組 posterior 直接為 0。
func normalizePosterior(ps []SettingPosterior) {
	maxLL := math.Inf(-1)
	for i := range ps {
		if ps[i].LogLikelihood > maxLL {
			maxLL = ps[i].LogLikelihood
		}
	}
	if math.IsInf(maxLL, 0) || math.IsNaN(maxLL) {
		for i := range ps {
			ps[i].Posterior = 0
		}
		return
	}

	sum := 0.0
	for i := range ps {
		w := math.Exp(ps[i].LogLikelihood - maxLL)
		ps[i].Posterior = w
		sum += w
	}
	if sum <= 0 || math.IsInf(sum, 0) || math.IsNaN(sum) {
		for i := range ps {
			ps[i].Posterior = 0
		}
		return
	}
	for i := range ps {
		ps[i].Posterior /= sum
	}
}

// TopN 依 posterior 由大到小取前 n 名（stable sort，平手保持輸入順序）。
// n <= 0 回傳空 slice；不修改輸入。
func TopN(ps []SettingPosterior, n int) []SettingPosterior {
	if n <= 0 || len(ps) == 0 {
		return nil
	}
	cp := append([]SettingPosterior(nil), ps...)
	sort.SliceStable(cp, func(i, j int) bool { return cp[i].Posterior > cp[j].Posterior })
	if n > len(cp) {
		n = len(cp)
	}
	return cp[:n]
}

// sortedMetricIDs 回傳 map 的 key 排序結果。
// 似然為浮點逐項累加，固定順序確保同輸入位元級同輸出（冪等合約）。
func sortedMetricIDs(m map[spec.MetricID]int) []spec.MetricID {
	if len(m) == 0 {
		return nil
	}
	ids := make([]spec.MetricID, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
