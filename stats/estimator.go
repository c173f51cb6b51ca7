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

package stats

import (
	"fmt"
	"sort"

	"gonum.org/v1/gonum/stat/distuv"
)

// ============================================================
// ** 結構宣告 **
// ============================================================

// 引擎收斂評估（以 session 為單位）
type EstimatorSessions struct {
	PostStat   PostStat
	HitStat    HitStat
	AdviceStat AdviceStat
}

// 真實設定後驗敘事
type PostStat struct {
	Median PointStat // 描述典型 session 的後驗
	Perc   PostPerc  // 描述 session 的分布（對應後驗高低）
	Above  PostAbove // 描述後驗跨過固定門檻的 session 比例
}

// 用 session 分位數視角看: 最差10% session 的後驗 最差33% ...
type PostPerc struct {
	PostP10 PointStat
	PostP33 PointStat
	PostP67 PointStat
	PostP90 PointStat
}

// 用門檻視角看 session: 有多少 session 的真實設定後驗跨過 0.5 / 0.7 / 0.9
type PostAbove struct {
	Above50 PointStat
	Above70 PointStat
	Above90 PointStat
}

// 判中敘事
type HitStat struct {
	Top1 PointStat // 真實設定佔第一名
	Top2 PointStat // 真實設定落在前兩名
}

// 建議敘事: 引擎給出的三段式建議各佔多少 session
type AdviceStat struct {
	Favorable   PointStat
	Neutral     PointStat
	Unfavorable PointStat
}

// SessionSample 單一 session 的收斂樣本。
type SessionSample struct {
	TruePost float64 // 真實設定的後驗
	Top1     bool
	Top2     bool
	Advice   string // favorable / neutral / unfavorable
}

// ============================================================
// ** 對外 : 引擎收斂評估 **
// ============================================================

// EstimatorSessionExp 引擎收斂評估
//
// 1. Post 敘事 : 描述真實設定後驗在 session 間的分布
//
// 2. Hit 敘事 : 描述真實設定被判到第一名/前兩名的比例
//
// 3. Advice 敘事 : 描述引擎給出各段建議的比例
func EstimatorSessionExp(samples []SessionSample) *EstimatorSessions {
	// 0. 防禦：空輸入
	n := len(samples)
	out := &EstimatorSessions{}
	if n == 0 {
		return out
	}

	// ------------------------------------------------------------
	// 1) Post 敘事：收集每個 session 的真實設定後驗並做分位/CI
	// ------------------------------------------------------------
	post := make([]float64, n)
	for i, s := range samples {
		post[i] = s.TruePost
	}

	medHat := quantilePoint(post, 0.5)
	medLo, medHi := quantileCI(post, 0.5, 0.95)

	p10Hat := quantilePoint(post, 0.10)
	p10Lo, p10Hi := quantileCI(post, 0.10, 0.95)

	p33Hat := quantilePoint(post, 1.0/3.0)
	p33Lo, p33Hi := quantileCI(post, 1.0/3.0, 0.95)

	p67Hat := quantilePoint(post, 2.0/3.0)
	p67Lo, p67Hi := quantileCI(post, 2.0/3.0, 0.95)

	p90Hat := quantilePoint(post, 0.90)
	p90Lo, p90Hi := quantileCI(post, 0.90, 0.95)

	var a50, a70, a90 int
	for _, v := range post {
		if v >= 0.5 {
			a50++
		}
		if v >= 0.7 {
			a70++
		}
		if v >= 0.9 {
			a90++
		}
	}

	out.PostStat = PostStat{
		Median: PointStat{Hat: medHat, CI: CI{Lo: medLo, Hi: medHi}},
		Perc: PostPerc{
			PostP10: PointStat{Hat: p10Hat, CI: CI{Lo: p10Lo, Hi: p10Hi}},
			PostP33: PointStat{Hat: p33Hat, CI: CI{Lo: p33Lo, Hi: p33Hi}},
			PostP67: PointStat{Hat: p67Hat, CI: CI{Lo: p67Lo, Hi: p67Hi}},
			PostP90: PointStat{Hat: p90Hat, CI: CI{Lo: p90Lo, Hi: p90Hi}},
		},
		Above: PostAbove{
			Above50: proportionPoint(a50, n),
			Above70: proportionPoint(a70, n),
			Above90: proportionPoint(a90, n),
		},
	}

	// ------------------------------------------------------------
	// 2) Hit 敘事：Top1 / Top2 比例 + CP 95% CI
	// ------------------------------------------------------------
	var t1, t2 int
	for _, s := range samples {
		if s.Top1 {
			t1++
		}
		if s.Top2 {
			t2++
		}
	}
	out.HitStat = HitStat{
		Top1: proportionPoint(t1, n),
		Top2: proportionPoint(t2, n),
	}

	// ------------------------------------------------------------
	// 3) Advice 敘事：三段式建議比例 + CP 95% CI
	// ------------------------------------------------------------
	var fav, neu, unf int
	for _, s := range samples {
		switch s.Advice {
		case "favorable":
			fav++
		case "unfavorable":
			unf++
		default:
			neu++
		}
	}
	out.AdviceStat = AdviceStat{
		Favorable:   proportionPoint(fav, n),
		Neutral:     proportionPoint(neu, n),
		Unfavorable: proportionPoint(unf, n),
	}

	return out
}

// ============================================================
// ** 內部統計函數 **
// ============================================================

// Clopper–Pearson exact CI for binomial proportion (k successes out of n)
func proportionCICP(k int, n int, confidence float64) (pHat float64, ci CI) {
	if n == 0 {
		return 0, CI{0, 1}
	}
	alpha := 1 - confidence
	pHat = float64(k) / float64(n)

	// Beta PPF 映射，處理邊界
	if k == 0 {
		ci.Lo = 0
	} else {
		b := distuv.Beta{Alpha: float64(k), Beta: float64(n - k + 1)}
		ci.Lo = b.Quantile(alpha / 2)
	}
	if k == n {
		ci.Hi = 1
	} else {
		b := distuv.Beta{Alpha: float64(k + 1), Beta: float64(n - k)}
		ci.Hi = b.Quantile(1 - alpha/2)
	}
	return
}

func proportionPoint(k int, n int) PointStat {
	hat, ci := proportionCICP(k, n, 0.95)
	return PointStat{Hat: hat, CI: ci}
}

// 想估「第 q 分位」的上下界。做法：把 order statistic 的秩視為二項→Beta 反推 p 範圍，再把 p 轉回樣本索引。
// 回傳 (loValue, hiValue)
func quantileCI(data []float64, q, confidence float64) (float64, float64) {
	n := len(data)
	if n == 0 {
		return 0, 0
	}
	cp := make([]float64, n)
	copy(cp, data)
	sort.Float64s(cp)

	alpha := 1 - confidence
	k := int(q * float64(n))
	if k < 1 {
		k = 1
	} else if k > n-1 {
		k = n - 1
	}

	// 以 CP 思想反推 p 範圍
	bLo := distuv.Beta{Alpha: float64(k), Beta: float64(n - k + 1)}
	bHi := distuv.Beta{Alpha: float64(k + 1), Beta: float64(n - k)}
	pLo := bLo.Quantile(alpha / 2)
	pHi := bHi.Quantile(1 - alpha/2)

	li := int(pLo * float64(n))
	ui := int(pHi * float64(n))
	if ui > 0 {
		ui -= 1
	}
	if li < 0 {
		li = 0
	}
	if li > n-1 {
		li = n - 1
	}
	if ui < 0 {
		ui = 0
	}
	if ui > n-1 {
		ui = n - 1
	}
	return cp[li], cp[ui]
}

// quantilePoint returns the empirical quantile point estimate at q.
func quantilePoint(data []float64, q float64) float64 {
	n := len(data)
	if n == 0 {
		return 0
	}
	cp := make([]float64, n)
	copy(cp, data)
	sort.Float64s(cp)
	// 最近秩法
	idx := int(q * float64(n))
	if idx < 0 {
		idx = 0
	}
	if idx > n-1 {
		idx = n - 1
	}
	return cp[idx]
}

// ============================================================
// ** 輸出函數 **
// ============================================================

func (est *EstimatorSessions) Out() {
	// 1) True-setting posterior across sessions
	fmt.Println("=== True Posterior (per session) ===")
	postKeys := []string{
		"Median",
		"P10",
		"P33",
		"P67",
		"P90",
		">=0.5 (sessions)",
		">=0.7 (sessions)",
		">=0.9 (sessions)",
	}
	postMsg := map[string]string{
		"Median":           fmtHatCIpct(est.PostStat.Median),
		"P10":              fmtHatCIpct(est.PostStat.Perc.PostP10),
		"P33":              fmtHatCIpct(est.PostStat.Perc.PostP33),
		"P67":              fmtHatCIpct(est.PostStat.Perc.PostP67),
		"P90":              fmtHatCIpct(est.PostStat.Perc.PostP90),
		">=0.5 (sessions)": fmtHatCIpct(est.PostStat.Above.Above50),
		">=0.7 (sessions)": fmtHatCIpct(est.PostStat.Above.Above70),
		">=0.9 (sessions)": fmtHatCIpct(est.PostStat.Above.Above90),
	}
	printTable("True Posterior (per session)", postKeys, postMsg)

	// 2) Hit rates
	fmt.Println("\n=== Hit Rates ===")
	hitKeys := []string{"Top1", "Top2"}
	hitMsg := map[string]string{
		"Top1": fmtHatCIpct(est.HitStat.Top1),
		"Top2": fmtHatCIpct(est.HitStat.Top2),
	}
	printTable("Hit Rates", hitKeys, hitMsg)

	// 3) Advice distribution
	fmt.Println("\n=== Advice ===")
	advKeys := []string{"Favorable", "Neutral", "Unfavorable"}
	advMsg := map[string]string{
		"Favorable":   fmtHatCIpct(est.AdviceStat.Favorable),
		"Neutral":     fmtHatCIpct(est.AdviceStat.Neutral),
		"Unfavorable": fmtHatCIpct(est.AdviceStat.Unfavorable),
	}
	printTable("Advice", advKeys, advMsg)
}

func printTable(title string, keys []string, msg map[string]string) {
	fmt.Println(title)
	maxKeyLen := 0
	for _, k := range keys {
		if len(k) > maxKeyLen {
			maxKeyLen = len(k)
		}
	}
	for _, k := range keys {
		fmt.Printf("  %-*s : %s\n", maxKeyLen, k, msg[k])
	}
}

func fmtPct01(x float64) string {
	return fmt.Sprintf("%.2f%%", x*100)
}

func fmtHatCIpct(ps PointStat) string {
	return fmt.Sprintf("%s [%s, %s]", fmtPct01(ps.Hat), fmtPct01(ps.CI.Lo), fmtPct01(ps.CI.Hi))
}
