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

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/zintix-labs/judgelab/errs"
)

// MetricID 輔助計數訊號的識別碼（例如 "suika"、"weak_cherry"）。
type MetricID string

// SettingOdds 一個設定段的理論值表。
//
// Big / Reg / Extra / Extras 皆為「每幾 G 觸發一次」的分母（1/機率）。
// BinomialRates / SuikaCzRate / UraAtRate 則為直接機率（試行數不是總 G 數的訊號）。
// Total 僅供顯示/對照用，不參與似然計算。
type SettingOdds struct {
	S      string  `yaml:"s"      json:"s"` // "1".."6"，或頂階未標示段的哨兵（例如 "L"）
	Big    float64 `yaml:"big"    json:"big"`
	Reg    float64 `yaml:"reg"    json:"reg"`
	Total  float64 `yaml:"total"  json:"total"`
	Payout float64 `yaml:"payout" json:"payout"` // 出玉率(%)

	Extra  float64              `yaml:"extra,omitempty"  json:"extra,omitempty"`
	Extras map[MetricID]float64 `yaml:"extras,omitempty" json:"extras,omitempty"`

	BinomialRates map[MetricID]float64 `yaml:"binomial_rates,omitempty" json:"binomial_rates,omitempty"`
	SuikaCzRate   float64              `yaml:"suika_cz_rate,omitempty"  json:"suika_cz_rate,omitempty"`
	UraAtRate     float64              `yaml:"ura_at_rate,omitempty"    json:"ura_at_rate,omitempty"`
}

func (so *SettingOdds) init() error {
	return so.valid()
}

func (so *SettingOdds) valid() error {
	if strings.TrimSpace(so.S) == "" {
		return errs.NewFatal("setting id required")
	}
	// 分母必須 > 0（倒數即機率，需落在 (0,1]）
	if so.Big <= 0 || so.Reg <= 0 {
		return errs.NewFatal(fmt.Sprintf("setting %q: big/reg must be > 0", so.S))
	}
	if so.Big < 1 || so.Reg < 1 {
		return errs.NewFatal(fmt.Sprintf("setting %q: big/reg denominator must be >= 1", so.S))
	}
	if so.Extra < 0 || (so.Extra > 0 && so.Extra < 1) {
		return errs.NewFatal(fmt.Sprintf("setting %q: extra denominator must be >= 1", so.S))
	}
	for id, d := range so.Extras {
		if d < 1 {
			return errs.NewFatal(fmt.Sprintf("setting %q: extras[%s] denominator must be >= 1", so.S, id))
		}
	}
	for id, p := range so.BinomialRates {
		if p <= 0 || p > 1 {
			return errs.NewFatal(fmt.Sprintf("setting %q: binomial_rates[%s] must be in (0,1]", so.S, id))
		}
	}
	if so.SuikaCzRate < 0 || so.SuikaCzRate > 1 {
		return errs.NewFatal(fmt.Sprintf("setting %q: suika_cz_rate must be in [0,1]", so.S))
	}
	if so.UraAtRate < 0 || so.UraAtRate > 1 {
		return errs.NewFatal(fmt.Sprintf("setting %q: ura_at_rate must be in [0,1]", so.S))
	}
	if so.Payout <= 0 {
		return errs.NewFatal(fmt.Sprintf("setting %q: payout must be > 0", so.S))
	}
	return nil
}

// SettingNum 解析數值型設定段識別碼。
// 哨兵（非數值）識別碼回傳 ok=false。
func SettingNum(s string) (int, bool) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < 1 {
		return 0, false
	}
	return n, true
}
