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

package dto

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/zintix-labs/judgelab/errs"
	"github.com/zintix-labs/judgelab/judge"
	"github.com/zintix-labs/judgelab/slump"
	"github.com/zintix-labs/judgelab/spec"
)

// 防止 body 過大（預設 1MiB）
const maxBody = 1 << 20

func decodeStrict(r *http.Request, dst any) error {
	body := io.LimitReader(r.Body, maxBody)
	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("invalid json: %w", err)
	}
	return nil
}

// JudgeRequest 設定判別請求。
//
// 計數欄位沿用引擎的指標語意：缺省（null）代表「沒紀錄」，0 代表「紀錄了 0 次」。
type JudgeRequest struct {
	MachineName string            `json:"machine,omitempty"` // 機種名稱（與 mid 擇一）
	MachineId   spec.MID          `json:"mid,omitempty"`     // 機種編號
	Games       int               `json:"games"`             // 總轉數
	Big         *int              `json:"big,omitempty"`
	Reg         *int              `json:"reg,omitempty"`
	Extra       *int              `json:"extra,omitempty"` // 共用小役計數（單一路）
	Extras      map[string]int    `json:"extras,omitempty"`
	BinTrials   map[string]int    `json:"bin_trials,omitempty"`
	BinHits     map[string]int    `json:"bin_hits,omitempty"`
	SuikaTrials *int              `json:"suika_trials,omitempty"`
	SuikaCzHits *int              `json:"suika_cz_hits,omitempty"`
	UraAtTrials *int              `json:"ura_at_trials,omitempty"`
	UraAtHits   *int              `json:"ura_at_hits,omitempty"`
	Hints       map[string]int    `json:"hints,omitempty"` // hintItemID -> 次數
	Bias        *BiasDTO          `json:"bias,omitempty"`  // 圖形偏差估計結果
	Allow       []string          `json:"allow,omitempty"` // 店公告白名單
	TopN        int               `json:"top_n,omitempty"`
	FutureGames int               `json:"future_games,omitempty"` // 續行建議用的未來轉數
}

// DecodeJudgeRequest 會把 HTTP 請求解碼成 JudgeRequest。
//
// 支援：
//   - GET：從 query string 讀取基本計數（machine/mid/games/big/reg/extra/future_games）。
//     注意：GET 建議僅用於簡單測試；示唆/偏差/白名單等巢狀參數請使用 POST。
//   - POST：從 JSON body 反序列化。
//
// 注意：
//   - 這裡只負責「解碼（decode）」與基本型別轉換，不做任何合法性校驗；
//     合法性（機種是否存在、計數是否超過轉數）由上層（Analyzer）決定。
//   - POST 會對 body 做大小限制（預設 1MiB）並開啟 DisallowUnknownFields()，
//     對未知欄位採用嚴格拒絕，以避免靜默丟資料。
func DecodeJudgeRequest(r *http.Request) (*JudgeRequest, error) {
	if r == nil {
		return nil, errs.NewWarn("nil request")
	}

	req := new(JudgeRequest)

	switch r.Method {
	case http.MethodGet:
		q := r.URL.Query()
		req.MachineName = q.Get("machine")

		if s := q.Get("mid"); s != "" {
			u, err := strconv.ParseUint(s, 10, 0)
			if err != nil {
				return nil, errs.NewWarn(fmt.Sprintf("invalid mid: %v", err))
			}
			req.MachineId = spec.MID(u)
		}

		if s := q.Get("games"); s != "" {
			v, err := strconv.Atoi(s)
			if err != nil {
				return nil, errs.NewWarn(fmt.Sprintf("invalid games: %v", err))
			}
			req.Games = v
		}

		for _, f := range []struct {
			key string
			dst **int
		}{
			{"big", &req.Big},
			{"reg", &req.Reg},
			{"extra", &req.Extra},
		} {
			if s := q.Get(f.key); s != "" {
				v, err := strconv.Atoi(s)
				if err != nil {
					return nil, errs.NewWarn(fmt.Sprintf("invalid %s: %v", f.key, err))
				}
				*f.dst = &v
			}
		}

		if s := q.Get("future_games"); s != "" {
			v, err := strconv.Atoi(s)
			if err != nil {
				return nil, errs.NewWarn(fmt.Sprintf("invalid future_games: %v", err))
			}
			req.FutureGames = v
		}

		return req, nil

	case http.MethodPost:
		if err := decodeStrict(r, req); err != nil {
			return nil, err
		}
		return req, nil

	default:
		return nil, fmt.Errorf("method not allowed")
	}
}

// Input 轉換成引擎輸入。
func (jr *JudgeRequest) Input() judge.Input {
	in := judge.Input{
		Games:       jr.Games,
		BigCount:    jr.Big,
		RegCount:    jr.Reg,
		ExtraCount:  jr.Extra,
		SuikaTrials: jr.SuikaTrials,
		SuikaCzHits: jr.SuikaCzHits,
		UraAtTrials: jr.UraAtTrials,
		UraAtHits:   jr.UraAtHits,
	}
	if len(jr.Extras) > 0 {
		in.ExtraCounts = make(map[spec.MetricID]int, len(jr.Extras))
		for k, v := range jr.Extras {
			in.ExtraCounts[spec.MetricID(k)] = v
		}
	}
	if len(jr.BinTrials) > 0 {
		in.BinomialTrials = make(map[spec.MetricID]int, len(jr.BinTrials))
		for k, v := range jr.BinTrials {
			in.BinomialTrials[spec.MetricID(k)] = v
		}
	}
	if len(jr.BinHits) > 0 {
		in.BinomialHits = make(map[spec.MetricID]int, len(jr.BinHits))
		for k, v := range jr.BinHits {
			in.BinomialHits[spec.MetricID(k)] = v
		}
	}
	return in
}

// HintCounts 轉換成引擎的示唆計數。
func (jr *JudgeRequest) HintCounts() judge.HintCounts {
	if len(jr.Hints) == 0 {
		return nil
	}
	return judge.HintCounts(jr.Hints)
}

// SlumpBias 轉換成引擎的偏差輸入。
func (jr *JudgeRequest) SlumpBias() *slump.Bias {
	if jr.Bias == nil {
		return nil
	}
	return &slump.Bias{BiasZ: jr.Bias.BiasZ, Confidence: jr.Bias.Confidence}
}

// TapRequest 兩點式圖形估計請求（POST only：巢狀座標不走 query string）。
type TapRequest struct {
	MachineName string   `json:"machine,omitempty"`
	MachineId   spec.MID `json:"mid,omitempty"`
	Start       PointDTO `json:"start"`
	End         PointDTO `json:"end"`
	AxisTop     CalibDTO `json:"axis_top"`
	AxisBottom  CalibDTO `json:"axis_bottom"`
	Spins       int      `json:"spins,omitempty"` // 實際轉數；0 = 未提供
}

func DecodeTapRequest(r *http.Request) (*TapRequest, error) {
	if r == nil {
		return nil, errs.NewWarn("nil request")
	}
	if r.Method != http.MethodPost {
		return nil, fmt.Errorf("method not allowed")
	}
	req := new(TapRequest)
	if err := decodeStrict(r, req); err != nil {
		return nil, err
	}
	return req, nil
}

// SlumpRequest 全折線圖形估計請求（POST only）。
type SlumpRequest struct {
	MachineName string     `json:"machine,omitempty"`
	MachineId   spec.MID   `json:"mid,omitempty"`
	Points      []PointDTO `json:"points"`
	AxisTop     CalibDTO   `json:"axis_top"`
	AxisBottom  CalibDTO   `json:"axis_bottom"`
	StartX      float64    `json:"start_x"`
	EndX        float64    `json:"end_x"`
	Spins       int        `json:"spins,omitempty"`
}

func DecodeSlumpRequest(r *http.Request) (*SlumpRequest, error) {
	if r == nil {
		return nil, errs.NewWarn("nil request")
	}
	if r.Method != http.MethodPost {
		return nil, fmt.Errorf("method not allowed")
	}
	req := new(SlumpRequest)
	if err := decodeStrict(r, req); err != nil {
		return nil, err
	}
	return req, nil
}

// PredictRequest 期待値預測請求（POST only）。
//
// 後驗來源二擇一：
//   - SnapB64U：/v1/judge 回的快照 token（推薦，保證與判別時同一組後驗）。
//   - 直接帶計數（games/big/reg/...），引擎重新算一次後驗。
type PredictRequest struct {
	MachineName string        `json:"machine,omitempty"`
	MachineId   spec.MID      `json:"mid,omitempty"`
	Games       int           `json:"games"`          // 未來轉數
	Rate        float64       `json:"rate,omitempty"` // 枚數換算比率；0 = 等價
	SnapB64U    string        `json:"snap_b64u,omitempty"`
	Counts      *JudgeRequest `json:"counts,omitempty"`
}

func DecodePredictRequest(r *http.Request) (*PredictRequest, error) {
	if r == nil {
		return nil, errs.NewWarn("nil request")
	}
	if r.Method != http.MethodPost {
		return nil, fmt.Errorf("method not allowed")
	}
	req := new(PredictRequest)
	if err := decodeStrict(r, req); err != nil {
		return nil, err
	}
	return req, nil
}

// SimRequest 收斂模擬請求。
type SimRequest struct {
	MachineName string   `json:"machine,omitempty"`
	MachineId   spec.MID `json:"mid,omitempty"`
	Setting     string   `json:"setting"`
	Games       int      `json:"games"`
	Sessions    int      `json:"sessions"`
	Workers     int      `json:"workers,omitempty"`
	Seed        uint64   `json:"seed,omitempty"`
}

func DecodeSimRequest(r *http.Request) (*SimRequest, error) {
	if r == nil {
		return nil, errs.NewWarn("nil request")
	}

	req := new(SimRequest)

	switch r.Method {
	case http.MethodGet:
		q := r.URL.Query()
		req.MachineName = q.Get("machine")
		req.Setting = q.Get("setting")

		if s := q.Get("mid"); s != "" {
			u, err := strconv.ParseUint(s, 10, 0)
			if err != nil {
				return nil, errs.NewWarn(fmt.Sprintf("invalid mid: %v", err))
			}
			req.MachineId = spec.MID(u)
		}
		for _, f := range []struct {
			key string
			dst *int
		}{
			{"games", &req.Games},
			{"sessions", &req.Sessions},
			{"workers", &req.Workers},
		} {
			if s := q.Get(f.key); s != "" {
				v, err := strconv.Atoi(s)
				if err != nil {
					return nil, errs.NewWarn(fmt.Sprintf("invalid %s: %v", f.key, err))
				}
				*f.dst = v
			}
		}
		if s := q.Get("seed"); s != "" {
			v, err := strconv.ParseUint(s, 10, 64)
			if err != nil {
				return nil, errs.NewWarn(fmt.Sprintf("invalid seed: %v", err))
			}
			req.Seed = v
		}
		return req, nil

	case http.MethodPost:
		if err := decodeStrict(r, req); err != nil {
			return nil, err
		}
		return req, nil

	default:
		return nil, fmt.Errorf("method not allowed")
	}
}
