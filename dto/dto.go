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

	"github.com/zintix-labs/judgelab/corefmt"
	"github.com/zintix-labs/judgelab/errs"
	"github.com/zintix-labs/judgelab/judge"
	"github.com/zintix-labs/judgelab/slump"
	"github.com/zintix-labs/judgelab/spec"
	"github.com/zintix-labs/judgelab/stats"
)

// PointDTO 螢幕座標（像素）。y 軸向下為正。
type PointDTO struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// CalibDTO 軸校正點：某個 y 像素對應的枚數刻度。
type CalibDTO struct {
	Y     float64 `json:"y"`
	Value float64 `json:"value"`
}

// BiasDTO 圖形偏差估計結果。
type BiasDTO struct {
	BiasZ      float64 `json:"bias_z"`
	Confidence float64 `json:"confidence"`
}

// JudgeResponse 設定判別回應。
//
// SnapB64U 為本次判別的不透明快照 token（Base64URL）：
// 後續 /v1/predict 可帶回它，保證用「同一組後驗」做預測，
// 不需要重送全部計數。token 的內容格式是引擎內部事務，呼叫端只負責 round-trip。
type JudgeResponse struct {
	MachineName   string                   `json:"machine"`
	MachineId     spec.MID                 `json:"mid"`
	Posteriors    []judge.SettingPosterior `json:"posteriors"`
	Top           []judge.SettingPosterior `json:"top"`
	Note          string                   `json:"note,omitempty"`
	Contradiction bool                     `json:"contradiction,omitempty"`
	Advice        judge.Advice             `json:"advice"`
	SnapB64U      string                   `json:"snap_b64u"`
}

// JudgeSnapshot 快照 token 的內容：機種 + 判別當下的後驗。
type JudgeSnapshot struct {
	MachineId  spec.MID                 `json:"mid"`
	Posteriors []judge.SettingPosterior `json:"posteriors"`
}

// EncodeJudgeSnapshot 把快照編成不透明 token。
func EncodeJudgeSnapshot(snap JudgeSnapshot) (string, error) {
	raw, err := json.Marshal(snap)
	if err != nil {
		return "", errs.NewFatal("encode judge snapshot failed")
	}
	return corefmt.EncodeBase64URL(raw), nil
}

// DecodeJudgeSnapshot 還原快照 token。壞 token 一律回 Warn（呼叫端資料問題）。
func DecodeJudgeSnapshot(b64u string) (JudgeSnapshot, error) {
	var snap JudgeSnapshot
	raw, err := corefmt.DecodeBase64URL(b64u)
	if err != nil {
		return snap, errs.NewWarn("snapshot decode failed " + err.Error())
	}
	if err := json.Unmarshal(raw, &snap); err != nil {
		return snap, errs.NewWarn("snapshot unmarshal failed " + err.Error())
	}
	return snap, nil
}

// TapResponse 兩點式估計回應。
type TapResponse struct {
	MachineId spec.MID `json:"mid"`
	Bias      BiasDTO  `json:"bias"`
}

// SlumpResponse 全折線估計回應，附診斷用指標。
type SlumpResponse struct {
	MachineId    spec.MID      `json:"mid"`
	Bias         BiasDTO       `json:"bias"`
	DecisionHint string        `json:"decision_hint,omitempty"`
	Metrics      slump.Metrics `json:"metrics"`
}

func NewSlumpResponse(mid spec.MID, d slump.Decision) SlumpResponse {
	return SlumpResponse{
		MachineId:    mid,
		Bias:         BiasDTO{BiasZ: d.BiasZ, Confidence: d.Confidence},
		DecisionHint: d.DecisionHint,
		Metrics:      d.Metrics,
	}
}

// PredictResponse 期待値預測回應。
type PredictResponse struct {
	MachineId spec.MID       `json:"mid"`
	Forecast  judge.Forecast `json:"forecast"`
}

// MachineInfo 機種摘要（目錄列表用）。
type MachineInfo struct {
	MID      spec.MID `json:"mid"`
	Name     string   `json:"name"`
	Category string   `json:"category"`
	Settings []string `json:"settings"`
	Hints    int      `json:"hints"`
}

// MachineDetail 單一機種的完整定義（odds + 示唆）。
type MachineDetail struct {
	MID      spec.MID           `json:"mid"`
	Name     string             `json:"name"`
	Category string             `json:"category"`
	Settings []spec.SettingOdds `json:"settings"`
	Hints    []spec.HintGroup   `json:"hints,omitempty"`
}

func NewMachineDetail(ms *spec.MachineSpec) MachineDetail {
	return MachineDetail{
		MID:      ms.MachineID,
		Name:     ms.MachineName,
		Category: ms.Cat().String(),
		Settings: ms.Settings,
		Hints:    ms.HintGroups,
	}
}

// SimResponse 收斂模擬回應。
type SimResponse struct {
	MachineId spec.MID                 `json:"mid"`
	Setting   string                   `json:"setting"`
	Seed      uint64                   `json:"seed"`
	UsedMs    int64                    `json:"used_ms"`
	Report    *stats.ConvergenceReport `json:"report"`
}
