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

package v1

import (
	"encoding/json"
	"net/http"

	"github.com/zintix-labs/judgelab"
	"github.com/zintix-labs/judgelab/dto"
	"github.com/zintix-labs/judgelab/errs"
	"github.com/zintix-labs/judgelab/judge"
	"github.com/zintix-labs/judgelab/server/httperr"
)

// ============================================================
// ** PredictHandler **
// ============================================================

type PredictHandler struct {
	lab *judgelab.Lab
}

func NewPredictHandler(lab *judgelab.Lab) (*PredictHandler, error) {
	if lab == nil {
		return nil, errs.NewFatal("lab is required")
	}
	return &PredictHandler{lab: lab}, nil
}

// Predict 期待値預測。
//
// 後驗來源二擇一：
//   - snap_b64u：/v1/judge 回的快照（與判別時同一組後驗，且省一次計算）。
//   - counts：重算一次後驗（只用計數證據，不含示唆/偏差）。
func (h *PredictHandler) Predict(w http.ResponseWriter, q *http.Request) {
	req, err := dto.DecodePredictRequest(q)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	var ps []judge.SettingPosterior
	mid := req.MachineId
	name := req.MachineName

	switch {
	case req.SnapB64U != "":
		snap, serr := dto.DecodeJudgeSnapshot(req.SnapB64U)
		if serr != nil {
			httperr.Errs(w, serr)
			return
		}
		if mid != 0 && mid != snap.MachineId {
			httperr.Errs(w, errs.NewWarn("snapshot is for a different machine"))
			return
		}
		mid = snap.MachineId
		ps = snap.Posteriors

	case req.Counts != nil:
		if mid == 0 {
			mid = req.Counts.MachineId
		}
		if name == "" {
			name = req.Counts.MachineName
		}

	default:
		httperr.Errs(w, errs.NewWarn("snap_b64u or counts is required"))
		return
	}

	an, err := resolveAnalyzer(h.lab, mid, name)
	if err != nil {
		httperr.Errs(w, err)
		return
	}
	if ps == nil {
		ps = judge.Posterior(an.Spec().Settings, req.Counts.Input())
		if ps == nil {
			httperr.Errs(w, errs.NewWarn("invalid judge input"))
			return
		}
	}

	resp := dto.PredictResponse{
		MachineId: an.Spec().MachineID,
		Forecast:  an.Predict(ps, req.Games, req.Rate),
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		httperr.Errs(w, err)
		return
	}
}
