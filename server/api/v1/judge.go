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
	"github.com/zintix-labs/judgelab/server/httperr"
	"github.com/zintix-labs/judgelab/spec"
)

// ============================================================
// ** JudgeHandler **
// ============================================================

type JudgeHandler struct {
	lab *judgelab.Lab
}

func NewJudgeHandler(lab *judgelab.Lab) (*JudgeHandler, error) {
	if lab == nil {
		return nil, errs.NewFatal("lab is required")
	}
	return &JudgeHandler{lab: lab}, nil
}

func (h *JudgeHandler) Judge(w http.ResponseWriter, q *http.Request) {
	// 請求方法、結構體校驗
	if q.Method != http.MethodGet && q.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	req, err := dto.DecodeJudgeRequest(q)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	an, err := resolveAnalyzer(h.lab, req.MachineId, req.MachineName)
	if err != nil {
		httperr.Errs(w, err)
		return
	}

	res, err := an.Judge(req.Input(), judgelab.JudgeOptions{
		Hints: req.HintCounts(),
		Bias:  req.SlumpBias(),
		Allow: req.Allow,
		TopN:  req.TopN,
	})
	if err != nil {
		httperr.Errs(w, err)
		return
	}

	snap, err := dto.EncodeJudgeSnapshot(dto.JudgeSnapshot{
		MachineId:  an.Spec().MachineID,
		Posteriors: res.Posteriors,
	})
	if err != nil {
		httperr.Errs(w, err)
		return
	}

	resp := dto.JudgeResponse{
		MachineName:   an.Spec().MachineName,
		MachineId:     an.Spec().MachineID,
		Posteriors:    res.Posteriors,
		Top:           res.Top,
		Note:          res.Note,
		Contradiction: res.Contradiction,
		Advice:        an.Recommend(res.Posteriors, req.FutureGames),
		SnapB64U:      snap,
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		httperr.Errs(w, err)
		return
	}
}

// resolveAnalyzer 以 mid 優先、名稱次之取得機種的 Analyzer。
func resolveAnalyzer(lab *judgelab.Lab, mid spec.MID, name string) (*judgelab.Analyzer, error) {
	if mid != 0 {
		return lab.NewAnalyzer(mid)
	}
	if name != "" {
		return lab.NewAnalyzerByName(name)
	}
	return nil, errs.NewWarn("machine or mid is required")
}
