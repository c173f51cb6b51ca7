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
	"math/rand/v2"
	"net/http"

	"github.com/zintix-labs/judgelab"
	"github.com/zintix-labs/judgelab/dto"
	"github.com/zintix-labs/judgelab/errs"
	"github.com/zintix-labs/judgelab/server/httperr"
	"github.com/zintix-labs/judgelab/server/svrcfg"
	"github.com/zintix-labs/judgelab/spec"
)

// ============================================================
// ** SimHandler **
// ============================================================

type SimHandler struct {
	lab         *judgelab.Lab
	maxSessions int
	workers     int
}

func NewSimHandler(sCfg *svrcfg.SvrCfg) (*SimHandler, error) {
	if sCfg == nil || sCfg.Lab == nil {
		return nil, errs.NewFatal("lab is required")
	}
	return &SimHandler{
		lab:         sCfg.Lab,
		maxSessions: sCfg.SimMaxSessions,
		workers:     sCfg.SimWorkers,
	}, nil
}

// Sim 收斂模擬：在固定真實設定下合成 session 並統計引擎的判中率。
//
// sessions 會被壓在 SvrCfg.SimMaxSessions 以下；seed 缺省時隨機取，
// 並原樣回傳在回應內，方便重現同一次模擬。
func (h *SimHandler) Sim(w http.ResponseWriter, q *http.Request) {
	if q.Method != http.MethodGet && q.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	req, err := dto.DecodeSimRequest(q)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	mid, err := h.resolveMID(req)
	if err != nil {
		httperr.Errs(w, err)
		return
	}

	if req.Sessions > h.maxSessions {
		req.Sessions = h.maxSessions
	}
	seed := req.Seed
	if seed == 0 {
		seed = rand.Uint64()
	}

	sim, err := h.lab.NewSimulator(mid, seed)
	if err != nil {
		httperr.Errs(w, err)
		return
	}

	// session 總數固定，worker 數只影響吞吐
	workers := h.workers
	perWorker := req.Sessions / workers
	if perWorker < 1 {
		workers = 1
		perWorker = req.Sessions
	}
	report, used, err := sim.SimMP(req.Setting, req.Games, perWorker, workers, false)
	if err != nil {
		httperr.Errs(w, err)
		return
	}

	resp := dto.SimResponse{
		MachineId: mid,
		Setting:   req.Setting,
		Seed:      seed,
		UsedMs:    used.Milliseconds(),
		Report:    report,
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		httperr.Errs(w, err)
		return
	}
}

func (h *SimHandler) resolveMID(req *dto.SimRequest) (spec.MID, error) {
	if req.MachineId != 0 {
		return req.MachineId, nil
	}
	if req.MachineName != "" {
		ent, ok := h.lab.EntryByName(req.MachineName)
		if !ok {
			return 0, errs.NewWarn("machine not found: " + req.MachineName)
		}
		return ent.MID, nil
	}
	return 0, errs.NewWarn("machine or mid is required")
}
