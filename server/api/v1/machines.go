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
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/zintix-labs/judgelab"
	"github.com/zintix-labs/judgelab/dto"
	"github.com/zintix-labs/judgelab/errs"
	"github.com/zintix-labs/judgelab/server/httperr"
	"github.com/zintix-labs/judgelab/spec"
)

// ============================================================
// ** MachinesHandler **
// ============================================================

type MachinesHandler struct {
	lab *judgelab.Lab
}

func NewMachinesHandler(lab *judgelab.Lab) (*MachinesHandler, error) {
	if lab == nil {
		return nil, errs.NewFatal("lab is required")
	}
	return &MachinesHandler{lab: lab}, nil
}

// List 機種目錄列表。
func (h *MachinesHandler) List(w http.ResponseWriter, q *http.Request) {
	sum, err := h.lab.Summary()
	if err != nil {
		httperr.Errs(w, err)
		return
	}
	resp := make([]dto.MachineInfo, 0, len(sum))
	for _, s := range sum {
		resp = append(resp, dto.MachineInfo{
			MID:      s.MID,
			Name:     s.Name,
			Category: s.Category,
			Settings: s.Settings,
			Hints:    s.Hints,
		})
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		httperr.Errs(w, err)
		return
	}
}

// Detail 單一機種的完整定義（/v1/machines/{mid}）。
func (h *MachinesHandler) Detail(w http.ResponseWriter, q *http.Request) {
	raw := chi.URLParam(q, "mid")
	u, err := strconv.ParseUint(raw, 10, 0)
	if err != nil {
		httperr.Errs(w, errs.NewWarn("invalid mid: "+raw))
		return
	}
	ms, err := h.lab.MachineSpecById(spec.MID(u))
	if err != nil {
		httperr.Errs(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(dto.NewMachineDetail(ms)); err != nil {
		httperr.Errs(w, err)
		return
	}
}
