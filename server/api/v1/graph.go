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
	"github.com/zintix-labs/judgelab/slump"
)

// ============================================================
// ** GraphHandler **
// ============================================================

type GraphHandler struct {
	lab *judgelab.Lab
}

func NewGraphHandler(lab *judgelab.Lab) (*GraphHandler, error) {
	if lab == nil {
		return nil, errs.NewFatal("lab is required")
	}
	return &GraphHandler{lab: lab}, nil
}

// Tap 兩點式估計：拍照後點「開始/現在」兩個點 + 兩個軸校正點。
func (h *GraphHandler) Tap(w http.ResponseWriter, q *http.Request) {
	req, err := dto.DecodeTapRequest(q)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	an, err := resolveAnalyzer(h.lab, req.MachineId, req.MachineName)
	if err != nil {
		httperr.Errs(w, err)
		return
	}

	bias := an.TapBias(
		slump.Point{X: req.Start.X, Y: req.Start.Y},
		slump.Point{X: req.End.X, Y: req.End.Y},
		axisOf(req.AxisTop, req.AxisBottom),
		req.Spins,
	)

	resp := dto.TapResponse{
		MachineId: an.Spec().MachineID,
		Bias:      dto.BiasDTO{BiasZ: bias.BiasZ, Confidence: bias.Confidence},
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		httperr.Errs(w, err)
		return
	}
}

// Slump 全折線估計：整條スランプグラフ的取樣點。
func (h *GraphHandler) Slump(w http.ResponseWriter, q *http.Request) {
	req, err := dto.DecodeSlumpRequest(q)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	an, err := resolveAnalyzer(h.lab, req.MachineId, req.MachineName)
	if err != nil {
		httperr.Errs(w, err)
		return
	}

	pts := make([]slump.Point, len(req.Points))
	for i, p := range req.Points {
		pts[i] = slump.Point{X: p.X, Y: p.Y}
	}
	d := an.SlumpBias(pts, axisOf(req.AxisTop, req.AxisBottom), req.StartX, req.EndX, req.Spins)

	resp := dto.NewSlumpResponse(an.Spec().MachineID, d)
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		httperr.Errs(w, err)
		return
	}
}

func axisOf(top, bottom dto.CalibDTO) slump.Axis {
	return slump.Axis{
		Top:    slump.CalibPoint{Y: top.Y, Value: top.Value},
		Bottom: slump.CalibPoint{Y: bottom.Y, Value: bottom.Value},
	}
}
