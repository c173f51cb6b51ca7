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

package recorder

import (
	"fmt"

	"github.com/zintix-labs/judgelab/errs"
	"github.com/zintix-labs/judgelab/spec"
	"github.com/zintix-labs/judgelab/stats"
)

// JudgeRecorder 收斂模擬紀錄員
//
// JudgeRecorder 負責紀錄每個 session 的判別結果，並透過 Done 輸出收斂報表。
type JudgeRecorder struct {
	MachineName string
	MachineId   spec.MID
	TrueSetting string
	Games       int
	Basic       *BasicRecord
	Dist        *DistRecord
	samples     []stats.SessionSample
}

// BasicRecord 基本判別結果紀錄
type BasicRecord struct {
	Sessions      int
	Top1          int
	Top2          int
	BigTotal      int
	RegTotal      int
	TruePostSum   float64
	TruePostSqSum float64
}

// DistRecord 真實設定後驗的分桶落點統計
type DistRecord struct {
	PostCollect []int
}

// SessionResult 單一 session 的判別結果。
type SessionResult struct {
	BigCount int
	RegCount int
	TruePost float64 // 真實設定的後驗
	Top1     bool    // 真實設定佔後驗第一名
	Top2     bool    // 真實設定落在後驗前兩名
	Advice   string  // favorable / neutral / unfavorable
}

func NewJudgeRecorder(name string, id spec.MID, trueSetting string, games int) (*JudgeRecorder, error) {
	r := new(JudgeRecorder)

	if name == "" {
		return r, errs.NewFatal("machine name required")
	}
	if trueSetting == "" {
		return r, errs.NewFatal("true setting required")
	}
	if games < 1 {
		return r, errs.NewFatal(fmt.Sprintf("games must be positive, got: %d", games))
	}
	// 通過valid
	r.MachineName = name
	r.MachineId = id
	r.TrueSetting = trueSetting
	r.Games = games
	r.Basic = new(BasicRecord)
	r.Dist = &DistRecord{PostCollect: make([]int, stats.Buckets.Len())}

	return r, nil
}

func MergeJudgeRecorder(r []*JudgeRecorder) (*JudgeRecorder, error) {
	r0 := r[0]
	s, err := NewJudgeRecorder(r0.MachineName, r0.MachineId, r0.TrueSetting, r0.Games)
	if err != nil {
		return s, err
	}
	for _, v := range r {
		if v.MachineName != r0.MachineName {
			return s, errs.NewFatal("merge judge record err : different machine name")
		}
		if v.TrueSetting != r0.TrueSetting {
			return s, errs.NewFatal("merge judge record err : different true setting")
		}
		if v.Games != r0.Games {
			return s, errs.NewFatal("merge judge record err : different games")
		}
		s.Basic.Sessions += v.Basic.Sessions
		s.Basic.Top1 += v.Basic.Top1
		s.Basic.Top2 += v.Basic.Top2
		s.Basic.BigTotal += v.Basic.BigTotal
		s.Basic.RegTotal += v.Basic.RegTotal
		s.Basic.TruePostSum += v.Basic.TruePostSum
		s.Basic.TruePostSqSum += v.Basic.TruePostSqSum

		// 整合Dist
		for i := range v.Dist.PostCollect {
			s.Dist.PostCollect[i] += v.Dist.PostCollect[i]
		}
		s.samples = append(s.samples, v.samples...)
	}
	return s, nil
}

// Record 以單次 SessionResult 更新統計。
func (r *JudgeRecorder) Record(sr SessionResult) {
	b := r.Basic
	b.Sessions++
	if sr.Top1 {
		b.Top1++
	}
	if sr.Top2 {
		b.Top2++
	}
	b.BigTotal += sr.BigCount
	b.RegTotal += sr.RegCount
	b.TruePostSum += sr.TruePost
	b.TruePostSqSum += sr.TruePost * sr.TruePost

	r.Dist.PostCollect[stats.Buckets.Index(sr.TruePost)]++

	r.samples = append(r.samples, stats.SessionSample{
		TruePost: sr.TruePost,
		Top1:     sr.Top1,
		Top2:     sr.Top2,
		Advice:   sr.Advice,
	})
}

// Samples 回傳目前累積的 session 樣本（供 EstimatorSessionExp 使用）。
func (r *JudgeRecorder) Samples() []stats.SessionSample {
	return r.samples
}

func (r *JudgeRecorder) Done() *stats.ConvergenceReport {
	totalGames := r.Basic.Sessions * r.Games

	bigRate := 0.0
	if r.Basic.BigTotal > 0 {
		bigRate = float64(totalGames) / float64(r.Basic.BigTotal)
	}
	regRate := 0.0
	if r.Basic.RegTotal > 0 {
		regRate = float64(totalGames) / float64(r.Basic.RegTotal)
	}

	report := &stats.ConvergenceReport{
		Summary: &stats.SummaryReport{
			MachineName: r.MachineName,
			MachineId:   r.MachineId,
			TrueSetting: r.TrueSetting,
			Games:       r.Games,
			Sessions:    r.Basic.Sessions,
			BigTotal:    r.Basic.BigTotal,
			RegTotal:    r.Basic.RegTotal,
			BigRate:     bigRate,
			RegRate:     regRate,
		},
		Hit: &stats.HitReport{
			Top1: r.Basic.Top1,
			Top2: r.Basic.Top2,
		},
		Post: &stats.PostReport{
			TrueSum:     r.Basic.TruePostSum,
			TrueSqSum:   r.Basic.TruePostSqSum,
			Bucket:      stats.Buckets.PostBucketStr(),
			PostCollect: r.Dist.PostCollect,
		},
	}
	return report
}
