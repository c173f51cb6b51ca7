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

package judgelab

import (
	"io"
	"math/rand/v2"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cheggaaa/pb/v3"
	"github.com/zintix-labs/judgelab/errs"
	"github.com/zintix-labs/judgelab/judge"
	"github.com/zintix-labs/judgelab/recorder"
	"github.com/zintix-labs/judgelab/spec"
	"github.com/zintix-labs/judgelab/stats"
)

const capPrepare int = 100

// Simulator 收斂模擬器
//
// 在固定真實設定下合成大量 session（每 session games 轉的 BIG/REG/小役計數），
// 逐一丟給判別引擎，統計引擎多常把真實設定判對。用於驗證引擎在不同轉數
// 下的收斂速度，也是 odds 設定檔的迴歸測試工具。
type Simulator struct {
	MachineName string
	MachineId   spec.MID
	ms          *spec.MachineSpec
	an          *Analyzer
	initSeed    uint64
	seedmaker   *seedMaker
	rBuf        []*recorder.JudgeRecorder
}

func newSimulator(ms *spec.MachineSpec, seed uint64) (*Simulator, error) {
	if ms == nil {
		return nil, errs.NewFatal("machine spec required")
	}
	s := &Simulator{
		MachineName: ms.MachineName,
		MachineId:   ms.MachineID,
		ms:          ms,
		an:          newAnalyzer(ms),
		initSeed:    seed,
		seedmaker:   newSeedMaker(seed),
		rBuf:        make([]*recorder.JudgeRecorder, 0, capPrepare),
	}
	return s, nil
}

// Sim 單線模擬器：連續跑指定 session 數並回傳收斂報表與用時
func (s *Simulator) Sim(setting string, games, sessions int, showpb bool) (*stats.ConvergenceReport, time.Duration, error) {
	defer s.reset()
	so, err := s.settingOdds(setting)
	if err != nil {
		return nil, 0, err
	}
	if games < 1 || sessions < 1 {
		return nil, 0, errs.NewWarn("games and sessions must > 0")
	}

	r, err := recorder.NewJudgeRecorder(s.MachineName, s.MachineId, setting, games)
	if err != nil {
		return nil, 0, err
	}
	rng := rand.New(rand.NewPCG(s.initSeed, s.seedmaker.next()))

	bar := pb.StartNew(sessions)
	if !showpb {
		bar.SetWriter(io.Discard)
	}
	for i := 0; i < sessions; i++ {
		r.Record(s.runSession(rng, so, games))
		bar.Increment()
	}
	used := time.Since(bar.StartTime())
	bar.Finish()

	result := r.Done()
	result.Done()
	return result, used, nil
}

// SimMP 平行執行多個 worker，總計 sessions*mp 個 session，合併統計後回傳收斂報表與用時
func (s *Simulator) SimMP(setting string, games, sessions, mp int, showpb bool) (*stats.ConvergenceReport, time.Duration, error) {
	rep, _, used, err := s.simMP(setting, games, sessions, mp, showpb, false)
	return rep, used, err
}

// SimEst 與 SimMP 相同，另外回傳以 session 為單位的收斂評估報表。
func (s *Simulator) SimEst(setting string, games, sessions, mp int, showpb bool) (*stats.ConvergenceReport, *stats.EstimatorSessions, time.Duration, error) {
	return s.simMP(setting, games, sessions, mp, showpb, true)
}

func (s *Simulator) simMP(setting string, games, sessions, mp int, showpb, withEst bool) (*stats.ConvergenceReport, *stats.EstimatorSessions, time.Duration, error) {
	defer s.reset()
	so, err := s.settingOdds(setting)
	if err != nil {
		return nil, nil, 0, err
	}
	if mp <= 0 {
		return nil, nil, 0, errs.NewWarn("workers must > 0")
	}
	if games < 1 || sessions < 1 {
		return nil, nil, 0, errs.NewWarn("games and sessions must > 0")
	}

	for len(s.rBuf) < mp {
		r, rerr := recorder.NewJudgeRecorder(s.MachineName, s.MachineId, setting, games)
		if rerr != nil {
			return nil, nil, 0, rerr
		}
		s.rBuf = append(s.rBuf, r)
	}

	wg := new(sync.WaitGroup)
	wg.Add(mp)
	bar := pb.StartNew(sessions * mp)
	if !showpb {
		bar.SetWriter(io.Discard)
	}
	for i := 0; i < mp; i++ {
		go func(i int) {
			defer wg.Done()
			rng := rand.New(rand.NewPCG(s.seedmaker.next(), s.seedmaker.next()))
			r := s.rBuf[i]
			for n := 0; n < sessions; n++ {
				r.Record(s.runSession(rng, so, games))
				bar.Increment()
			}
		}(i)
	}
	wg.Wait()
	used := time.Since(bar.StartTime())
	bar.Finish()

	merged, err := recorder.MergeJudgeRecorder(s.rBuf)
	if err != nil {
		return nil, nil, 0, err
	}
	result := merged.Done()
	result.Done()

	var est *stats.EstimatorSessions
	if withEst {
		est = stats.EstimatorSessionExp(merged.Samples())
	}
	return result, est, used, nil
}

// runSession 合成一個 session 的觀測計數並丟給引擎判別。
//
// BIG/REG 以單次掃描的輪盤抽樣（u < pB 為 BIG，u < pB+pR 為 REG），
// 其餘證據來源各自獨立抽二項。抽樣模型與引擎的似然模型一致，
// 因此收斂速度只反映「games 轉的資訊量」而不是模型誤差。
func (s *Simulator) runSession(rng *rand.Rand, so *spec.SettingOdds, games int) recorder.SessionResult {
	pB := 0.0
	if so.Big > 0 {
		pB = 1.0 / so.Big
	}
	pR := 0.0
	if so.Reg > 0 {
		pR = 1.0 / so.Reg
	}

	big, reg := 0, 0
	for i := 0; i < games; i++ {
		u := rng.Float64()
		if u < pB {
			big++
		} else if u < pB+pR {
			reg++
		}
	}

	in := judge.Input{
		Games:    games,
		BigCount: judge.IntP(big),
		RegCount: judge.IntP(reg),
	}

	// map 的抽樣順序固定（依 metric ID），同 seed 的 run 才能重現。
	if len(so.Extras) > 0 {
		in.ExtraCounts = make(map[spec.MetricID]int, len(so.Extras))
		for _, id := range sortedIDs(so.Extras) {
			in.ExtraCounts[id] = sampleBinom(rng, games, 1.0/so.Extras[id])
		}
	} else if so.Extra > 0 {
		in.ExtraCount = judge.IntP(sampleBinom(rng, games, 1.0/so.Extra))
	}

	if len(so.BinomialRates) > 0 {
		in.BinomialTrials = make(map[spec.MetricID]int, len(so.BinomialRates))
		in.BinomialHits = make(map[spec.MetricID]int, len(so.BinomialRates))
		for _, id := range sortedIDs(so.BinomialRates) {
			in.BinomialTrials[id] = games
			in.BinomialHits[id] = sampleBinom(rng, games, so.BinomialRates[id])
		}
	}
	if so.SuikaCzRate > 0 {
		in.SuikaTrials = judge.IntP(games)
		in.SuikaCzHits = judge.IntP(sampleBinom(rng, games, so.SuikaCzRate))
	}
	if so.UraAtRate > 0 {
		in.UraAtTrials = judge.IntP(games)
		in.UraAtHits = judge.IntP(sampleBinom(rng, games, so.UraAtRate))
	}

	ps := judge.Posterior(s.ms.Settings, in)
	top := judge.TopN(ps, 2)
	truePost := 0.0
	for i := range ps {
		if ps[i].S == so.S {
			truePost = ps[i].Posterior
			break
		}
	}
	top1 := len(top) > 0 && top[0].S == so.S
	top2 := top1 || (len(top) > 1 && top[1].S == so.S)
	advice := judge.Recommend(ps, s.ms.Settings, 1000)

	return recorder.SessionResult{
		BigCount: big,
		RegCount: reg,
		TruePost: truePost,
		Top1:     top1,
		Top2:     top2,
		Advice:   string(advice.Level),
	}
}

func sortedIDs(m map[spec.MetricID]float64) []spec.MetricID {
	ids := make([]spec.MetricID, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

func sampleBinom(rng *rand.Rand, n int, p float64) int {
	if n <= 0 || p <= 0 {
		return 0
	}
	if p >= 1 {
		return n
	}
	k := 0
	for i := 0; i < n; i++ {
		if rng.Float64() < p {
			k++
		}
	}
	return k
}

func (s *Simulator) settingOdds(setting string) (*spec.SettingOdds, error) {
	for i := range s.ms.Settings {
		if s.ms.Settings[i].S == setting {
			return &s.ms.Settings[i], nil
		}
	}
	return nil, errs.NewWarn("unknown setting: " + setting)
}

func (s *Simulator) reset() {
	s.rBuf = s.rBuf[:0]
}

const mask63 = uint64(1<<63) - 1

type seedMaker struct {
	state atomic.Uint64 // always in [0, 2^63)
}

func newSeedMaker(seed uint64) *seedMaker {
	s := &seedMaker{}
	s.state.Store(seed & mask63)
	return s
}

// state 走全週期（不重複），再用可逆 mix63 打散
//
// 注意：此方法可能在併發環境下被多 goroutines 同時呼叫（SimMP 的 worker 啟動）。
// 因此 state 的推進必須是原子的：
//   - 使用 CAS（Compare-And-Swap）迴圈確保每次呼叫都會取得唯一的下一個 state。
//   - 回傳值使用推進後的 state 經 mix63 打散後的結果。
func (s *seedMaker) next() uint64 {
	for {
		old := s.state.Load()                                            // always masked
		next := (old*6364136223846793005 + 1442695040888963407) & mask63 // full-period LCG mod 2^63
		if s.state.CompareAndSwap(old, next) {
			return mix63(next)
		}
	}
}

// mix63：只用「可逆」的 bit 操作 + 乘奇數（mod 2^63）
func mix63(x uint64) uint64 {
	x &= mask63
	x ^= x >> 30
	x = (x * 0xBF58476D1CE4E5B9) & mask63 // 乘奇數 ⇒ mod 2^63 可逆
	x ^= x >> 27
	x = (x * 0x94D049BB133111EB) & mask63
	x ^= x >> 31
	return x & mask63
}
