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

package svrcfg

import (
	"log/slog"

	"github.com/zintix-labs/judgelab"
	"github.com/zintix-labs/judgelab/errs"
	"github.com/zintix-labs/judgelab/server/logger"
)

type SvrCfg struct {
	Log *slog.Logger
	Lab *judgelab.Lab
	// SimMaxSessions 單次 /v1/sim 請求允許的最大 session 數，
	// 防止呼叫端用一個請求吃光整台機器。<= 0 時取預設 20000。
	SimMaxSessions int
	// SimWorkers /v1/sim 的並行 worker 上限。<= 0 時取預設 4。
	SimWorkers int
}

const (
	defaultSimMaxSessions = 20000
	defaultSimWorkers     = 4
	maxSimWorkers         = 16
)

func (sc *SvrCfg) Vaild() error {
	if sc.Log != nil {
		if ah, ok := sc.Log.Handler().(*logger.AsyncHandler); ok && !ah.Ready() {
			return errs.NewFatal("nil default log handler: async handler is nil")
		}
	} else {
		// 保持安靜、合法
		sc.Log, _ = logger.NewAsync(1024, logger.ModeDev)
	}

	if sc.SimMaxSessions <= 0 {
		sc.SimMaxSessions = defaultSimMaxSessions
	}
	if sc.SimWorkers <= 0 {
		sc.SimWorkers = defaultSimWorkers
	}
	sc.SimWorkers = min(maxSimWorkers, sc.SimWorkers)

	if sc.Lab == nil {
		return errs.NewFatal("lab is required")
	}
	return nil
}
