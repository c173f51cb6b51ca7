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

// Package judgelab 提供設定判別引擎的「組裝入口（assembler）」。
//
// 你可以把 Lab 視為一個「可被後端/模擬器使用的 runtime」，它負責把下列地基組裝在一起，
// 並提供建立 Analyzer 的入口：
//  1. Catalog：機種目錄（Single Source of Truth / SSOT），定義有哪些機種、
//     各自對應的設定檔名稱（ConfigName）。
//  2. MachineSpec：機種的設定段機率表（odds）與示唆（hint）定義，
//     由 Catalog 自 fs.FS 解析而得。
//
// 設計重點：
//   - Lab 本身不綁定任何「檔案路徑」概念：設定檔來源一律以 fs.FS 的形式注入。
//   - Analyzer 是對外提供推論的最小單位；它持有單一機種的 odds/hints，
//     其上的所有運算都是純函數（同輸入必同輸出，無副作用）。
//
// 典型使用情境：
//   - 後端服務（HTTP）：由 Lab 建立 Analyzer，Analyzer 對外提供 Judge/Predict。
//   - 模擬器（sim）：由 Lab 建立 Simulator 做大量收斂驗證。
//
// 注意：此引擎以パチスロ設定推測為中心（counts -> posterior），不是泛用統計框架。
package judgelab

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/zintix-labs/judgelab/catalog"
	"github.com/zintix-labs/judgelab/errs"
	"github.com/zintix-labs/judgelab/spec"
)

// Configs 用來把一或多個設定檔來源（fs.FS）打包成 New() 需要的參數。
//
// 為什麼是 fs.FS：
//   - 你可以用 go:embed 把 configs 直接編進 binary（部署最穩定，不依賴工作目錄）。
//   - 也可以用 os.DirFS 在本機開發時讀取目錄。
//
// Lab 不解析「路徑」：它只依賴 fs.FS + ConfigName（檔名）來取得設定內容。
func Configs(cfgs ...fs.FS) []fs.FS {
	return cfgs
}

// Lab 是機種目錄與推論引擎的組裝器。
//
// 使用流程分成兩階段：
//   - 註冊/組裝階段（registration/build）：建立 catalog、檢查重複與缺漏。
//   - 執行階段（runtime）：Freeze 之後依機種 ID 產生 Analyzer / Simulator。
//
// Catalog 的 ID 唯一性只保證在「同一個 Lab instance」內。
// runtime 一旦開始（已對外服務），不建議再變更 Catalog。
type Lab struct {
	cat *catalog.Catalog
	sum []catalog.Summary
}

// New 建立一個 Lab instance。
//
// 這是「組裝階段」的入口：會建立 Catalog（含檔名存在性/重複性檢查，
// 避免 runtime 才爆）。cfgs 至少一個，否則 Catalog 無法解析 MachineSpec。
func New(cfgs []fs.FS) (*Lab, error) {
	if len(cfgs) == 0 {
		return nil, errs.NewFatal("configs required")
	}
	cata, err := catalog.New(cfgs...)
	if err != nil {
		return nil, err
	}
	return &Lab{cat: cata}, nil
}

// NewAuto 建立一個直接進入執行階段的 Lab instance：
// 掃描所有來源註冊全部機種，然後 Freeze。
func NewAuto(cfgs []fs.FS) (*Lab, error) {
	lab, err := New(cfgs)
	if err != nil {
		return nil, err
	}
	if err := lab.RegisterAll(); err != nil {
		return nil, err
	}
	lab.Freeze()
	return lab, nil
}

func (l *Lab) Register(ents ...catalog.Entry) error {
	return l.cat.Register(ents...)
}

// RegisterAll
//
// 掃描 catalog 持有的設定檔來源（fs.FS），把所有可辨識的設定檔（.yaml/.yml/.json）
// 解析成 *spec.MachineSpec，並用設定檔內宣告的 MachineID/MachineName
// 產生對應的 catalog.Entry 批次註冊。
//
// 行為特性（重要）：
//  1. Fail-fast：任何一個檔案讀取/解析/基本檢查失敗，立刻回傳 error。
//  2. 原子性：只有「全部檔案」都成功時才呼叫 Register(...) 一次性寫入，
//     不會出現只註冊了一半的 catalog。
//  3. 穩定性：來源內的檔案以 WalkDir 的字典序處理，行為 determinism。
func (l *Lab) RegisterAll() error {
	cfgs := l.cat.Cfg()
	sources := cfgs.Sources()
	if len(sources) == 0 {
		return errs.NewFatal("configs required")
	}

	entries := make([]catalog.Entry, 0, 64)
	seenID := map[spec.MID]string{}
	seenName := map[string]string{}

	for _, src := range sources {
		walkErr := fs.WalkDir(src, ".", func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				if path == "." {
					return nil
				}
				return errs.NewFatal(fmt.Sprintf("configs must be flat (no subdir): %q", path))
			}

			base := filepath.Base(path)
			if strings.Contains(path, "/") && path != base {
				return errs.NewFatal(fmt.Sprintf("configs must be flat (nested path): %q", path))
			}
			if strings.HasPrefix(base, ".") {
				return nil
			}

			ext := strings.ToLower(filepath.Ext(base))
			if ext != ".yaml" && ext != ".yml" && ext != ".json" {
				return nil
			}

			raw, rerr := fs.ReadFile(src, path)
			if rerr != nil {
				return errs.NewFatal(fmt.Sprintf("read config failed: %s", base))
			}

			var (
				ms   *spec.MachineSpec
				merr error
			)
			switch ext {
			case ".yaml", ".yml":
				ms, merr = spec.GetMachineSpecByYAML(raw)
			case ".json":
				ms, merr = spec.GetMachineSpecByJSON(raw)
			default:
				return errs.NewFatal(fmt.Sprintf("unsupported config format: %q", base))
			}
			if merr != nil {
				return errs.Wrap(merr, fmt.Sprintf("parse machinespec failed: %s", base))
			}

			name := strings.TrimSpace(ms.MachineName)
			if name == "" {
				return errs.NewFatal(fmt.Sprintf("machine name required: %s", base))
			}

			id := ms.MachineID
			if prev, ok := seenID[id]; ok {
				return errs.NewFatal(fmt.Sprintf("duplicate machine id: %d (config=%s and %s)", id, prev, base))
			}
			if _, ok := l.cat.GetByID(id); ok {
				return errs.NewFatal(fmt.Sprintf("machine id already registered: %d (config=%s)", id, base))
			}
			seenID[id] = base

			nameKey := strings.ToLower(name)
			if prev, ok := seenName[nameKey]; ok {
				return errs.NewFatal(fmt.Sprintf("duplicate machine name: %s (config=%s and %s)", nameKey, prev, base))
			}
			if _, ok := l.cat.GetByName(name); ok {
				return errs.NewFatal(fmt.Sprintf("machine name already registered: %s (config=%s)", name, base))
			}
			seenName[nameKey] = base

			entries = append(entries, catalog.Entry{
				MID:        id,
				Name:       name,
				ConfigName: base,
			})
			return nil
		})
		if walkErr != nil {
			return walkErr
		}
	}

	if len(entries) == 0 {
		return errs.NewFatal("no config files found to register")
	}

	return l.cat.Register(entries...)
}

func (l *Lab) Freeze() {
	l.cat.Freeze()
}

func (l *Lab) EntryById(id spec.MID) (catalog.Entry, bool) {
	return l.cat.GetByID(id)
}

func (l *Lab) EntryByName(name string) (catalog.Entry, bool) {
	return l.cat.GetByName(name)
}

func (l *Lab) IDs() []spec.MID {
	return l.cat.IDs()
}

func (l *Lab) All() []catalog.Entry {
	return l.cat.All()
}

// Summary 回傳全機種的摘要（ID、名稱、類別、設定段 ID 列表、示唆數）。
// 第一次呼叫時建立並快取；必須在 Freeze 之後。
func (l *Lab) Summary() ([]catalog.Summary, error) {
	if !l.cat.IsFrozen() {
		return nil, errs.NewFatal("catalog is not frozen yet")
	}
	if l.sum != nil {
		return l.sum, nil
	}
	ids := l.cat.IDs()
	cs := make([]catalog.Summary, 0, len(ids))
	for _, id := range ids {
		ms, err := l.cat.MachineSpecById(id)
		if err != nil {
			return nil, errs.NewFatal("parse machine spec failed")
		}
		settings := make([]string, 0, len(ms.Settings))
		for i := range ms.Settings {
			settings = append(settings, ms.Settings[i].S)
		}
		hints := 0
		for i := range ms.HintGroups {
			hints += len(ms.HintGroups[i].Items)
		}
		cs = append(cs, catalog.Summary{
			MID:      id,
			Name:     ms.MachineName,
			Category: ms.Cat().String(),
			Settings: settings,
			Hints:    hints,
		})
	}
	l.sum = cs
	return l.sum, nil
}

// MachineSpecById 取出機種設定。必須在 Freeze 之後（確保目錄不再變動）。
func (l *Lab) MachineSpecById(id spec.MID) (*spec.MachineSpec, error) {
	if !l.cat.IsFrozen() {
		return nil, errs.NewFatal("catalog is not frozen yet")
	}
	return l.cat.MachineSpecById(id)
}

func (l *Lab) MachineSpecByName(name string) (*spec.MachineSpec, error) {
	if !l.cat.IsFrozen() {
		return nil, errs.NewFatal("catalog is not frozen yet")
	}
	return l.cat.MachineSpecByName(name)
}

// NewAnalyzer 依機種 ID 建立一個 Analyzer。
//
// Analyzer 持有該機種的 odds/hints，其上的推論都是純函數；
// 同一個 Analyzer 可被多個 goroutine 同時使用。
func (l *Lab) NewAnalyzer(id spec.MID) (*Analyzer, error) {
	ms, err := l.MachineSpecById(id)
	if err != nil {
		return nil, err
	}
	return newAnalyzer(ms), nil
}

func (l *Lab) NewAnalyzerByName(name string) (*Analyzer, error) {
	ms, err := l.MachineSpecByName(name)
	if err != nil {
		return nil, err
	}
	return newAnalyzer(ms), nil
}

// NewSimulator 依機種 ID 建立一個收斂模擬器。
// seed 由呼叫端指定，同一份設定 + 同一個 seed 產生一致的隨機序列。
func (l *Lab) NewSimulator(id spec.MID, seed uint64) (*Simulator, error) {
	ms, err := l.MachineSpecById(id)
	if err != nil {
		return nil, err
	}
	return newSimulator(ms, seed)
}
