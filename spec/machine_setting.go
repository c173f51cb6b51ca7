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

package spec

import (
	"fmt"
	"strings"

	"github.com/zintix-labs/judgelab/errs"
)

// MID 機台型號的唯一識別碼。
type MID uint

// MachineSpec 包含判別一個機台型號所需的所有靜態設定：
// 各設定段的理論值表（SettingOdds）與示唆演出目錄（HintGroup）。
//
// MachineSpec 於 catalog 註冊時解析一次，runtime 期間視為不可變。
type MachineSpec struct {
	MachineName string        `yaml:"machine_name" json:"machine_name"`
	MachineID   MID           `yaml:"machine_id"   json:"machine_id"`
	Category    string        `yaml:"category"     json:"category"`
	Settings    []SettingOdds `yaml:"settings"     json:"settings"`
	HintGroups  []HintGroup   `yaml:"hint_groups"  json:"hint_groups,omitempty"`
}

// init 初始化各子設定並執行基本檢查。
func (ms *MachineSpec) init() error {
	for i := range ms.Settings {
		if err := ms.Settings[i].init(); err != nil {
			return err
		}
	}
	for i := range ms.HintGroups {
		if err := ms.HintGroups[i].init(); err != nil {
			return err
		}
	}
	return ms.valid()
}

// valid 執行最基本的設定檔檢查，如需更多驗證可在此擴充。
func (ms *MachineSpec) valid() error {
	if strings.TrimSpace(ms.MachineName) == "" {
		return errs.NewFatal("machine name required")
	}

	if _, ok := ParseCategory(ms.Category); !ok {
		return errs.NewFatal(fmt.Sprintf("machine: %s err:unknown category %q", ms.MachineName, ms.Category))
	}

	// 設定段不能為空
	if len(ms.Settings) == 0 {
		return errs.NewFatal(fmt.Sprintf("machine: %s err:empty settings", ms.MachineName))
	}

	// 設定段識別碼需唯一
	seen := map[string]struct{}{}
	for _, so := range ms.Settings {
		if _, ok := seen[so.S]; ok {
			return errs.NewFatal(fmt.Sprintf("machine: %s err:duplicate setting %q", ms.MachineName, so.S))
		}
		seen[so.S] = struct{}{}
	}

	// 示唆項目識別碼需全機台唯一（跨 group）
	seenHint := map[string]struct{}{}
	for _, g := range ms.HintGroups {
		for _, it := range g.Items {
			if _, ok := seenHint[it.ID]; ok {
				return errs.NewFatal(fmt.Sprintf("machine: %s err:duplicate hint item %q", ms.MachineName, it.ID))
			}
			seenHint[it.ID] = struct{}{}
		}
	}
	return nil
}

// Cat 回傳已解析的機台類別。
//
// 前提：MachineSpec 必須已通過 init()/valid()；未驗證的 spec 會 fallback 成 CategoryAType。
func (ms *MachineSpec) Cat() MachineCategory {
	c, ok := ParseCategory(ms.Category)
	if !ok {
		return CategoryAType
	}
	return c
}

// HintItemByID 依識別碼查詢示唆項目，跨所有 group。
func (ms *MachineSpec) HintItemByID(id string) (HintItem, bool) {
	for _, g := range ms.HintGroups {
		for _, it := range g.Items {
			if it.ID == id {
				return it, true
			}
		}
	}
	return HintItem{}, false
}
