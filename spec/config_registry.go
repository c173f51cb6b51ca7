package spec

import (
	"encoding/json"

	"github.com/zintix-labs/judgelab/errs"
	"gopkg.in/yaml.v3"
)

// GetMachineSpecByYAML
// 會讀取 YAML 設定、初始化各子設定並執行基本檢查後回傳。
func GetMachineSpecByYAML(data []byte) (*MachineSpec, error) {
	ms := &MachineSpec{}
	if err := yaml.Unmarshal(data, ms); err != nil {
		return nil, errs.Wrap(err, "failed to unmarshall yaml")
	}

	// 設定檔初始化
	if err := ms.init(); err != nil {
		return nil, errs.Wrap(err, "machine spec initialized err")
	}

	return ms, nil
}

// GetMachineSpecByJSON
// 會讀取 Json 設定、初始化各子設定並執行基本檢查後回傳
func GetMachineSpecByJSON(data []byte) (*MachineSpec, error) {
	ms := &MachineSpec{}
	if err := json.Unmarshal(data, ms); err != nil {
		return nil, errs.Wrap(err, "can not unmarshall json byte")
	}

	// 設定檔初始化
	if err := ms.init(); err != nil {
		return nil, errs.Wrap(err, "machine spec initialized err")
	}

	return ms, nil
}
