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

// Package index 提供根路徑的服務自述頁。
package index

import (
	"encoding/json"
	"net/http"
)

type indexInfo struct {
	Service string   `json:"service"`
	Routes  []string `json:"routes"`
}

// IndexHandlerFn 回傳服務名稱與可用路由的簡表。
func IndexHandlerFn(w http.ResponseWriter, r *http.Request) {
	info := indexInfo{
		Service: "judgelab",
		Routes: []string{
			"GET|POST /v1/judge",
			"POST     /v1/graph/tap",
			"POST     /v1/graph/slump",
			"POST     /v1/predict",
			"GET      /v1/machines",
			"GET      /v1/machines/{mid}",
			"GET|POST /v1/sim",
		},
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(info)
}
