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

package slump

import "math"

// Point 圖面上的一個像素座標點。
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// CalibPoint 一個軸校正點：像素 Y 對應的枚數值。
type CalibPoint struct {
	Y     float64 `json:"y"`
	Value float64 `json:"value"`
}

// Axis 縱軸校正：上下兩個校正點決定 像素Y → 枚數 的線性映射。
type Axis struct {
	Top    CalibPoint `json:"top"`
	Bottom CalibPoint `json:"bottom"`
}

// Valid 校正是否可用：Y 跨距與枚數跨距都不得為零。
func (a Axis) Valid() bool {
	if math.IsNaN(a.Top.Y) || math.IsNaN(a.Bottom.Y) ||
		math.IsNaN(a.Top.Value) || math.IsNaN(a.Bottom.Value) {
		return false
	}
	return a.Top.Y != a.Bottom.Y && a.Top.Value != a.Bottom.Value
}

// ValueAt 把像素 Y 線性換算為枚數值。呼叫前需確認 Valid()。
//
// 校正合約：Top 是帶標示值的軸格線、Bottom 是基準線（0 枚線）；
// Bottom.Value 只參與 Range() 的範圍計算，不參與內插。
// 這是沿用原始產品的校正語意，畫面上的圖通常以 0 枚線為下校正點。
func (a Axis) ValueAt(y float64) float64 {
	return a.Top.Value * (a.Bottom.Y - y) / (a.Bottom.Y - a.Top.Y)
}

// Range 軸覆蓋的枚數範圍（恆為正）。
func (a Axis) Range() float64 {
	return math.Abs(a.Top.Value - a.Bottom.Value)
}

// Normalized 已轉為枚數差、以視窗起點錨定的序列。per-request、不落地。
type Normalized struct {
	Series    []float64 `json:"series"`
	AxisRange float64   `json:"axis_range"`
}

// Normalize 把畫線得到的像素折線轉為差枚序列。
//
//  1. 只保留 x ∈ [startX, endX] 的點（startX > endX 時自動交換）。
//  2. 以「x 最接近 startX 的點」為錨，序列值 = 各點枚數 − 錨點枚數。
//
// 校正不可用或視窗內不足 2 點時回傳空序列（零值 Normalized），
// 下游一律把空序列當作零信心訊號處理。
func Normalize(pts []Point, axis Axis, startX, endX float64) Normalized {
	if !axis.Valid() {
		return Normalized{}
	}
	if startX > endX {
		startX, endX = endX, startX
	}

	win := make([]Point, 0, len(pts))
	for _, p := range pts {
		if math.IsNaN(p.X) || math.IsNaN(p.Y) {
			continue
		}
		if p.X < startX || p.X > endX {
			continue
		}
		win = append(win, p)
	}
	if len(win) < 2 {
		return Normalized{}
	}

	// 錨點：x 最接近 startX。
	anchor := win[0]
	best := math.Abs(win[0].X - startX)
	for _, p := range win[1:] {
		if d := math.Abs(p.X - startX); d < best {
			best = d
			anchor = p
		}
	}
	anchorVal := axis.ValueAt(anchor.Y)

	series := make([]float64, 0, len(win))
	for _, p := range win {
		series = append(series, axis.ValueAt(p.Y)-anchorVal)
	}
	return Normalized{Series: series, AxisRange: axis.Range()}
}
