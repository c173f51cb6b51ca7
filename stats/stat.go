package stats

import (
	"fmt"
	"io"
	"math"
	"strings"
	"time"

	"github.com/mattn/go-runewidth"
	"github.com/zintix-labs/judgelab/spec"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var lang language.Tag = language.English

// 信賴區間
type CI struct {
	Lo float64 `json:"Lo"`
	Hi float64 `json:"Hi"`
}

// PointStat 點估計 回傳 估計值 以及信賴區間
type PointStat struct {
	Hat float64 `json:"Hat"`
	CI  CI      `json:"CI"`
}

// ConvergenceReport 設定判別收斂報告
//
// 描述「在固定真實設定下跑 N 個 session，引擎多常把真實設定判對」。
type ConvergenceReport struct {
	Summary *SummaryReport `json:"Summary"`
	Hit     *HitReport     `json:"Hit"`
	Post    *PostReport    `json:"Post"`
	isDone  bool
}

type SummaryReport struct {
	MachineName string   `json:"MachineName"`
	MachineId   spec.MID `json:"MachineId"`
	TrueSetting string   `json:"TrueSetting"`
	Games       int      `json:"Games"`
	Sessions    int      `json:"Sessions"`
	BigTotal    int      `json:"BigTotal"`
	RegTotal    int      `json:"RegTotal"`
	BigRate     float64  `json:"BigRate"` // 1/x 表記用的 x；無 BIG 時為 0
	RegRate     float64  `json:"RegRate"`
}

// HitReport 判中統計
//
// Top1 = 真實設定佔後驗第一名；Top2 = 落在前兩名。
type HitReport struct {
	Top1     int       `json:"Top1"`
	Top2     int       `json:"Top2"`
	Top1Rate PointStat `json:"Top1Rate"`
	Top2Rate PointStat `json:"Top2Rate"`
}

// PostReport 真實設定後驗的分布統計
//
// 紀錄時只累積 sum / sqsum / 分桶計數，Done() 才轉成最終統計。
type PostReport struct {
	TrueMean    float64   `json:"TrueMean"`
	TrueStd     float64   `json:"TrueStd"`
	TrueSum     float64   `json:"TrueSum"`
	TrueSqSum   float64   `json:"TrueSqSum"`
	Bucket      []string  `json:"Bucket"`
	PostCollect []int     `json:"PostCollect"`
	PostDist    []float64 `json:"PostDist"`
}

// ============================================================
// ** 公開方法 **
// ============================================================

// Done 將累積計數轉換為最終統計結果並鎖定 isDone 標記。
//
// 紀錄過程只累積 int / 和，統計完成後請呼叫 Done 一次性計算結果。
func (c *ConvergenceReport) Done() {
	if c.isDone {
		return
	}
	n := c.Summary.Sessions

	c.Hit.Top1Rate = proportionPoint(c.Hit.Top1, n)
	c.Hit.Top2Rate = proportionPoint(c.Hit.Top2, n)

	c.Post.TrueMean = c.TrueMean()
	c.Post.TrueStd = c.TrueStd()

	dist := make([]float64, len(c.Post.PostCollect))
	if n > 0 {
		nf := float64(n)
		for i, k := range c.Post.PostCollect {
			dist[i] = float64(k) / nf
		}
	}
	c.Post.PostDist = dist

	c.isDone = true
}

// TrueMean 真實設定後驗的平均
func (c *ConvergenceReport) TrueMean() float64 {
	if c.Summary.Sessions == 0 {
		return 0
	}
	return c.Post.TrueSum / float64(c.Summary.Sessions)
}

// TrueStd 真實設定後驗的標準差
func (c *ConvergenceReport) TrueStd() float64 {
	n := c.Summary.Sessions
	if n < 2 {
		return 0
	}
	nf := float64(n)
	variance := (c.Post.TrueSqSum - c.Post.TrueSum*c.Post.TrueSum/nf) / (nf - 1)
	if variance < 0 {
		variance = 0
	}
	return math.Sqrt(variance)
}

func (c *ConvergenceReport) WriteWith(w io.Writer, rep ConvergenceRender) error {
	c.Done()
	return rep.Write(w, c)
}

func (c *ConvergenceReport) StdOut(ut time.Duration) {
	formatDuration(ut, c.Summary.Sessions)
	sk, sm := c.fmtBasic()
	str := fmtTable(c.Summary.MachineName, sk, sm)
	fmt.Println(str)
}

// ============================================================
// ** 內部方法 **
// ============================================================

func formatDuration(d time.Duration, sessions int) {
	p := message.NewPrinter(lang)
	if d < 0 {
		d = -d
	}
	sec := d.Seconds()
	if sec <= 0 {
		sec = 1e-9
	}
	sps := int(float64(sessions) / sec)
	if sec < 60.0 {
		p.Printf("used: %.2f seconds\nsps : %d sessions/sec\n", sec, sps)
		return
	}
	s := int(d.Seconds()) % 60
	m := int(d.Minutes()) % 60
	h := int(d.Hours())
	if h == 0 {
		s = s % 60
		p.Printf("used: %dm %ds\nsps : %d sessions/sec\n", m, s, sps)
		return
	}
	p.Printf("used: %dh:%dm:%ds\nsps : %d sessions/sec\n", h, m, s, sps)
}

// StdOut

func (c *ConvergenceReport) fmtBasic() ([]string, map[string]string) {
	p := message.NewPrinter(lang)
	basic := map[string]string{
		"Machine Name": p.Sprintf("%s", c.Summary.MachineName),
		"Machine ID":   fmt.Sprintf("%d", c.Summary.MachineId),
		"True Setting": c.Summary.TrueSetting,
		"Games":        p.Sprintf("%d", c.Summary.Games),
		"Sessions":     p.Sprintf("%d", c.Summary.Sessions),
		"BIG Rate":     fmtOnePerX(c.Summary.BigRate),
		"REG Rate":     fmtOnePerX(c.Summary.RegRate),
		"Top1 Hit":     fmtHatCIpct(c.Hit.Top1Rate),
		"Top2 Hit":     fmtHatCIpct(c.Hit.Top2Rate),
		"True Post":    p.Sprintf("%.4f", c.Post.TrueMean),
		"Post STD":     p.Sprintf("%.4f", c.Post.TrueStd),
	}
	keys := []string{"Machine Name", "Machine ID", "True Setting", "Games", "Sessions", "BIG Rate", "REG Rate", "Top1 Hit", "Top2 Hit", "True Post", "Post STD"}
	return keys, basic
}

func fmtOnePerX(x float64) string {
	if x <= 0 {
		return "-"
	}
	return fmt.Sprintf("1/%.1f", x)
}

func fmtTable(title string, keys []string, msg map[string]string) string {
	p := message.NewPrinter(lang)
	maxKeyLen := 0
	maxValLen := 0
	for k, m := range msg {
		if w := runewidth.StringWidth(k); w > maxKeyLen {
			maxKeyLen = w
		}
		if w := runewidth.StringWidth(m); w > maxValLen {
			maxValLen = w
		}
	}
	maxKeyLen += 2
	maxValLen += 2

	divider := "+" + strings.Repeat("-", maxKeyLen) + "+" + strings.Repeat("-", maxValLen) + "+\n"
	top := "+" + strings.Repeat("-", maxKeyLen+1+maxValLen) + "+\n"

	totalInner := maxKeyLen + maxValLen + 1
	titleW := runewidth.StringWidth(title)

	left := (totalInner - titleW) / 2
	right := totalInner - titleW - left

	fmtStr := top
	fmtStr += p.Sprintf("|%s%s%s|\n", blank(left), title, blank(right))
	fmtStr += divider
	for _, k := range keys {
		fmtStr += p.Sprintf("| %s%s | %s%s |\n", k, blank(maxKeyLen-2-runewidth.StringWidth(k)), msg[k], blank(maxValLen-2-runewidth.StringWidth(msg[k])))
	}
	fmtStr += divider

	return fmtStr
}

func blank(w int) string {
	if w < 1 {
		return ""
	}
	return strings.Repeat(" ", w)
}
