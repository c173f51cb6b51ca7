package main

import (
	"crypto/rand"
	"flag"
	"fmt"
	"log"
	"math"
	"math/big"
	"strconv"

	"github.com/zintix-labs/judgelab"
	"github.com/zintix-labs/judgelab/demo/demo_configs"
	"github.com/zintix-labs/judgelab/spec"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var cfg *config = new(config)

type config struct {
	name      string
	id        spec.MID
	setting   string
	worker    int
	games     int
	sessions  int
	est       bool
	seed      uint64
	pprofmode string
}

type midFlag struct{ p *spec.MID }

func (f midFlag) String() string { return fmt.Sprint(uint(*f.p)) }
func (f midFlag) Set(s string) error {
	u, err := strconv.ParseUint(s, 10, 0)
	if err != nil {
		return err
	}
	*f.p = spec.MID(uint(u))
	return nil
}

func bindVar() {
	// 綁定 Flag 到本地變數的指標 (&)
	flag.Var(midFlag{&cfg.id}, "machine", "target machine id")
	flag.StringVar(&cfg.setting, "setting", "1", "true setting to simulate")
	flag.IntVar(&cfg.worker, "worker", 1, "number of workers")
	flag.IntVar(&cfg.games, "games", 3000, "games per session")
	flag.IntVar(&cfg.sessions, "sessions", 10000, "sessions per worker")
	flag.BoolVar(&cfg.est, "est", false, "emit per-session estimator stats")
	flag.Uint64Var(&cfg.seed, "seed", 0, "uint64 seed for random number generator")
	flag.StringVar(&cfg.pprofmode, "p", "", "pprof: '', cpu, heap, allocs")

	flag.Parse()

	// given seed illeagel -> default seed
	if cfg.seed == 0 {
		seed, err := rand.Int(rand.Reader, big.NewInt(math.MaxInt64))
		if err != nil {
			log.Fatal(err)
		}
		cfg.seed = seed.Uint64()
	}
}

// 這裡解析並分支要執行的模擬器
func executeSimulator() {
	cfg.valid() // 基本檢查

	lab, err := judgelab.NewAuto(
		judgelab.Configs(demo_configs.FS),
	)
	if err != nil {
		log.Fatal(err)
	}
	s, err := lab.NewSimulator(cfg.id, cfg.seed)
	if err != nil {
		log.Fatal(err)
	}
	ent, _ := lab.EntryById(cfg.id)
	cfg.name = ent.Name
	// 至此確保可執行
	green := "\033[1;32m"
	reset := "\033[0m"
	p := message.NewPrinter(language.English)

	if cfg.est { // 收斂 + 逐 session 命中估計
		p.Printf("%s[WORKERS:%d] [MACHINE:%s] [SETTING:%s GAMES:%d SESSIONS:%d]%s\n", green, cfg.worker, cfg.name, cfg.setting, cfg.games, cfg.worker*cfg.sessions, reset)
		st, est, used, err := s.SimEst(cfg.setting, cfg.games, cfg.sessions, cfg.worker, true)
		if err != nil {
			log.Fatal(err)
		}
		st.StdOut(used)
		est.Out()
	} else if cfg.worker == 1 { // 單線程收斂模擬
		p.Printf("%s[MACHINE:%s] [SETTING:%s GAMES:%d SESSIONS:%d]%s\n", green, cfg.name, cfg.setting, cfg.games, cfg.sessions, reset)
		st, used, err := s.Sim(cfg.setting, cfg.games, cfg.sessions, true)
		if err != nil {
			log.Fatal(err)
		}
		st.StdOut(used)
	} else {
		p.Printf("%s[WORKERS:%d] [MACHINE:%s] [SETTING:%s GAMES:%d SESSIONS:%d]%s\n", green, cfg.worker, cfg.name, cfg.setting, cfg.games, cfg.worker*cfg.sessions, reset)
		st, used, err := s.SimMP(cfg.setting, cfg.games, cfg.sessions, cfg.worker, true) // 併發
		if err != nil {
			log.Fatal(err)
		}
		st.StdOut(used)
	}
}

func (cfg *config) valid() {
	p := message.NewPrinter(language.English)

	// 工作協程檢查(併發數)
	if cfg.worker < 1 {
		log.Fatal("value err : workers must > 0")
	}

	// 局數檢查
	if cfg.games < 1 {
		log.Fatal("value err : games must > 0")
	}

	// session 檢查
	if cfg.sessions < 1 {
		log.Fatal("value err : sessions must > 0")
	}

	// 一個 session 超過 30000 局已經跨日，對收斂統計沒有額外貢獻
	if cfg.games > 30000 {
		p.Printf("too much games per session: %d resized to 30k games\n", cfg.games)
		cfg.games = 30000
	}
}
