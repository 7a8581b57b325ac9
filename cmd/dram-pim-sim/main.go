// Command dram-pim-sim drives a System with a synthetic transaction
// generator and prints epoch/final stats.
package main

import (
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os"

	"github.com/rs/zerolog"

	drampim "github.com/drampim/dram-pim"
	"github.com/drampim/dram-pim/internal/logging"
)

func main() {
	var (
		memType     = flag.String("mem-type", "DRAM", "Memory type: DRAM, NEWTON, NEUPIMS")
		queueStruct = flag.String("queue-structure", "PER_BANK", "Command queue structure: PER_BANK, PER_RANK")
		cycles      = flag.Uint64("cycles", 1_000_000, "Number of cycles to run")
		channels    = flag.Int("channels", 1, "Number of channels")
		pimRate     = flag.Float64("pim-rate", 0.1, "Fraction of generated traffic that is a PIM burst (NEWTON/NEUPIMS only)")
		seed        = flag.Int64("seed", 1, "Traffic generator RNG seed")
		verbose     = flag.Bool("v", false, "Verbose output")
	)
	flag.Parse()

	logCfg := logging.DefaultConfig()
	if *verbose {
		logCfg.Level = zerolog.DebugLevel
	}
	logger := logging.NewLogger(logCfg)
	logging.SetDefault(logger)

	cfg := drampim.DefaultConfig(*memType)
	cfg.Channels = *channels
	cfg.QueueStructure = *queueStruct

	sys, err := drampim.NewSystem(cfg, logger, drampim.NewMetrics())
	if err != nil {
		log.Fatalf("failed to build system: %v", err)
	}

	var reads, writes uint64
	sys.RegisterCallbacks(
		func(addr uint64) { reads++ },
		func(addr uint64) { writes++ },
	)

	rng := rand.New(rand.NewSource(*seed))
	pim := memTypeHasPIM(*memType)

	for cycle := uint64(0); cycle < *cycles; cycle++ {
		if rng.Float64() < 0.3 {
			generateTraffic(sys, rng, pim, *pimRate)
		}
		sys.Tick()
		if sys.Clock()%cfg.EpochPeriod == 0 {
			if err := sys.PrintEpochStats(); err != nil {
				fmt.Fprintln(os.Stderr, "epoch stats:", err)
			}
		}
	}

	if err := sys.PrintFinalStats(); err != nil {
		fmt.Fprintln(os.Stderr, "final stats:", err)
	}
	fmt.Printf("reads=%d writes=%d avg_pim_cycles=%.2f\n", reads, writes, sys.AvgPIMCycles())
}

func memTypeHasPIM(memType string) bool {
	return memType == "NEWTON" || memType == "NEUPIMS"
}

// generateTraffic submits one synthetic transaction, mostly ordinary
// read/write and occasionally a PIM compute burst when the memory type
// supports it.
func generateTraffic(sys *drampim.System, rng *rand.Rand, pimCapable bool, pimRate float64) {
	if pimCapable && rng.Float64() < pimRate {
		header := drampim.PIMHeader{
			Channel:    rng.Intn(sys.NumChannels()),
			Row:        uint32(rng.Intn(1 << 14)),
			NumComps:   uint16(1 + rng.Intn(8)),
			NumReadRes: uint16(rng.Intn(4)),
		}
		sys.AddTransaction(drampim.EncodePIMHeader(header), drampim.TxnCompsReadRes)
		return
	}
	a := rng.Uint64() % (1 << 24)
	if rng.Intn(2) == 0 {
		sys.AddTransaction(a, drampim.TxnRead)
	} else {
		sys.AddTransaction(a, drampim.TxnWrite)
	}
}
