package drampim

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/drampim/dram-pim/internal/addr"
	"github.com/drampim/dram-pim/internal/command"
)

func TestNewSystemRejectsUnknownSelectors(t *testing.T) {
	cfg := DefaultConfig("DDR9")
	if _, err := NewSystem(cfg, nil, nil); !IsCode(err, ErrCodeConfigInvalid) {
		t.Errorf("Expected config error for unknown memory type, got %v", err)
	}

	cfg = DefaultConfig("DRAM")
	cfg.QueueStructure = "PER_CHIP"
	if _, err := NewSystem(cfg, nil, nil); !IsCode(err, ErrCodeConfigInvalid) {
		t.Errorf("Expected config error for unknown queue structure, got %v", err)
	}

	cfg = DefaultConfig("DRAM")
	cfg.Channels = 0
	if _, err := NewSystem(cfg, nil, nil); !IsCode(err, ErrCodeConfigInvalid) {
		t.Errorf("Expected config error for zero channels, got %v", err)
	}
}

func TestSystemWriteThenReadRoundTrip(t *testing.T) {
	sys, err := NewSystem(DefaultConfig("DRAM"), nil, nil)
	if err != nil {
		t.Fatalf("NewSystem failed: %v", err)
	}

	var reads, writes []uint64
	sys.RegisterCallbacks(
		func(a uint64) { reads = append(reads, a) },
		func(a uint64) { writes = append(writes, a) },
	)

	const address = uint64(1) << 20
	if !sys.AddTransaction(address, command.TxnWrite) {
		t.Fatal("Expected write transaction to be accepted")
	}
	if !sys.AddTransaction(address, command.TxnRead) {
		t.Fatal("Expected read transaction to be accepted")
	}

	for i := 0; i < 500 && (len(reads) == 0 || len(writes) == 0); i++ {
		sys.Tick()
	}

	if len(writes) != 1 || writes[0] != address {
		t.Errorf("Expected exactly one write completion for %#x, got %v", address, writes)
	}
	if len(reads) != 1 || reads[0] != address {
		t.Errorf("Expected exactly one read completion for %#x, got %v", address, reads)
	}
}

func TestSystemRejectsPIMTrafficWithoutPIMPath(t *testing.T) {
	sys, err := NewSystem(DefaultConfig("DRAM"), nil, nil)
	if err != nil {
		t.Fatalf("NewSystem failed: %v", err)
	}

	header := command.PIMHeader{Channel: 0, Row: 3, NumComps: 2}
	address := addr.EncodePIMHeader(header)
	if sys.WillAccept(address, command.TxnComp) {
		t.Error("Expected a plain-DRAM system to refuse PIM transactions")
	}
	if sys.AddTransaction(address, command.TxnComp) {
		t.Error("Expected AddTransaction to refuse a PIM transaction")
	}
}

func TestSystemRunsPIMBurstAndTracksPIMCycles(t *testing.T) {
	sys, err := NewSystem(DefaultConfig("NEWTON"), nil, nil)
	if err != nil {
		t.Fatalf("NewSystem failed: %v", err)
	}

	var reads []uint64
	sys.RegisterCallbacks(func(a uint64) { reads = append(reads, a) }, nil)

	header := command.PIMHeader{Channel: 0, Row: 3, NumComps: 2, NumReadRes: 1}
	address := addr.EncodePIMHeader(header)
	if !sys.AddTransaction(address, command.TxnComp) {
		t.Fatal("Expected PIM transaction to be accepted")
	}

	for i := 0; i < 2000 && len(reads) == 0; i++ {
		sys.Tick()
	}

	if len(reads) == 0 {
		t.Fatal("Expected PIM burst to produce read completions")
	}
	if sys.AvgPIMCycles() == 0 {
		t.Error("Expected nonzero average PIM cycles after a burst")
	}

	sys.ResetPIMCycles()
	if sys.AvgPIMCycles() != 0 {
		t.Error("Expected zero average PIM cycles after reset")
	}
}

func TestSystemStatsOutputIsValidJSON(t *testing.T) {
	cfg := DefaultConfig("NEUPIMS")
	cfg.Channels = 2
	sys, err := NewSystem(cfg, nil, nil)
	if err != nil {
		t.Fatalf("NewSystem failed: %v", err)
	}

	var buf bytes.Buffer
	sys.SetStatsWriter(&buf)

	if err := sys.PrintEpochStats(); err != nil {
		t.Fatalf("PrintEpochStats failed: %v", err)
	}
	var epoch []ChannelStats
	if err := json.Unmarshal(buf.Bytes(), &epoch); err != nil {
		t.Fatalf("Epoch stats are not a JSON array: %v", err)
	}
	if len(epoch) != 2 {
		t.Errorf("Expected one entry per channel, got %d", len(epoch))
	}

	buf.Reset()
	if err := sys.PrintFinalStats(); err != nil {
		t.Fatalf("PrintFinalStats failed: %v", err)
	}
	var final FinalStats
	if err := json.Unmarshal(buf.Bytes(), &final); err != nil {
		t.Fatalf("Final stats are not a JSON object: %v", err)
	}
	if len(final.Channels) != 2 {
		t.Errorf("Expected final stats to carry both channels, got %d", len(final.Channels))
	}
}
