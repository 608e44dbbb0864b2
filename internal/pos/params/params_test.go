package params

import (
	"testing"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
)

func TestMainNet_Validate(t *testing.T) {
	if err := MainNet.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if got := MainNet.TargetTimespan / MainNet.TargetSpacing; got != 15 {
		t.Fatalf("retarget interval = %d, want 15", got)
	}
	if got := MainNet.PruneThreshold(); got != 320322 {
		t.Fatalf("PruneThreshold() = %d, want 320322", got)
	}
}

func TestParams_Checkpoint(t *testing.T) {
	tests := []struct {
		name   string
		height uint32
		want   string
		found  bool
	}{
		{name: "genesis", height: 0, want: "000001faef25dec4fbcf906e6242621df2c183bf232f263d0ba5b101911e4563", found: true},
		{name: "fork", height: 319002, want: "0011494d03b2cdf1ecfc8b0818f1e0ef7ee1d9e9b3d1279c10d35456bc3899ef", found: true},
		{name: "unknown", height: 7},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			got, ok := MainNet.Checkpoint(tt.height)
			if ok != tt.found {
				t.Fatalf("Checkpoint(%d) found = %v, want %v", tt.height, ok, tt.found)
			}
			if !ok {
				if got != (chainhash.Hash{}) {
					t.Fatalf("Checkpoint(%d) = %s, want zero hash", tt.height, got)
				}
				return
			}
			if got.String() != tt.want {
				t.Fatalf("Checkpoint(%d) = %s, want %s", tt.height, got, tt.want)
			}
		})
	}

	if !MainNet.IsGenesis(MainNet.Checkpoints[0].Hash) {
		t.Fatalf("genesis checkpoint not recognised")
	}
}

func TestParams_ValidateRejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(p *Params)
	}{
		{name: "zero spacing", mutate: func(p *Params) { p.TargetSpacing = 0 }},
		{name: "timespan below spacing", mutate: func(p *Params) { p.TargetTimespan = 10 }},
		{name: "zero modifier interval", mutate: func(p *Params) { p.ModifierInterval = 0 }},
		{name: "zero ratio", mutate: func(p *Params) { p.ModifierIntervalRatio = 0 }},
		{name: "zero coin", mutate: func(p *Params) { p.CoinUnit = 0 }},
		{name: "zero pow limit", mutate: func(p *Params) { p.PowLimitBits = 0 }},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			p := MainNet
			tt.mutate(&p)
			if err := p.Validate(); err == nil {
				t.Fatalf("Validate() error = nil, want error")
			}
		})
	}
}

func TestByName(t *testing.T) {
	for _, name := range []string{"", "mainnet", "regtest"} {
		p, ok := ByName(name)
		if !ok {
			t.Fatalf("ByName(%q) not found", name)
		}
		if err := p.Validate(); err != nil {
			t.Fatalf("ByName(%q).Validate() error = %v", name, err)
		}
	}
	if _, ok := ByName("testnet"); ok {
		t.Fatalf("ByName(testnet) found, want unknown")
	}
	if got := RegTest.PruneThreshold(); got != 420 {
		t.Fatalf("RegTest.PruneThreshold() = %d, want 420", got)
	}
}
