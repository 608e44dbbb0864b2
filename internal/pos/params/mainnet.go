package params

import (
	"github.com/btcsuite/btcd/btcutil"
)

var mainNetCheckpoints = []Checkpoint{
	{0, mustHash("000001faef25dec4fbcf906e6242621df2c183bf232f263d0ba5b101911e4563")},
	{1500, mustHash("000000000079987db951032e017b8e337016296bffdb83ae87dd7fc79c26668d")},
	{5001, mustHash("2fac9021be0c311e7b6dc0933a72047c70f817e2eb1e01bede011193ad1b28bc")},
	{5500, mustHash("00000000001636e6cb9747abc92354385f43d6580ecf7326269aa92bd5b2beac")},
	{10000, mustHash("0000000000827e4dc601f7310a91c45af8df0dfc1b6fa1dfa5b896cb00c8767c")},
	{14000, mustHash("a82c673016dcb5ebf6dad3e772a22848454e4a32568b02a994a60612ba68a3b1")},
	{37000, mustHash("a36f0013842adeb27aa70d20541925364879fdec25e84d6b4c4b256b71e48791")},
	{38424, mustHash("8d82bf5332ea5540ae7aae53b77c4bde6ce96f00a30358b755ba3f15ee01096f")},
	{38425, mustHash("62bf2e9701226d2f88d9fa99d650bd81f3faf2e56f305b7d71ccd1e7aa9c3075")},
	{61100, mustHash("dbb6934ec506b0c6d96f3c1ab36cd8831c966446a15c128486361399a8fdc4c2")},
	{80000, mustHash("a47cec53d42bc095b7b6e10d96a221bd85c0796f8cdcf157d96cf0d91e6a52b2")},
	{254348, mustHash("9bf8d9bd757d3ef23d5906d70567e5f0da93f1e0376588c8d421a95e2421838b")},
	{319002, mustHash("0011494d03b2cdf1ecfc8b0818f1e0ef7ee1d9e9b3d1279c10d35456bc3899ef")},
}

// MainNet holds the production network parameters.
var MainNet = Params{
	Name:                  "mainnet",
	GenesisHash:           mainNetCheckpoints[0].Hash,
	PowLimitBits:          0x1e0fffff,
	TargetTimespan:        16 * 60,
	TargetSpacing:         64,
	ModifierInterval:      10 * 60,
	ModifierIntervalRatio: 3,
	StakeMinAge:           8 * 60 * 60,
	StakeMinConfirmations: 500,
	ForkHeight:            319000,
	RetargetFixHeight:     38424,
	ProtocolV3Time:        1444028400,
	CoinUnit:              btcutil.SatoshiPerBitcoin,
	MinimumStoreDepth:     1322,
	Checkpoints:           mainNetCheckpoints,
}

// RegTest keeps the mainnet algorithms but lowers the fork height and confirmation depth so short local
// chains reach the V2 kernel. The store depth still covers a whole modifier selection window at the
// target spacing.
var RegTest = Params{
	Name:                  "regtest",
	PowLimitBits:          0x207fffff,
	TargetTimespan:        16 * 60,
	TargetSpacing:         64,
	ModifierInterval:      10 * 60,
	ModifierIntervalRatio: 3,
	StakeMinAge:           8 * 60 * 60,
	StakeMinConfirmations: 10,
	ForkHeight:            20,
	RetargetFixHeight:     0,
	ProtocolV3Time:        0,
	CoinUnit:              btcutil.SatoshiPerBitcoin,
	MinimumStoreDepth:     400,
}

// ByName resolves a network name to its parameters.
func ByName(name string) (Params, bool) {
	switch name {
	case MainNet.Name, "":
		return MainNet, true
	case RegTest.Name:
		return RegTest, true
	default:
		return Params{}, false
	}
}
