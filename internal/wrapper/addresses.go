package wrapper

import "github.com/ethereum/go-ethereum/common"

// Per-chain deployment preset: the registry, the stop-limit wrapper that
// requests target, and the receiver that rounds fill output up to the
// maker's amountOut.
type Preset struct {
	Registry        common.Address
	StopLimitOrder  common.Address
	RoundUpReceiver common.Address
	AutoToken       common.Address
}

var presets = map[uint64]Preset{
	1: {
		Registry:        common.HexToAddress("0x18d087F8D22D409D3CD366AF00BD7AeF0BF225Db"),
		StopLimitOrder:  common.HexToAddress("0xf6f9B2A1F80F1A80Ad4C9Eb590a4EC8A1D3cEBC7"),
		RoundUpReceiver: common.HexToAddress("0x1C9B033F1c6f096A7Ac5Ab7c320F19c5B26D1ba1"),
		AutoToken:       common.HexToAddress("0x4c19596f5aAfF459fA38B0f7eD92F11AE6543784"),
	},
	3: { // ropsten test deployment
		Registry:        common.HexToAddress("0xB82Ae7779aB1742734fCE32A4b7fDBCf020F2667"),
		StopLimitOrder:  common.HexToAddress("0x5afc709047E113267f46e47f6cdeA6466614D99C"),
		RoundUpReceiver: common.HexToAddress("0x5afc709047E113267f46e47f6cdeA6466614D99C"),
		AutoToken:       common.HexToAddress("0x7E9c7a4a4a48bBccBf97a30f8dDA3B4cc597Cdd0"),
	},
	43114: {
		Registry:        common.HexToAddress("0x68FCbECa74A7E5D386f74E14682c94DE0e1bC56b"),
		StopLimitOrder:  common.HexToAddress("0x94486317E9708Ef0Bb99bB0E915A94D83e9D2B23"),
		// Avalanche has its own profit receiver, not the shared round-up one.
		RoundUpReceiver: common.HexToAddress("0x802290173908ed30A9642D6872e252Ef4f6e59A2"),
		AutoToken:       common.HexToAddress("0x68FCbECa74A7E5D386f74E14682c94DE0e1bC56c"),
	},
}

// PresetFor returns the deployment preset for a chain.
func PresetFor(chainID uint64) (Preset, bool) {
	p, ok := presets[chainID]
	return p, ok
}
