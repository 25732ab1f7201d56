package oracle

import "github.com/ethereum/go-ethereum/common"

// Chainlink token/USD feed presets. Stop-loss triggers only work for pairs
// where both sides have an entry here.
func Mainnet() *Registry {
	r := NewRegistry(1, common.HexToAddress("0x00632CFe43d8F9f8E6cD0d39Ffa3D4fa7ec73CFB"))

	// WETH
	r.AddFeed(common.HexToAddress("0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2"), Feed{
		Aggregator: common.HexToAddress("0x5f4eC3Df9cbd43714FE2740f5E3616155c5b8419"), // ETH/USD
		Decimals:   8,
	})
	// USDC
	r.AddFeed(common.HexToAddress("0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48"), Feed{
		Aggregator: common.HexToAddress("0x8fFfFfd4AfB6115b954Bd326cbe7B4BA576818f6"), // USDC/USD
		Decimals:   8,
	})
	// DAI
	r.AddFeed(common.HexToAddress("0x6B175474E89094C44Da98b954EedeAC495271d0F"), Feed{
		Aggregator: common.HexToAddress("0xAed0c38402a5d19df6E4c03F4E2DceD6e29c1ee9"), // DAI/USD
		Decimals:   8,
	})
	// WBTC (priced off BTC/USD)
	r.AddFeed(common.HexToAddress("0x2260FAC5E5542a773Aa44fBCfeDf7C193bc2C599"), Feed{
		Aggregator: common.HexToAddress("0xF4030086522a5bEEa4988F8cA5B36dbC97BeE88c"), // BTC/USD
		Decimals:   8,
	})
	return r
}

func Avalanche() *Registry {
	r := NewRegistry(43114, common.HexToAddress("0x9D0464996170c6B9e75eED71c68B99dDEDf279e8"))

	// WAVAX
	r.AddFeed(common.HexToAddress("0xB31f66AA3C1e785363F0875A1B74E27b85FD66c7"), Feed{
		Aggregator: common.HexToAddress("0x0A77230d17318075983913bC2145DB16C7366156"), // AVAX/USD
		Decimals:   8,
	})
	// USDC.e
	r.AddFeed(common.HexToAddress("0xA7D7079b0FEaD91F3e65f86E8915Cb59c1a4C664"), Feed{
		Aggregator: common.HexToAddress("0xF096872672F44d6EBA71458D74fe67F9a77a23B9"), // USDC/USD
		Decimals:   8,
	})
	return r
}

// ForChain returns the feed registry for a chain, or false when stop-loss
// conditions are unavailable there.
func ForChain(chainID uint64) (*Registry, bool) {
	switch chainID {
	case 1:
		return Mainnet(), true
	case 43114:
		return Avalanche(), true
	default:
		return nil, false
	}
}
