package registry

import "math/big"

// Fee parameters. Read-only from the client's perspective; baked in here the
// same way the contract bakes them into immutable storage.
const (
	// BaseBps is the denominator for all bps rates.
	BaseBps = 10000

	// PayEthBps / PayAutoBps: proportional fee on the forwarded notional,
	// charged in the currency selected by Request.PayWithAUTO.
	PayEthBps  = 30
	PayAutoBps = 20

	// GasOverheadEth / GasOverheadAuto: fixed gas units added to the
	// measured cost before reimbursement. The AUTO path pays for an extra
	// token transfer, hence the larger overhead.
	GasOverheadEth  = 100000
	GasOverheadAuto = 140000
)

// ExecutorPayout computes what the executor is owed for a successful
// execution: (gasUsed + overhead) * gasPrice, plus notional * bps / BaseBps.
// The notional is the value forwarded with the call (ethForCall).
func ExecutorPayout(payWithAUTO bool, gasUsed uint64, gasPrice, notional *big.Int) *big.Int {
	overhead := uint64(GasOverheadEth)
	bps := int64(PayEthBps)
	if payWithAUTO {
		overhead = GasOverheadAuto
		bps = PayAutoBps
	}

	gasEquiv := new(big.Int).SetUint64(gasUsed + overhead)
	gasEquiv.Mul(gasEquiv, gasPrice)

	fee := new(big.Int).Mul(notional, big.NewInt(bps))
	fee.Div(fee, big.NewInt(BaseBps))

	return gasEquiv.Add(gasEquiv, fee)
}
