package bundle

import (
	"context"
	"crypto/ecdsa"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math/big"
	"net/http"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/sugawarayuuta/sonnet"

	"github.com/meltingclock/autoreq_v1/internal/telemetry"
)

// Bundler submits request executions through a private relay. A profitable
// execution broadcast to the public mempool invites frontrunning by other
// keepers; a bundle reaches the builder directly.
type Bundler struct {
	client     *ethclient.Client
	privateKey *ecdsa.PrivateKey
	relayKey   *ecdsa.PrivateKey
	endpoint   string
	chainID    *big.Int
}

type Bundle struct {
	Transactions []*types.Transaction
	BlockNumber  *big.Int
	MinTimestamp uint64
	MaxTimestamp uint64
}

type BundleResponse struct {
	BundleHash string `json:"bundleHash"`
}

type SimulationResponse struct {
	Success          bool   `json:"success"`
	Error            string `json:"error,omitempty"`
	StateBlockNumber uint64 `json:"stateBlockNumber"`
	TotalGasUsed     uint64 `json:"totalGasUsed"`
	Results          []struct {
		TxHash   string `json:"txHash"`
		GasUsed  uint64 `json:"gasUsed"`
		GasPrice string `json:"gasPrice"`
		Error    string `json:"error,omitempty"`
	} `json:"results"`
}

func NewBundler(client *ethclient.Client, privateKey *ecdsa.PrivateKey, chainID *big.Int) (*Bundler, error) {
	// Relay auth uses a throwaway identity, separate from the keeper key
	relayKey, err := crypto.GenerateKey()
	if err != nil {
		return nil, fmt.Errorf("generate relay key: %w", err)
	}

	endpoint := "https://relay.flashbots.net"
	if chainID.Int64() == 5 { // Goerli
		endpoint = "https://relay-goerli.flashbots.net"
	}
	return &Bundler{
		client:     client,
		privateKey: privateKey,
		relayKey:   relayKey,
		endpoint:   endpoint,
		chainID:    chainID,
	}, nil
}

// NewExecutionBundle wraps one signed execution transaction.
func NewExecutionBundle(execTx *types.Transaction) *Bundle {
	return &Bundle{Transactions: []*types.Transaction{execTx}}
}

// SendBundle submits a bundle to the relay for the target block.
func (b *Bundler) SendBundle(ctx context.Context, bundle *Bundle) (string, error) {
	currentBlock, err := b.client.BlockNumber(ctx)
	if err != nil {
		return "", fmt.Errorf("get block number: %w", err)
	}

	if bundle.BlockNumber == nil {
		bundle.BlockNumber = new(big.Int).SetUint64(currentBlock + 1)
	}

	txs, err := encodeTxs(bundle.Transactions)
	if err != nil {
		return "", err
	}

	params := map[string]interface{}{
		"txs":         txs,
		"blockNumber": hexutil.EncodeBig(bundle.BlockNumber),
	}

	if bundle.MinTimestamp > 0 {
		params["minTimestamp"] = bundle.MinTimestamp
	}
	if bundle.MaxTimestamp > 0 {
		params["maxTimestamp"] = bundle.MaxTimestamp
	}

	result, err := b.callRelay(ctx, "eth_sendBundle", []interface{}{params})
	if err != nil {
		return "", fmt.Errorf("send bundle: %w", err)
	}

	var resp BundleResponse
	if err := sonnet.Unmarshal(result, &resp); err != nil {
		return "", fmt.Errorf("parse response: %w", err)
	}

	telemetry.Infof("[bundle] sent bundle %s for block %d", resp.BundleHash, bundle.BlockNumber.Uint64())
	return resp.BundleHash, nil
}

// SimulateBundle dry-runs a bundle against the next block's state.
func (b *Bundler) SimulateBundle(ctx context.Context, bundle *Bundle) (*SimulationResponse, error) {
	currentBlock, err := b.client.BlockNumber(ctx)
	if err != nil {
		return nil, fmt.Errorf("get block number: %w", err)
	}

	txs, err := encodeTxs(bundle.Transactions)
	if err != nil {
		return nil, err
	}

	params := map[string]interface{}{
		"txs":              txs,
		"blockNumber":      hexutil.EncodeBig(new(big.Int).SetUint64(currentBlock + 1)),
		"stateBlockNumber": "latest",
	}

	result, err := b.callRelay(ctx, "eth_callBundle", []interface{}{params})
	if err != nil {
		return nil, fmt.Errorf("simulate bundle: %w", err)
	}

	var resp SimulationResponse
	if err := sonnet.Unmarshal(result, &resp); err != nil {
		return nil, fmt.Errorf("parse simulation: %w", err)
	}

	return &resp, nil
}

func encodeTxs(transactions []*types.Transaction) ([]string, error) {
	var txs []string
	for _, tx := range transactions {
		data, err := tx.MarshalBinary()
		if err != nil {
			return nil, fmt.Errorf("marshal tx: %w", err)
		}
		txs = append(txs, hexutil.Encode(data))
	}
	return txs, nil
}

// callRelay makes an authenticated JSON-RPC call to the relay.
func (b *Bundler) callRelay(ctx context.Context, method string, params []interface{}) (json.RawMessage, error) {
	payload := map[string]interface{}{
		"jsonrpc": "2.0",
		"id":      1,
		"method":  method,
		"params":  params,
	}

	body, err := sonnet.Marshal(payload)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, "POST", b.endpoint, strings.NewReader(string(body)))
	if err != nil {
		return nil, err
	}

	signature, err := b.signRelay(body)
	if err != nil {
		return nil, err
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Flashbots-Signature", signature)

	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var result struct {
		Result json.RawMessage `json:"result"`
		Error  *struct {
			Code    int    `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}

	if err := sonnet.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, err
	}

	if result.Error != nil {
		return nil, fmt.Errorf("relay error %d: %s", result.Error.Code, result.Error.Message)
	}

	return result.Result, nil
}

// signRelay builds the X-Flashbots-Signature header value.
func (b *Bundler) signRelay(body []byte) (string, error) {
	hasher := crypto.Keccak256Hash(body)

	sig, err := crypto.Sign(hasher.Bytes(), b.relayKey)
	if err != nil {
		return "", err
	}

	addr := crypto.PubkeyToAddress(b.relayKey.PublicKey)
	return fmt.Sprintf("%s:0x%s", addr.Hex(), hex.EncodeToString(sig)), nil
}
