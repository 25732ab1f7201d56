package registry

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/meltingclock/autoreq_v1/internal/telemetry"
)

// Client drives a deployed registry contract: submission, cancellation,
// execution and the read surface. Writes are plain EIP-155 transactions
// signed with the keeper's key.
type Client struct {
	client     *ethclient.Client
	privateKey *ecdsa.PrivateKey
	from       common.Address
	registry   common.Address
	abi        abi.ABI
	chainID    *big.Int
}

func NewClient(client *ethclient.Client, privateKey *ecdsa.PrivateKey, from, registry common.Address) (*Client, error) {
	parsed, err := ParseABI()
	if err != nil {
		return nil, fmt.Errorf("parse registry ABI: %w", err)
	}
	chainID, err := client.ChainID(context.Background())
	if err != nil {
		return nil, fmt.Errorf("get chain ID: %w", err)
	}
	return &Client{
		client:     client,
		privateKey: privateKey,
		from:       from,
		registry:   registry,
		abi:        parsed,
		chainID:    chainID,
	}, nil
}

// NewReq submits a verified request. value is attached to the transaction
// and becomes the request's escrow; it must cover ethForCall.
func (c *Client) NewReq(ctx context.Context, target, referer common.Address, callData []byte, ethForCall, value *big.Int, verifySender, payWithAUTO bool) (common.Hash, error) {
	if value.Cmp(ethForCall) < 0 {
		return common.Hash{}, fmt.Errorf("%w: attached %s < ethForCall %s", ErrInsufficientFunds, value, ethForCall)
	}
	data, err := c.abi.Pack("newReq", target, referer, callData, ethForCall, verifySender, payWithAUTO)
	if err != nil {
		return common.Hash{}, fmt.Errorf("pack newReq: %w", err)
	}
	return c.send(ctx, value, data)
}

// NewHashedReqUnveri submits a bare commitment to the unverified queue.
func (c *Client) NewHashedReqUnveri(ctx context.Context, hash common.Hash) (common.Hash, error) {
	data, err := c.abi.Pack("newHashedReqUnveri", hash)
	if err != nil {
		return common.Hash{}, fmt.Errorf("pack newHashedReqUnveri: %w", err)
	}
	return c.send(ctx, big.NewInt(0), data)
}

func (c *Client) CancelHashedReq(ctx context.Context, id *big.Int, r Request) (common.Hash, error) {
	data, err := c.abi.Pack("cancelHashedReq", id, reqTuple(r))
	if err != nil {
		return common.Hash{}, fmt.Errorf("pack cancelHashedReq: %w", err)
	}
	return c.send(ctx, big.NewInt(0), data)
}

func (c *Client) CancelHashedReqUnveri(ctx context.Context, id *big.Int, r Request, prefix, suffix []byte) (common.Hash, error) {
	data, err := c.abi.Pack("cancelHashedReqUnveri", id, reqTuple(r), prefix, suffix)
	if err != nil {
		return common.Hash{}, fmt.Errorf("pack cancelHashedReqUnveri: %w", err)
	}
	return c.send(ctx, big.NewInt(0), data)
}

func (c *Client) ExecuteHashedReq(ctx context.Context, id *big.Int, r Request) (common.Hash, error) {
	data, err := c.abi.Pack("executeHashedReq", id, reqTuple(r))
	if err != nil {
		return common.Hash{}, fmt.Errorf("pack executeHashedReq: %w", err)
	}
	return c.send(ctx, big.NewInt(0), data)
}

func (c *Client) ExecuteHashedReqUnveri(ctx context.Context, id *big.Int, r Request, prefix, suffix []byte) (common.Hash, error) {
	data, err := c.abi.Pack("executeHashedReqUnveri", id, reqTuple(r), prefix, suffix)
	if err != nil {
		return common.Hash{}, fmt.Errorf("pack executeHashedReqUnveri: %w", err)
	}
	return c.send(ctx, big.NewInt(0), data)
}

// GetHashedReq reads the stored verified-queue hash at id.
func (c *Client) GetHashedReq(ctx context.Context, id *big.Int) (common.Hash, error) {
	var out common.Hash
	if err := c.call(ctx, &out, "getHashedReq", id); err != nil {
		return common.Hash{}, err
	}
	return out, nil
}

func (c *Client) GetHashedReqUnveri(ctx context.Context, id *big.Int) (common.Hash, error) {
	var out common.Hash
	if err := c.call(ctx, &out, "getHashedReqUnveri", id); err != nil {
		return common.Hash{}, err
	}
	return out, nil
}

func (c *Client) GetHashedReqsSlice(ctx context.Context, start, end *big.Int) ([]common.Hash, error) {
	var out []common.Hash
	if err := c.call(ctx, &out, "getHashedReqsSlice", start, end); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) GetHashedReqsUnveriSlice(ctx context.Context, start, end *big.Int) ([]common.Hash, error) {
	var out []common.Hash
	if err := c.call(ctx, &out, "getHashedReqsUnveriSlice", start, end); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) GetHashedReqsLen(ctx context.Context) (*big.Int, error) {
	out := new(big.Int)
	if err := c.call(ctx, &out, "getHashedReqsLen"); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) GetHashedReqsUnveriLen(ctx context.Context) (*big.Int, error) {
	out := new(big.Int)
	if err := c.call(ctx, &out, "getHashedReqsUnveriLen"); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) GetReqCountOf(ctx context.Context, addr common.Address) (*big.Int, error) {
	out := new(big.Int)
	if err := c.call(ctx, &out, "getReqCountOf", addr); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) GetExecCountOf(ctx context.Context, addr common.Address) (*big.Int, error) {
	out := new(big.Int)
	if err := c.call(ctx, &out, "getExecCountOf", addr); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) GetReferalCountOf(ctx context.Context, addr common.Address) (*big.Int, error) {
	out := new(big.Int)
	if err := c.call(ctx, &out, "getReferalCountOf", addr); err != nil {
		return nil, err
	}
	return out, nil
}

// Constant reads a fee parameter by its on-chain name, e.g. "BASE_BPS".
func (c *Client) Constant(ctx context.Context, name string) (*big.Int, error) {
	out := new(big.Int)
	if err := c.call(ctx, &out, name); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) call(ctx context.Context, out interface{}, method string, args ...interface{}) error {
	data, err := c.abi.Pack(method, args...)
	if err != nil {
		return fmt.Errorf("pack %s: %w", method, err)
	}
	res, err := c.client.CallContract(ctx, ethereum.CallMsg{To: &c.registry, Data: data}, nil)
	if err != nil {
		return fmt.Errorf("call %s: %w", method, err)
	}
	vals, err := c.abi.Unpack(method, res)
	if err != nil {
		return fmt.Errorf("unpack %s: %w", method, err)
	}
	if len(vals) != 1 {
		return fmt.Errorf("unpack %s: want 1 value, got %d", method, len(vals))
	}
	return assign(out, vals[0])
}

func assign(out, val interface{}) error {
	switch dst := out.(type) {
	case *common.Hash:
		b, ok := val.([32]byte)
		if !ok {
			return fmt.Errorf("unexpected return type %T", val)
		}
		*dst = common.Hash(b)
	case *[]common.Hash:
		bs, ok := val.([][32]byte)
		if !ok {
			return fmt.Errorf("unexpected return type %T", val)
		}
		hashes := make([]common.Hash, len(bs))
		for i, b := range bs {
			hashes[i] = common.Hash(b)
		}
		*dst = hashes
	case **big.Int:
		v, ok := val.(*big.Int)
		if !ok {
			return fmt.Errorf("unexpected return type %T", val)
		}
		*dst = v
	default:
		return fmt.Errorf("unsupported output type %T", out)
	}
	return nil
}

func (c *Client) send(ctx context.Context, value *big.Int, data []byte) (common.Hash, error) {
	nonce, err := c.client.PendingNonceAt(ctx, c.from)
	if err != nil {
		return common.Hash{}, fmt.Errorf("pending nonce: %w", err)
	}
	gasPrice, err := c.client.SuggestGasPrice(ctx)
	if err != nil {
		return common.Hash{}, fmt.Errorf("suggest gas price: %w", err)
	}

	tx := types.NewTransaction(
		nonce,
		c.registry,
		value,
		uint64(600000), // registry calls forward an inner call; leave headroom
		gasPrice,
		data,
	)
	signedTx, err := types.SignTx(tx, types.NewEIP155Signer(c.chainID), c.privateKey)
	if err != nil {
		return common.Hash{}, fmt.Errorf("sign tx: %w", err)
	}
	if err := c.client.SendTransaction(ctx, signedTx); err != nil {
		return common.Hash{}, fmt.Errorf("send tx: %w", err)
	}

	telemetry.Debugf("[registry] sent tx=%s nonce=%d value=%s", signedTx.Hash().Hex(), nonce, value)
	return signedTx.Hash(), nil
}
