package order

import (
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/sugawarayuuta/sonnet"
)

// CachedOrder is the persisted view of a submitted order. Req holds the
// canonical request encoding (0x hex): the registry stores only its hash, so
// these bytes are what cancel and execute verify against later.
type CachedOrder struct {
	RequestID uint64    `json:"request_id"`
	Req       string    `json:"req"`
	ChainID   uint64    `json:"chain_id"`
	Maker     string    `json:"maker"`
	TokenIn   string    `json:"token_in"`
	TokenOut  string    `json:"token_out"`
	AmountIn  string    `json:"amount_in"`
	AmountOut string    `json:"amount_out"`
	StopLoss  bool      `json:"stop_loss"`
	Digest    string    `json:"digest"`
	Submitted time.Time `json:"submitted"`
}

// Cache is the keeper's local list of open orders, backed by a JSON file.
// It is a convenience view only; the queue is authoritative, and Refresh
// replaces the whole list from it after any submission.
type Cache struct {
	mu     sync.Mutex
	path   string
	orders []CachedOrder
}

func OpenCache(path string) (*Cache, error) {
	c := &Cache{path: path}
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return c, nil
	}
	if err != nil {
		return nil, fmt.Errorf("order cache: %w", err)
	}
	if err := sonnet.Unmarshal(data, &c.orders); err != nil {
		return nil, fmt.Errorf("order cache: decode %s: %w", path, err)
	}
	return c, nil
}

func (c *Cache) Add(o CachedOrder) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.orders = append(c.orders, o)
	return c.flush()
}

func (c *Cache) List() []CachedOrder {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]CachedOrder, len(c.orders))
	copy(out, c.orders)
	return out
}

// Refresh invalidates the cache against the authoritative source. fetch
// returns the current open-order list; on error the cache is left as-is.
func (c *Cache) Refresh(fetch func() ([]CachedOrder, error)) error {
	fresh, err := fetch()
	if err != nil {
		return fmt.Errorf("order cache refresh: %w", err)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.orders = fresh
	return c.flush()
}

func (c *Cache) flush() error {
	data, err := sonnet.Marshal(c.orders)
	if err != nil {
		return fmt.Errorf("order cache: encode: %w", err)
	}
	return os.WriteFile(c.path, data, 0o644)
}
