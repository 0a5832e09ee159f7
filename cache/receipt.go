package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/jellydator/ttlcache/v3"
	"github.com/sprintertech/sprinter-treasury/treasury"
)

const (
	RECEIPT_TTL = time.Minute * 10
)

// ReceiptCache keeps receipts of recent withdrawals by marker key so clients
// can poll for the outcome of a redemption.
type ReceiptCache struct {
	receiptCache *ttlcache.Cache[common.Hash, treasury.Receipt]
}

func NewReceiptCache(ctx context.Context, ttl time.Duration) *ReceiptCache {
	if ttl == 0 {
		ttl = RECEIPT_TTL
	}
	cache := ttlcache.New(
		ttlcache.WithTTL[common.Hash, treasury.Receipt](ttl),
	)

	go cache.Start()
	go func() {
		<-ctx.Done()
		cache.Stop()
	}()

	return &ReceiptCache{
		receiptCache: cache,
	}
}

func (c *ReceiptCache) Store(receipt treasury.Receipt) {
	c.receiptCache.Set(receipt.MarkerKey, receipt, ttlcache.DefaultTTL)
}

func (c *ReceiptCache) Receipt(markerKey common.Hash) (treasury.Receipt, error) {
	receipt := c.receiptCache.Get(markerKey)
	if receipt == nil {
		return treasury.Receipt{}, fmt.Errorf("no receipt found for marker %s", markerKey.Hex())
	}

	return receipt.Value(), nil
}
