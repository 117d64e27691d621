package checkout

import (
	"context"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/cmorrow/formpay/pkg/stripeapi"
)

// CouponCache looks coupons up at most once per code. Concurrent
// submissions carrying the same code share a single upstream lookup.
type CouponCache struct {
	mu      sync.RWMutex
	coupons map[string]*stripeapi.Coupon
	group   singleflight.Group
}

// NewCouponCache creates an empty cache.
func NewCouponCache() *CouponCache {
	return &CouponCache{coupons: make(map[string]*stripeapi.Coupon)}
}

// Lookup returns the coupon for code, fetching it through client on the
// first call. A missing coupon yields ErrCouponInvalid; other failures
// propagate and are not cached.
func (cc *CouponCache) Lookup(ctx context.Context, client *stripeapi.Client, code string) (*stripeapi.Coupon, error) {
	cc.mu.RLock()
	cached, ok := cc.coupons[code]
	cc.mu.RUnlock()
	if ok {
		return cached, nil
	}

	result, err, _ := cc.group.Do(code, func() (any, error) {
		coupon, err := client.GetCoupon(ctx, code)
		if err != nil {
			return nil, err
		}
		cc.mu.Lock()
		cc.coupons[code] = coupon
		cc.mu.Unlock()
		return coupon, nil
	})
	if err != nil {
		return nil, err
	}
	return result.(*stripeapi.Coupon), nil
}

// Invalidate drops a cached code, forcing the next Lookup to refetch.
func (cc *CouponCache) Invalidate(code string) {
	cc.mu.Lock()
	delete(cc.coupons, code)
	cc.mu.Unlock()
}

// DiscountedTotal applies a coupon's flat or percentage discount to an
// amount in minor units, flooring at zero.
func DiscountedTotal(total int64, coupon *stripeapi.Coupon) int64 {
	if coupon == nil {
		return total
	}
	discounted := total
	if off := coupon.AmountOff(); off > 0 {
		discounted = total - off
	} else if pct := coupon.PercentOff(); pct > 0 {
		discounted = total - int64(float64(total)*pct/100)
	}
	if discounted < 0 {
		return 0
	}
	return discounted
}
