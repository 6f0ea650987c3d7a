package rediscache

import (
	"fmt"
	"strings"
	"time"
)

const (
	// catalog:count -> approximate number of food items
	KeyCatalogCount = "foodmarket:catalog:count"

	// idem:purchase:{purchaser}:{key} -> "1" while a purchase with that key is in flight or done
	KeyIdemPurchase = "foodmarket:idem:purchase:%s:%s"
)

var (
	TTLCount       = 30 * time.Second
	TTLIdempotency = 24 * time.Hour
)

func idemKey(purchaserID, key string) string {
	return fmt.Sprintf(KeyIdemPurchase, strings.ToLower(purchaserID), key)
}
