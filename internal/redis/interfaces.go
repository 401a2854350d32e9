package redis

import "vehiclerental/internal/service"

// Ensure concrete types implement interfaces.
var (
	_ service.Locker       = (*LockStore)(nil)
	_ service.PaymentCache = (*CacheStore)(nil)
)
