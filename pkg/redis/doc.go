// Package redis opens go-redis clients from environment configuration.
//
// Redis is optional for the mailer. When REDIS_URL is set the dispatcher's
// send throttle is shared through it, so several mailer processes on the same
// provider account respect one common rate.
//
//	REDIS_URL            - redis:// or rediss:// URL (empty disables Redis)
//	REDIS_POOL_SIZE      - Maximum connections (default: 5)
//	REDIS_DIAL_TIMEOUT   - Dial timeout (default: 5s)
//	REDIS_READ_TIMEOUT   - Read timeout (default: 3s)
//	REDIS_WRITE_TIMEOUT  - Write timeout (default: 3s)
//	REDIS_RETRY_ATTEMPTS - Connection attempts at startup (default: 3)
//	REDIS_RETRY_INTERVAL - Base retry interval (default: 2s)
package redis
