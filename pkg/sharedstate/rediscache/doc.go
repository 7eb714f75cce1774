// Package rediscache stores gateway cache entries in Redis so several
// taskflowd instances can share them.
//
//	rdb := redis.NewClient(&redis.Options{Addr: "localhost:6379"})
//	cache, err := rediscache.New(rediscache.Config{
//		Redis:  rdb,
//		Prefix: "taskflow:cache:",
//		TTL:    time.Hour,
//	})
//
// Values are strings. A missing key is reported through the ok result of Get,
// never as an error.
package rediscache
