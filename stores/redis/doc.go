// Package redis keeps out-of-band codes and refresh tokens in Redis, where
// key expiry takes care of stale records. Users, identities and channels
// still need a durable store such as fs or gorm:
//
//	rdb := goredis.NewClient(&goredis.Options{Addr: "localhost:6379"})
//	s := gormstore.New(db)
//	s.Tokens = redisstore.NewTokenStore(rdb, "rxauth")
//	s.RefreshTokens = redisstore.NewRefreshTokenStore(rdb, "rxauth")
package redis
