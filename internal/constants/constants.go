package constants

import (
	"fmt"
	"time"
)

// Redis keys, scoped by pool id
const (
	RedisKeyPrefix        = "amm:"
	RedisKeyStateSuffix   = ":state"
	RedisKeyVersionSuffix = ":version"
	RedisKeyRecentSuffix  = ":events:recent"
	RedisKeyFlagsInfix    = ":flags:"
)

// Redis Pub/Sub channels
const (
	PubSubChannelEvents        = "amm:events"
	PubSubChannelKindPrefix    = "amm:events:kind:"
	PubSubChannelAccountPrefix = "amm:events:account:"
	PubSubPatternAll           = "amm:events*"
)

// Limits
const (
	MaxRecentEvents     = 100
	MaxRecentEventsPage = 200
	DefaultPoolID       = "main"
)

// Sink and request timeouts
const (
	SinkTimeout      = 3 * time.Second
	SaveTimeout      = 5 * time.Second
	MutationTimeout  = 5 * time.Second
	AIRequestTimeout = 45 * time.Second
)

// Slippage is expressed in basis points of 10000
const BpsDenominator = 10000

// ClickHouse
const (
	ClickHouseDatabase    = "amm"
	ClickHouseEventsTable = "pool_events"
)

func StateKey(pool string) string {
	return RedisKeyPrefix + pool + RedisKeyStateSuffix
}

func VersionKey(pool string) string {
	return RedisKeyPrefix + pool + RedisKeyVersionSuffix
}

func RecentEventsKey(pool string) string {
	return RedisKeyPrefix + pool + RedisKeyRecentSuffix
}

func FlagKey(pool, op string) string {
	return fmt.Sprintf("%s%s%s%s", RedisKeyPrefix, pool, RedisKeyFlagsInfix, op)
}
