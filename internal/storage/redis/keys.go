package redis

import "fmt"

// Key prefix for all game-related data
const keyPrefix = "empire"

// accountKey returns the Redis key for an Account, keyed by telegram id
func accountKey(telegramID int64) string {
	return fmt.Sprintf("%s:account:%d", keyPrefix, telegramID)
}

// ledgerKey returns the Redis key for a ResourceLedger, keyed by account id
func ledgerKey(accountID int64) string {
	return fmt.Sprintf("%s:ledger:%d", keyPrefix, accountID)
}

// gridsKey returns the Redis key for the LIST of an account's grids,
// in append (play) order
func gridsKey(accountID int64) string {
	return fmt.Sprintf("%s:grids:%d", keyPrefix, accountID)
}

// accountSeqKey returns the Redis key of the sequential game number counter
func accountSeqKey() string {
	return fmt.Sprintf("%s:seq:account", keyPrefix)
}

// gridSeqKey returns the Redis key of the grid id counter
func gridSeqKey() string {
	return fmt.Sprintf("%s:seq:grid", keyPrefix)
}

// accountsIndexKey returns the Redis key of the ZSET of all telegram ids,
// scored by internal account id (gives snapshot ordering and counting)
func accountsIndexKey() string {
	return fmt.Sprintf("%s:idx:accounts", keyPrefix)
}

// activeIndexKey returns the Redis key of the ZSET of telegram ids scored
// by last-active time in unix milliseconds
func activeIndexKey() string {
	return fmt.Sprintf("%s:idx:active", keyPrefix)
}
