package repository

import "fmt"

const keyPrefix = "boxoffice"

// Per-event keys share the {eventID} hash tag and per-category keys the
// {catID} tag, so every script touches a single slot for its partition.

func queueKey(eID string) string {
	return fmt.Sprintf("%s:{%s}:queue", keyPrefix, eID)
}

func sequenceKey(eID string) string {
	return fmt.Sprintf("%s:{%s}:queue:seq", keyPrefix, eID)
}

func joinedKey(eID string) string {
	return fmt.Sprintf("%s:{%s}:joined", keyPrefix, eID)
}

func windowKey(eID string) string {
	return fmt.Sprintf("%s:{%s}:window", keyPrefix, eID)
}

func outcomesKey(eID string) string {
	return fmt.Sprintf("%s:{%s}:outcomes", keyPrefix, eID)
}

func activeEventsKey() string {
	return keyPrefix + ":events:active"
}

func ledgerKey(catID string) string {
	return fmt.Sprintf("%s:category:{%s}:ledger", keyPrefix, catID)
}
