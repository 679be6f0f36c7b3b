// Package domain holds contracts and errors shared across layers.
package domain

// KeyPrefix namespaces every key this service writes to the store.
const KeyPrefix = "msgdex:"
