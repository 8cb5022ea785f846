// Package bid runs a bid end to end and records its outcome in the
// audit log.
package bid
