// Package pricecache holds the latest price record per subscription key.
//
// Writes come only from the feed session's inbound path and overwrite
// unconditionally in delivery order. Consumers read through the View
// interface, either by polling Get/Snapshot or by subscribing to a
// notification channel.
package pricecache
