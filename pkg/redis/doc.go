// Package redis connects the service to Redis with startup retries and a
// health probe. The outbound mail queue is its only in-process consumer, but
// the helpers are generic go-redis plumbing.
package redis
