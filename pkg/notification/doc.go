// Package notification defines the notification payload model and the
// durable store adapter contract.
//
// A Payload is immutable once constructed: it is passed by value so that
// persistence and real-time push each receive their own copy. The Storage
// interface is the boundary to the durable backend; MemoryStorage serves
// development and tests, PGStorage backs production.
package notification
