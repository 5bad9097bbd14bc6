// Package logger provides a thin factory over log/slog plus typed attribute
// helpers so that log keys stay consistent across the service (user_id,
// connection_id, notification_id, ...).
package logger
