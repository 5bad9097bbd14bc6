// Package email sends transactional notification digests through Postmark.
// A log-only DevSender covers local environments without API tokens.
package email
