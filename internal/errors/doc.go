// Package apperrors holds the error classes a linemax run can fail with and
// maps them to process exit statuses. Types that carry a cause implement
// Unwrap so callers can match with errors.Is and errors.As.
package apperrors
