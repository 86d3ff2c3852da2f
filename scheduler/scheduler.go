package scheduler

// Package scheduler provides scheduled job management for the research platform.
// It handles:
// - Price cache refreshes during market hours
// - Daily model recommendation runs
// - Quality scoring of submitted reports
// - End-of-day portfolio snapshots and risk assessments
// - Subscription expiry and periodic data cleanup
//
// The main scheduler is implemented in jobs.go
