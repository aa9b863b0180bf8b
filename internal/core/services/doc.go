// Package services holds the core orchestration logic.
//
// Pipeline runs one ingestion pass: extract, chunk, embed, index.
// Scheduler re-runs a pass on a cron schedule.
//
// Services depend only on domain types and driven ports; concrete
// adapters are wired in by the driving CLI.
package services
