// Package runner orchestrates a review run: for each enabled check it
// collects the matching files, packs them into context-budgeted batches,
// sends each batch to the model, and aggregates parsed findings into one
// CheckResult per check. Batch failures become findings; they never abort
// the run.
package runner
