// Package batch plans token-budgeted file batches for model requests using a
// greedy first-fit policy that preserves input order.
package batch
