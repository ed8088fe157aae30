// Package findings defines the Finding and CheckResult types shared by the
// runner, report formatters, and shippers, along with the five-level severity
// scale (critical, high, medium, low, info) and its ordering helpers.
package findings
