// Package ship delivers rendered reports to their destinations: the GitHub
// Actions step summary, a file in the workspace, an arbitrary webhook, or a
// pull-request comment. Destinations are independent; one failing does not
// stop the others.
package ship
