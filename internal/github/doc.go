// Package github provides a minimal GitHub REST API client for posting a
// prguard report as a pull-request comment.
//
// The pull request number comes from the GITHUB_REF value Actions sets on
// pull_request events; the repository from GITHUB_REPOSITORY. Both are
// resolved by the caller.
package github
