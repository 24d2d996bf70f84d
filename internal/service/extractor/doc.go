// Package extractor drives a real browser session against ServiceM8:
// it logs in with the operator's credentials, navigates to the dispatch
// board, scrapes per-endpoint s_auth tokens and session cookies from page
// state, and assembles them into a credential record.
package extractor
