// Package app provides the main application logic for extracting ServiceM8
// session credentials and forwarding them to a webhook. It wires the
// configuration, browser extraction service, and webhook forwarder together
// and orchestrates each one-shot run.
package app
