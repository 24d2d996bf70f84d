// Package forwarder delivers the extracted credential record to the
// configured webhook endpoint.
package forwarder
