// Package utils provides small shared helpers: filename sanitizing,
// random pauses for human-paced automation, file checks, and regex helpers.
package utils
