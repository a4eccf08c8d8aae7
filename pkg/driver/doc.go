// Package driver defines the page-automation capability the crawl core
// consumes, along with the error taxonomy that separates recoverable
// timeouts from fatal driver failures, and provides a go-rod backed
// implementation.
//
// The crawl core only ever sees the PageDriver and Element interfaces, so
// a different automation backend (or a simulated page in tests) can be
// swapped in without touching the control loop.
package driver
