// Package client contains the HTTP adapters behind the form controllers: the
// user and chart services, the country list, and an IP based locator.
//
// Every failure is returned as a *faults.Fault. Legacy servers that report
// session problems only through the message text ("Token expired",
// "Unauthorized") are translated into structured kinds here, so nothing above
// this package compares message strings.
package client
