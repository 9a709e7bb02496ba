// Package countries provides deterministic ISO 3166 country reference data,
// search helpers, and a small net/http handler returning the country list used
// by profile forms.
//
// The handler responds to GET and HEAD requests. Without a query it returns the
// full list; query and limit parameters filter results. The backing data is
// loaded from the embedded list under data/countries.txt.
package countries
