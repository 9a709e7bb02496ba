// Package profile implements the profile edit form controller: it seeds a form
// from the authenticated user, validates edits, submits a patch through a
// UserService, refreshes the user on success, and hands session faults to the
// shared session guard.
package profile
