// Package render turns users, charts and country lists into the plain text
// printed by the formflow command. Templates are pongo2 and can be overridden
// from disk.
package render
