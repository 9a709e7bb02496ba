// Package faults defines the failure taxonomy shared by the form controllers and
// the adapters that talk to remote collaborators.
//
// Adapters convert transport-level responses into a *Fault with a structured
// Kind. Controllers never inspect message text to decide how to recover; the
// kind alone decides whether a failure forces a logout.
package faults
