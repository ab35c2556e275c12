// Package policy resolves the effective rejection behaviour of a workflow
// stage by layering a definition's global defaults and the stage's own
// override on top of a fixed system default.
package policy
