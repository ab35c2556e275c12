// Package idgen generates record, artifact and event identifiers. Tests swap
// the generator for a deterministic one with Sequential.
package idgen
