// Package model contains the in-memory representation of approval workflow
// definitions and of the records moved through them.
//
// A Definition is typically loaded from a YAML or JSON document by the
// registry service; a Record is created on submission and afterwards mutated
// only by the transition engine. Roles, statuses and phases are closed
// enumerations so that every switch over them can be exhaustive.
package model
