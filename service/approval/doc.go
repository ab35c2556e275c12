// Package approval serves the approver's side of the engine: the worklist of
// records awaiting a decision a given actor may make, and recording that
// decision through the transition engine.
package approval
