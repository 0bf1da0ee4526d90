// Package pipeline runs the AutoIF stages in order. A Driver walks a range
// of Stage values, giving each a fresh stage cache through Context and
// purging that cache once the stage succeeds.
package pipeline
