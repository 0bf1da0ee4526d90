// Package validation cross-validates generated verifier functions against
// generated test cases and scores model responses with the survivors.
//
// The Engine handles one instruction bundle at a time: it removes
// duplicates, keeps only the test cases some function answers correctly,
// scores every function against those cases and applies the density
// thresholds. Fanout spreads bundles over a fixed worker pool.
package validation
