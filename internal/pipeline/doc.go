// Package pipeline coordinates the fetch and commit cycles.
//
// Every cycle holds a file lock under the data directory so a fetch can never
// interleave with a commit or clear, even across processes, and carries a
// run identifier through its logs.
package pipeline
