// Package pipeline runs function-level analyses over a whole program.
//
// A TargetsHolder keeps one FunctionData per function and variant. A
// Pipeline runs its processors one after another; each processor visits the
// strongly connected components of the call graph callees first, so that a
// function is analyzed after every function it calls. Members of a cyclic
// component are re-processed until a full round leaves every summary
// unchanged.
//
// Components on the same dependency level never read each other's results,
// so with WithParallelism they are processed concurrently. Writes to the
// holder go through its lock and a function's data is only read by callers
// once its component is finished.
package pipeline
