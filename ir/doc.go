// Package ir is the in-memory representation the instrumentation pipeline
// rewrites.
//
// It is deliberately smaller than a general-purpose LLVM IR: just enough
// shape (modules, functions, basic blocks, instructions, metadata
// attachments) for the eight passes in internal/passes to plant markers,
// counters and runtime calls the way the specification describes. Real
// LLVM assembly is parsed into this shape by internal/llvmbridge using
// github.com/llir/llvm; the same package renders an instrumented Module
// back out to text for the CLI to write.
package ir
