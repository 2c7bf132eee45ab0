// Package taproot resolves names, attributes, and call signatures in Python
// source trees by static analysis: no code is ever executed. It parses
// sources with tree-sitter, models possible runtime values as immutable
// value sets, and resolves names through prioritized filter chains that
// honor scoping, declaration order, and branch reachability.
//
// # Model
//
// Every inference answer is a [ValueSet]: an unordered, deduplicated set of
// [Value] variants (modules, classes, functions, instances, compiled
// fallbacks). The empty set is the ordinary "nothing known" result;
// analysis degrades instead of failing.
//
// Name lookup walks an ordered chain of [Filter] values built from the
// lexical scope chain, class method-resolution order, and descriptor
// overlays. The first filter with a non-empty answer wins; later filters
// are shadowed entirely.
//
// Descriptor (.pyi) files overlay implementation modules: declarations in
// a stub take priority for type information while the implementation stays
// reachable behind it. Stubs resolve from sibling `pkg-stubs` packages,
// co-located .pyi files, and a version-gated stub repository.
//
// # Usage
//
// Create a [Project], start a [Session], and query positions:
//
//	project := taproot.NewProject("path/to/project",
//		taproot.WithPythonVersion(3, 9),
//		taproot.WithStubRepository("path/to/stubs"))
//
//	session := project.NewSession(ctx)
//	defs, err := session.Infer("pkg/mod.py", pytree.Position{Line: 10, Col: 5})
//
// Sessions own every cache: values, filter results, and the recursion
// guards that make cyclic definitions terminate. Dropping a session
// releases all of its state; projects are cheap and immutable.
//
// # Query API
//
// [Session] provides four position operations:
//
//   - [Session.Infer] — evaluate the name at a position to its value set.
//   - [Session.Goto] — resolve to definition sites, optionally mapped onto
//     descriptor files.
//   - [Session.Signatures] — callable signatures for the enclosing call.
//   - [Session.Complete] — completion candidates visible at a position.
//
// Call-site diagnostics (arity, duplicate and unknown keyword arguments)
// accumulate on the session and are read with [Session.Issues].
package taproot
