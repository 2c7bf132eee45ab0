// Package stubs embeds the bundled type stub files the engine falls back
// to when no stub repository is configured: a minimal builtins module and
// the typing primitives class resolution needs.
package stubs

import "embed"

//go:embed *.pyi
var FS embed.FS

// Builtins returns the bundled builtins stub source.
func Builtins() []byte {
	data, err := FS.ReadFile("builtins.pyi")
	if err != nil {
		// The file is embedded at build time; missing means a broken build.
		panic("stubs: builtins.pyi not embedded: " + err.Error())
	}
	return data
}

// Typing returns the bundled typing stub source.
func Typing() []byte {
	data, err := FS.ReadFile("typing.pyi")
	if err != nil {
		panic("stubs: typing.pyi not embedded: " + err.Error())
	}
	return data
}
