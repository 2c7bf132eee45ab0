package main

// CLIResult is the top-level JSON envelope for all commands.
type CLIResult struct {
	Command string `json:"command"`
	Results any    `json:"results"`
}

// CLIDefinition is a JSON-friendly resolution result.
type CLIDefinition struct {
	Name   string `json:"name"`
	Kind   string `json:"kind"`
	Module string `json:"module,omitempty"`
	File   string `json:"file,omitempty"`
	Line   int    `json:"line,omitempty"`
	Col    int    `json:"col,omitempty"`
	IsStub bool   `json:"is_stub,omitempty"`
}

// CLISignature is a JSON-friendly callable signature.
type CLISignature struct {
	Name     string   `json:"name"`
	Params   []string `json:"params"`
	Rendered string   `json:"rendered"`
}

// CLICompletion is a JSON-friendly completion candidate.
type CLICompletion struct {
	Name string `json:"name"`
	Kind string `json:"kind"`
}

// CLIIssue is a JSON-friendly diagnostic.
type CLIIssue struct {
	Kind    string `json:"kind"`
	File    string `json:"file"`
	Line    int    `json:"line"`
	Col     int    `json:"col"`
	Message string `json:"message"`
}
