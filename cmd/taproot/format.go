package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/jward/taproot"
)

func validateFormat(format string) error {
	switch format {
	case "json", "text":
		return nil
	}
	return fmt.Errorf("invalid format %q: want json|text", format)
}

func outputJSON(w io.Writer, command string, results any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(CLIResult{Command: command, Results: results})
}

func outputDefinitions(cmd *cobra.Command, command string, defs []taproot.Definition) error {
	results := make([]CLIDefinition, 0, len(defs))
	for _, d := range defs {
		out := CLIDefinition{
			Name:   d.Name,
			Kind:   d.Kind.String(),
			Module: d.Module,
			File:   d.Path,
			IsStub: d.IsStub,
		}
		if d.Pos != nil {
			out.Line = d.Pos.Line
			out.Col = d.Pos.Col
		}
		results = append(results, out)
	}
	if flagFormat == "json" {
		return outputJSON(cmd.OutOrStdout(), command, results)
	}
	formatDefinitionsText(cmd.OutOrStdout(), results)
	return nil
}

// formatDefinitionsText formats resolution results as aligned columns.
func formatDefinitionsText(w io.Writer, defs []CLIDefinition) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tKIND\tMODULE\tFILE\tLINE\tCOL")
	for _, d := range defs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%d\n",
			d.Name, d.Kind, d.Module, d.File, d.Line, d.Col)
	}
	tw.Flush()
}

func outputSignatures(cmd *cobra.Command, sigs []taproot.Signature) error {
	results := make([]CLISignature, 0, len(sigs))
	for _, sig := range sigs {
		out := CLISignature{Name: sig.Name(), Rendered: sig.String()}
		for _, p := range sig.Params() {
			out.Params = append(out.Params, p.Name)
		}
		results = append(results, out)
	}
	if flagFormat == "json" {
		return outputJSON(cmd.OutOrStdout(), "signatures", results)
	}
	for _, sig := range results {
		fmt.Fprintln(cmd.OutOrStdout(), sig.Rendered)
	}
	return nil
}

func outputCompletions(cmd *cobra.Command, completions []taproot.Completion) error {
	results := make([]CLICompletion, 0, len(completions))
	for _, c := range completions {
		results = append(results, CLICompletion{Name: c.Name, Kind: c.Kind.String()})
	}
	if flagFormat == "json" {
		return outputJSON(cmd.OutOrStdout(), "complete", results)
	}
	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tKIND")
	for _, c := range results {
		fmt.Fprintf(tw, "%s\t%s\n", c.Name, c.Kind)
	}
	tw.Flush()
	return nil
}

func outputIssues(cmd *cobra.Command, issues []taproot.Issue) error {
	results := make([]CLIIssue, 0, len(issues))
	for _, i := range issues {
		results = append(results, CLIIssue{
			Kind:    i.Kind.String(),
			File:    i.Path,
			Line:    i.Pos.Line,
			Col:     i.Pos.Col,
			Message: i.Message,
		})
	}
	if flagFormat == "json" {
		return outputJSON(cmd.OutOrStdout(), "issues", results)
	}
	for _, i := range results {
		fmt.Fprintf(cmd.OutOrStdout(), "%s:%d:%d: %s: %s\n", i.File, i.Line, i.Col, i.Kind, i.Message)
	}
	return nil
}
