package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jward/taproot"
	"github.com/jward/taproot/internal/pytree"
)

var (
	flagProject string
	flagFormat  string
	flagVerbose bool
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:           "taproot",
	Short:         "Static type and definition inference for Python sources",
	Long:          "Taproot resolves names, attributes, and call signatures in Python source trees by static analysis over tree-sitter parse trees, with descriptor (.pyi) overlay support.",
	SilenceErrors: true,
	SilenceUsage:  true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := validateFormat(flagFormat); err != nil {
			return err
		}
		return loadConfig()
	},
	// No Run — prints help by default.
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagProject, "project", ".", "project root directory")
	rootCmd.PersistentFlags().StringVar(&flagFormat, "format", "json", "output format: json|text")
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "enable engine trace logging on stderr")

	rootCmd.AddCommand(inferCmd)
	rootCmd.AddCommand(gotoCmd)
	rootCmd.AddCommand(signaturesCmd)
	rootCmd.AddCommand(completeCmd)
	rootCmd.AddCommand(issuesCmd)
}

// loadConfig wires an optional taproot.yaml in the project root plus
// TAPROOT_* environment variables into viper. All keys have flag or
// built-in defaults, so a missing config file is not an error.
func loadConfig() error {
	viper.SetConfigName("taproot")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(flagProject)
	viper.SetEnvPrefix("taproot")
	viper.AutomaticEnv()
	viper.SetDefault("python_version", "3.9")

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return nil
		}
		return fmt.Errorf("reading config: %w", err)
	}
	return nil
}

// newProject builds the analysis project from flags and config.
func newProject() (*taproot.Project, error) {
	root, err := filepath.Abs(flagProject)
	if err != nil {
		return nil, fmt.Errorf("resolving project root: %w", err)
	}
	info, err := os.Stat(root)
	if err != nil || !info.IsDir() {
		return nil, fmt.Errorf("project root not found: %s", root)
	}

	var opts []taproot.Option
	if paths := viper.GetStringSlice("search_path"); len(paths) > 0 {
		opts = append(opts, taproot.WithSearchPath(paths...))
	}
	if stubPath := viper.GetString("stub_path"); stubPath != "" {
		opts = append(opts, taproot.WithStubRepository(stubPath))
	}
	major, minor, err := parsePythonVersion(viper.GetString("python_version"))
	if err != nil {
		return nil, err
	}
	opts = append(opts, taproot.WithPythonVersion(major, minor))

	if flagVerbose {
		logger := log.NewWithOptions(os.Stderr, log.Options{
			ReportTimestamp: false,
			Level:           log.DebugLevel,
			Prefix:          "taproot",
		})
		opts = append(opts, taproot.WithLogger(logger))
	}
	return taproot.NewProject(root, opts...), nil
}

func parsePythonVersion(s string) (major, minor int, err error) {
	parts := strings.SplitN(s, ".", 2)
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("invalid python_version %q: want major.minor", s)
	}
	major, err = strconv.Atoi(parts[0])
	if err == nil {
		minor, err = strconv.Atoi(parts[1])
	}
	if err != nil {
		return 0, 0, fmt.Errorf("invalid python_version %q: want major.minor", s)
	}
	return major, minor, nil
}

// parsePosition parses FILE LINE COL command arguments. LINE is 1-based,
// COL is 0-based, matching editor conventions.
func parsePosition(args []string) (string, pytree.Position, error) {
	path, err := filepath.Abs(args[0])
	if err != nil {
		return "", pytree.Position{}, fmt.Errorf("resolving path %q: %w", args[0], err)
	}
	line, err := strconv.Atoi(args[1])
	if err != nil || line < 1 {
		return "", pytree.Position{}, fmt.Errorf("invalid line %q", args[1])
	}
	col, err := strconv.Atoi(args[2])
	if err != nil || col < 0 {
		return "", pytree.Position{}, fmt.Errorf("invalid column %q", args[2])
	}
	return path, pytree.Position{Line: line, Col: col}, nil
}

var (
	flagPreferStubs bool
	flagOnlyStubs   bool
)

var inferCmd = &cobra.Command{
	Use:   "infer FILE LINE COL",
	Short: "Infer the values of the name at a position",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		project, err := newProject()
		if err != nil {
			return err
		}
		path, pos, err := parsePosition(args)
		if err != nil {
			return err
		}
		session := project.NewSession(context.Background())
		defs, err := session.Infer(path, pos)
		if err != nil {
			return err
		}
		return outputDefinitions(cmd, "infer", defs)
	},
}

var gotoCmd = &cobra.Command{
	Use:   "goto FILE LINE COL",
	Short: "Resolve the name at a position to its definition sites",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		project, err := newProject()
		if err != nil {
			return err
		}
		path, pos, err := parsePosition(args)
		if err != nil {
			return err
		}
		session := project.NewSession(context.Background())
		defs, err := session.Goto(path, pos, flagOnlyStubs, flagPreferStubs)
		if err != nil {
			return err
		}
		return outputDefinitions(cmd, "goto", defs)
	},
}

func init() {
	gotoCmd.Flags().BoolVar(&flagPreferStubs, "prefer-stubs", false, "resolve to descriptor (.pyi) files instead of implementations")
	gotoCmd.Flags().BoolVar(&flagOnlyStubs, "only-stubs", false, "drop results without a descriptor (.pyi) counterpart")
}

var signaturesCmd = &cobra.Command{
	Use:   "signatures FILE LINE COL",
	Short: "Show callable signatures for the call enclosing a position",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		project, err := newProject()
		if err != nil {
			return err
		}
		path, pos, err := parsePosition(args)
		if err != nil {
			return err
		}
		session := project.NewSession(context.Background())
		sigs, err := session.Signatures(path, pos)
		if err != nil {
			return err
		}
		return outputSignatures(cmd, sigs)
	},
}

var completeCmd = &cobra.Command{
	Use:   "complete FILE LINE COL",
	Short: "List completion candidates at a position",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		project, err := newProject()
		if err != nil {
			return err
		}
		path, pos, err := parsePosition(args)
		if err != nil {
			return err
		}
		session := project.NewSession(context.Background())
		completions, err := session.Complete(path, pos)
		if err != nil {
			return err
		}
		return outputCompletions(cmd, completions)
	},
}

var issuesCmd = &cobra.Command{
	Use:   "issues FILE",
	Short: "Report call-argument diagnostics for a file",
	Long:  "Analyzes every name in the file and reports the call-site diagnostics collected along the way: wrong arity, duplicate or unknown keyword arguments.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		project, err := newProject()
		if err != nil {
			return err
		}
		path, err := filepath.Abs(args[0])
		if err != nil {
			return fmt.Errorf("resolving path %q: %w", args[0], err)
		}
		session := project.NewSession(context.Background())
		issues, err := analyzeFile(session, path)
		if err != nil {
			return err
		}
		return outputIssues(cmd, issues)
	},
}

// analyzeFile infers every identifier in a file so call-site checks run,
// then returns the collected diagnostics.
func analyzeFile(session *taproot.Session, path string) ([]taproot.Issue, error) {
	m, err := session.ModuleAt(path)
	if err != nil {
		return nil, err
	}
	file := m.File()
	for _, name := range file.IdentifierNames() {
		for _, node := range file.NamesFor(name) {
			pos := pytree.StartPos(node)
			if _, err := session.Infer(path, pos); err != nil {
				return nil, err
			}
		}
	}
	return session.Issues(), nil
}
