package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/dukerupert/kinship/internal/genealogy"
	"github.com/dukerupert/kinship/internal/logging"
	"github.com/dukerupert/kinship/internal/model"
	"github.com/dukerupert/kinship/internal/photo"
	"github.com/spf13/cobra"
)

type layoutOptions struct {
	input        string
	root         string
	photoBaseURL string
	logLevel     string
	graph        bool
}

type layoutOutput struct {
	Tree  *genealogy.Tree    `json:"tree"`
	Stats genealogy.Stats    `json:"stats"`
	Graph *model.FamilyGraph `json:"graph,omitempty"`
}

func newLayoutCmd() *cobra.Command {
	var opts layoutOptions
	cmd := &cobra.Command{
		Use:   "layout",
		Short: "Lay out a JSON array of member records and print the tree",
		Long: `Reads an exported array of member records, builds the relationship graph
and prints the laid-out tree as JSON. Use --input - to read from stdin.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			in := cmd.InOrStdin()
			if opts.input != "-" {
				f, err := os.Open(opts.input)
				if err != nil {
					return fmt.Errorf("open input: %w", err)
				}
				defer f.Close()
				in = f
			}
			logger := logging.Setup(opts.logLevel, "text")
			return runLayout(in, cmd.OutOrStdout(), opts, logger)
		},
	}
	cmd.Flags().StringVarP(&opts.input, "input", "i", "-", "JSON file with an array of member records")
	cmd.Flags().StringVar(&opts.root, "root", "", "person id to use as root instead of the eldest")
	cmd.Flags().StringVar(&opts.photoBaseURL, "photo-base-url", "", "base URL for photo references")
	cmd.Flags().StringVar(&opts.logLevel, "log-level", "warn", "log level for build diagnostics")
	cmd.Flags().BoolVar(&opts.graph, "graph", false, "include the normalized graph in the output")
	return cmd
}

func runLayout(in io.Reader, out io.Writer, opts layoutOptions, logger *slog.Logger) error {
	var records []model.RawRecord
	if err := json.NewDecoder(in).Decode(&records); err != nil {
		return fmt.Errorf("decode records: %w", err)
	}

	builder := genealogy.NewBuilder(photo.NewResolver(opts.photoBaseURL, ""), nil, logger)
	res := builder.Build(records)

	if opts.root != "" {
		if _, ok := res.Graph.Person(opts.root); !ok {
			return fmt.Errorf("root %q is not among the records", opts.root)
		}
		res.Graph.RootPersonID = opts.root
		res.Tree = genealogy.Layout(res.Graph)
		res.Stats.Disconnected = len(res.Tree.Disconnected)
	}

	output := layoutOutput{Tree: res.Tree, Stats: res.Stats}
	if opts.graph {
		output.Graph = res.Graph
	}
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(output)
}
