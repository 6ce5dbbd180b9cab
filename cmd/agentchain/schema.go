package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/go-go-golems/agentchain/pkg/agents"
	"github.com/spf13/cobra"
)

func newSchemaCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "schema [stage]",
		Short: "Print the output schema of every stage, or of one",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, err := agents.NewDefaultRegistry()
			if err != nil {
				return err
			}
			slugs := reg.Slugs()
			if len(args) == 1 {
				slugs = args
			}
			out := map[string]json.RawMessage{}
			for _, slug := range slugs {
				spec, err := reg.Get(slug)
				if err != nil {
					return err
				}
				out[slug] = spec.Output.JSON()
			}
			b, err := json.MarshalIndent(out, "", "  ")
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(os.Stdout, string(b))
			return err
		},
	}
}
