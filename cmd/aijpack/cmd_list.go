package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func newListCommand(a *app) *cobra.Command {
	var resolve bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List configured targets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			def, err := a.definition(cmd.Context())
			if err != nil {
				return err
			}
			targets, err := selectTargets(def, nil)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			header := "TARGET\tSYSTEM\tKIND\tEXT\tJMODS"
			if resolve {
				header += "\tRUNTIME"
			}
			fmt.Fprintln(w, header)

			var runtimes map[string]string
			if resolve {
				runtimes = make(map[string]string, len(targets))
				for id, desc := range a.resolver(def).ResolveRuntimes(cmd.Context(), def.Runtime.JavaVersion, def.Targets) {
					name := "unresolved"
					if desc.IsComplete() {
						name = desc.Name
					}
					runtimes[id] = name
				}
			}

			for _, t := range targets {
				line := fmt.Sprintf("%s\t%s\t%s\t%s\t%v", t.ID, t.SystemID(), t.Kind, t.Ext, t.Jmods)
				if resolve {
					line += "\t" + runtimes[t.ID]
				}
				fmt.Fprintln(w, line)
			}
			return w.Flush()
		},
	}
	cmd.Flags().BoolVar(&resolve, "resolve", false, "also resolve each target's runtime release")
	return cmd
}
