package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"bibrender/src/internal/addon"
	"bibrender/src/internal/collection"
	"bibrender/src/internal/logger"
	"bibrender/src/internal/render"
)

func newRootCmd() *cobra.Command {
	var (
		bibfiles       []string
		addons         []string
		dropTypes      []string
		noCoerceYear   bool
		keepDuplicates bool
		oldestFirst    bool
		warnOnly       bool
		verbose        bool
	)
	cmd := &cobra.Command{
		Use:   "bibrender <template> <outputfile>",
		Short: "Render bibliography files (YAML or BibTeX) through a text template",
		Long: `bibrender loads bibliographic records from one or more YAML or BibTeX
files, drops exact title duplicates, sorts the records newest first, and
renders them through the given template into the output file. The template
has access to the record collection and a set of query and formatting
helpers; --addon files can contribute more.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger.SetVerbose(verbose)
			tmplPath, outPath := args[0], args[1]

			c := collection.New()
			for _, path := range bibfiles {
				if err := c.Load(path, !noCoerceYear); err != nil {
					return err
				}
			}
			if !keepDuplicates {
				c.RemoveDuplicates()
			}
			for _, typ := range dropTypes {
				c.RemoveType(typ)
			}
			c.Sort(!oldestFirst)

			registry, err := addon.Load(addons)
			if err != nil {
				return err
			}
			if err := render.File(tmplPath, outPath, c, registry, warnOnly); err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "wrote %s (%d records)\n", outPath, c.Len())
			return err
		},
	}
	cmd.Flags().StringArrayVar(&bibfiles, "bibfile", nil, "Bibliography file to load (.yaml or .bib); repeatable")
	cmd.Flags().StringArrayVar(&addons, "addon", nil, "Go source file with extra template helpers; repeatable")
	cmd.Flags().StringArrayVar(&dropTypes, "drop-type", nil, "Drop all records of this type before rendering; repeatable")
	cmd.Flags().BoolVar(&noCoerceYear, "no-coerce-year", false, "Keep year fields as loaded instead of converting to integers")
	cmd.Flags().BoolVar(&keepDuplicates, "keep-duplicates", false, "Skip title-based duplicate removal")
	cmd.Flags().BoolVar(&oldestFirst, "oldest-first", false, "Sort oldest records first")
	cmd.Flags().BoolVar(&warnOnly, "warn-only", false, "Report coverage problems without failing")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Print debug diagnostics")
	_ = cmd.MarkFlagRequired("bibfile")
	return cmd
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
