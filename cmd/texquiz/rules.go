package main

import (
	"fmt"

	"quiz-tex/internal/latex"

	"github.com/spf13/cobra"
)

type ruleCheck struct {
	File     string   `json:"file"`
	Accepted int      `json:"accepted"`
	Errors   []string `json:"errors"`
}

func newRulesCmd(c *cli) *cobra.Command {
	rules := &cobra.Command{
		Use:   "rules",
		Short: "Inspect replacement rules",
	}
	rules.AddCommand(&cobra.Command{
		Use:   "check [FILE]",
		Short: "Compile a rule file and report the rules that fail",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := c.cfg.Parser.RulesFile
			if len(args) == 1 {
				path = args[0]
			}
			report, err := checkRules(path)
			if err != nil {
				return err
			}
			if err := c.writeJSON(cmd.OutOrStdout(), report); err != nil {
				return err
			}
			if len(report.Errors) > 0 {
				return fmt.Errorf("%d rules failed to compile", len(report.Errors))
			}
			return nil
		},
	})
	return rules
}

func checkRules(path string) (*ruleCheck, error) {
	rs, ruleErrs, err := latex.LoadRules(path)
	if err != nil {
		return nil, err
	}
	report := &ruleCheck{File: path, Accepted: rs.Len(), Errors: []string{}}
	for _, e := range ruleErrs {
		report.Errors = append(report.Errors, e.Error())
	}
	return report, nil
}
