package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

var viewCmd = &cobra.Command{
	Use:   "view [stacks...]",
	Short: "Show the remote state of stacks",
	RunE:  runView,
}

func runView(cmd *cobra.Command, args []string) error {
	a, err := loadApp(cmd, args)
	if err != nil {
		return err
	}
	var errs []error
	for _, s := range a.stacks {
		if err := a.engine.View(cmd.Context(), s, a.options()); err != nil {
			errs = append(errs, fmt.Errorf("stack %s: %w", s.Name, err))
		}
	}
	return errors.Join(errs...)
}
