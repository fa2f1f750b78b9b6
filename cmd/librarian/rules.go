package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"github.com/Veraticus/librarian/internal/cli"
	"github.com/Veraticus/librarian/internal/model"
	"github.com/Veraticus/librarian/internal/rules"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func rulesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rules",
		Short: "Inspect classification rules",
		Long: `Inspect the classification rules in effect. Rules come from the file named by
rules.file, or the built-in table when none is configured.`,
	}

	cmd.AddCommand(rulesListCmd())
	cmd.AddCommand(rulesTestCmd())
	cmd.AddCommand(rulesExportCmd())

	return cmd
}

func rulesListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List rules in evaluation order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			set, err := loadRules(cfg)
			if err != nil {
				return err
			}
			return writeRules(cmd.OutOrStdout(), set)
		},
	}
}

func writeRules(w io.Writer, set rules.RuleSet) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	if _, err := fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
		cli.HeaderStyle.Render("NAME"),
		cli.HeaderStyle.Render("TIER"),
		cli.HeaderStyle.Render("ACTION"),
		cli.HeaderStyle.Render("CATEGORY"),
		cli.HeaderStyle.Render("MATCH"),
		cli.HeaderStyle.Render("PATTERNS")); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	for _, r := range set.Rules() {
		if _, err := fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s/%s\t%s\n",
			r.Name, r.Tier, r.Action(), r.Category, r.Match, r.Target,
			strings.Join(r.Patterns, ", ")); err != nil {
			return fmt.Errorf("failed to write rule: %w", err)
		}
	}
	return tw.Flush()
}

func rulesTestCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "test <filename>",
		Short: "Show which rules match a file name",
		Long: `Classify a file name (and optional content) without touching the filesystem.
The file does not need to exist.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			content, _ := cmd.Flags().GetString("content")

			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			engine, err := buildEngine(cfg)
			if err != nil {
				return err
			}

			path := args[0]
			if !filepath.IsAbs(path) {
				path = filepath.Join(string(filepath.Separator), path)
			}
			decision := engine.Classify(model.FileRecord{
				Path:            path,
				Extension:       model.ExtensionOf(path),
				Snippet:         content,
				ContentReadable: content != "",
			})

			return writeDecisions(cmd.OutOrStdout(), []model.Decision{decision})
		},
	}

	cmd.Flags().String("content", "", "content snippet to match content rules against")

	return cmd
}

func rulesExportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "export [file]",
		Short: "Write the rules in effect as YAML",
		Long: `Write the rules in effect as a YAML rules file, to stdout or the given file.
Edit the result and point rules.file at it to customize classification.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			set, err := loadRules(cfg)
			if err != nil {
				return err
			}

			data, err := yaml.Marshal(set)
			if err != nil {
				return fmt.Errorf("failed to encode rules: %w", err)
			}

			if len(args) == 0 {
				_, err = cmd.OutOrStdout().Write(data)
				return err
			}
			if err := os.WriteFile(args[0], data, 0o600); err != nil {
				return fmt.Errorf("failed to write rules: %w", err)
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess(fmt.Sprintf("Wrote %d rules to %s", set.Len(), args[0])))
			return err
		},
	}
}
