// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/phaseplan/internal/export"
	"github.com/pdiddy/phaseplan/internal/profile"
)

var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "List, show and resolve domain profiles",
	Long: `Profile inspects the domain profiles: built-in ones plus any YAML files
in --profiles-dir. A profile supplies core terms, scale-up stages, RACI
roles, a skeleton table and hint vocabulary for one kind of role.`,
}

var profileListCmd = &cobra.Command{
	Use:   "list",
	Short: "List profiles in match order",
	RunE: func(cmd *cobra.Command, args []string) error {
		reg, err := profile.NewRegistry(cfg.Profiles)
		if err != nil {
			return err
		}
		for _, name := range reg.Names() {
			p, err := reg.Get(name)
			if err != nil {
				return err
			}
			tag := ""
			if p.Fallback {
				tag = dimColor.Sprint(" (fallback)")
			}
			fmt.Printf("%-24s core: %s%s\n", name, strings.Join(p.CoreTerms, ", "), tag)
		}
		return nil
	},
}

var profileShowCmd = &cobra.Command{
	Use:   "show <name>",
	Short: "Print one profile as YAML or JSON",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		jsonOutput, _ := cmd.Flags().GetBool("json")
		reg, err := profile.NewRegistry(cfg.Profiles)
		if err != nil {
			return err
		}
		p, err := reg.Get(args[0])
		if err != nil {
			return err
		}
		if jsonOutput {
			return export.Encode(os.Stdout, export.FormatJSON, p)
		}
		return export.Encode(os.Stdout, export.FormatYAML, p)
	},
}

var profileResolveCmd = &cobra.Command{
	Use:   "resolve",
	Short: "Show which profile a request resolves to",
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := resolveProfile(roleFlags(cmd))
		if err != nil {
			return err
		}
		fmt.Println(p.Name)
		return nil
	},
}

var profileCheckCmd = &cobra.Command{
	Use:   "check <file>...",
	Short: "Parse and check profile YAML files",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		bad := 0
		for _, path := range args {
			data, err := os.ReadFile(path)
			if err == nil {
				_, err = profile.Parse(data)
			}
			if err != nil {
				bad++
				fmt.Printf("%s  %s: %v\n", verdict(false), path, err)
				continue
			}
			fmt.Printf("%s  %s\n", verdict(true), path)
		}
		if bad > 0 {
			return fmt.Errorf("%d profile file(s) invalid", bad)
		}
		return nil
	},
}

func init() {
	profileShowCmd.Flags().Bool("json", false, "output as JSON")
	addRoleFlags(profileResolveCmd)

	profileCmd.AddCommand(profileListCmd)
	profileCmd.AddCommand(profileShowCmd)
	profileCmd.AddCommand(profileResolveCmd)
	profileCmd.AddCommand(profileCheckCmd)

	rootCmd.AddCommand(profileCmd)
}
