package main

import (
	"fmt"
	"os"

	"github.com/nihei9/tether/envconfig"
	"github.com/spf13/cobra"
)

var configFlags = struct {
	example *bool
}{}

func init() {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Print the settings in effect and the variables that change them",
		Example: `  tether config
  tether config --example > tether.toml`,
		Args: cobra.NoArgs,
		RunE: runConfig,
	}
	configFlags.example = cmd.Flags().Bool("example", false, "print an example configuration file")
	rootCmd.AddCommand(cmd)
}

func runConfig(cmd *cobra.Command, args []string) error {
	if *configFlags.example {
		fmt.Fprint(os.Stdout, envconfig.ExampleFile())
		return nil
	}

	cfg, err := envconfig.Load()
	if err != nil {
		return err
	}
	vars := cfg.AsMap()
	for _, name := range cfg.Names() {
		v := vars[name]
		fmt.Fprintf(os.Stdout, "%v=%v\n    %v\n", v.Name, v.Value, v.Description)
	}
	return nil
}
