package cmd

import (
	"github.com/spf13/cobra"

	"caraudio/pkg/build"
)

// One-off commands that exit without starting the arbiter.
const (
	CommandPolicy  = "policy"
	CommandVersion = "version"
)

// Options holds what was given on the command line.
type Options struct {
	ConfigPath string // YAML config file, empty to search the defaults
	Routing    string // routing policy overriding every hw variant
	Verbose    bool   // force debug logging
	TUIMode    bool   // run the interactive status screen
	Command    string // one-off command to execute instead of the daemon
	Run        bool   // start the daemon
}

// ParseArgs parses args (without the program name).
func ParseArgs(args []string) (*Options, error) {
	buildInfo := build.GetBuildInfo()
	options := &Options{}

	rootCmd := &cobra.Command{
		Use:           buildInfo.Name,
		Short:         buildInfo.Description,
		Version:       buildInfo.Version,
		SilenceErrors: true,
		SilenceUsage:  true,
		Args:          cobra.NoArgs,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd:   true,
			DisableDescriptions: true,
			DisableNoDescFlag:   true,
			HiddenDefaultCmd:    true,
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			options.Run = true
			return nil
		},
	}

	// Display help message
	rootCmd.SetHelpCommand(&cobra.Command{Hidden: true})

	rootCmd.AddCommand(&cobra.Command{
		Use:   CommandPolicy,
		Short: "Print the routing policy in effect and exit",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			options.Command = CommandPolicy
		},
	})
	rootCmd.AddCommand(&cobra.Command{
		Use:   CommandVersion,
		Short: "Print build information and exit",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			options.Command = CommandVersion
		},
	})

	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&options.ConfigPath, "config", "c", "",
		"Path to the YAML configuration file (default: caraudio.yaml or config.yaml)")
	flags.StringVarP(&options.Routing, "routing", "r", "",
		"Routing policy overriding the configured one, e.g. \"0:media,call,unknown#1:nav_guidance\"")
	flags.BoolVarP(&options.Verbose, "verbose", "v", false,
		"Show verbose output")
	flags.BoolVarP(&options.TUIMode, "tui", "t", false,
		"Show the interactive status screen with simulator controls")

	rootCmd.SetArgs(args)
	if err := rootCmd.Execute(); err != nil {
		return nil, err
	}

	return options, nil
}
