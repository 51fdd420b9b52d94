// Package cmd implements the tupledb command line tools.
package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"tupledb/pkg/config"
	"tupledb/pkg/logging"
	"tupledb/pkg/tuple"
	"tupledb/pkg/types"
)

var (
	rootCmd = &cobra.Command{
		Use:               "tupledb",
		Short:             "Inspect and analyze tupledb heap files",
		PersistentPreRunE: preRun,
	}

	configFile string
	noConfig   bool
	logLevel   string
	schemaSpec string

	cfg          = config.Default()
	logLevelFlag *pflag.Flag
)

func init() {
	fs := rootCmd.PersistentFlags()
	fs.StringVar(&configFile, "config-file", "tupledb.hcl", "`file` to load config from")
	fs.BoolVar(&noConfig, "no-config", false, "don't load a config file")
	fs.StringVar(&logLevel, "log-level", "INFO", "log level: DEBUG, INFO, WARN, or ERROR")
	fs.StringVar(&schemaSpec, "schema", "int", "comma-separated field types, e.g. int,string,int")

	logLevelFlag = fs.Lookup("log-level")
}

func preRun(cmd *cobra.Command, args []string) error {
	if !noConfig {
		loaded, err := config.Load(configFile)
		if err == nil {
			cfg = loaded
		}
	}
	// A flag given on the command line wins over the config file.
	if logLevelFlag.Changed {
		cfg.LogLevel = logLevel
	}

	return logging.Init(logging.Config{
		Level:  logging.LogLevel(cfg.LogLevel),
		Format: cfg.LogFormat,
	})
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// parseSchema turns the --schema flag into a TupleDescription with
// generated field names.
func parseSchema(spec string) (*tuple.TupleDescription, error) {
	parts := strings.Split(spec, ",")
	fieldTypes := make([]types.Type, 0, len(parts))
	fieldNames := make([]string, 0, len(parts))

	for i, part := range parts {
		switch strings.ToLower(strings.TrimSpace(part)) {
		case "int":
			fieldTypes = append(fieldTypes, types.IntType)
		case "string":
			fieldTypes = append(fieldTypes, types.StringType)
		default:
			return nil, fmt.Errorf("unknown field type %q in schema", part)
		}
		fieldNames = append(fieldNames, fmt.Sprintf("f%d", i))
	}

	return tuple.NewTupleDesc(fieldTypes, fieldNames)
}
