package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/thywilljoshua/pdf-to-docx/internal/config"
	"github.com/thywilljoshua/pdf-to-docx/internal/logging"
)

// version is set at build time via ldflags.
var version = "dev"

// app carries what every subcommand needs once the root has loaded config.
type app struct {
	v   *viper.Viper
	cfg config.Config
	log zerolog.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{v: viper.New(), log: zerolog.Nop()}
	var cfgFile string

	root := &cobra.Command{
		Use:           "pdf2docx",
		Short:         "Convert a PDF into a Word (.docx) document",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
				return fmt.Errorf("load .env: %w", err)
			}
			config.Setup(a.v, cfgFile)
			if err := config.ReadFile(a.v); err != nil {
				return err
			}
			cfg, err := config.Load(a.v)
			if err != nil {
				return err
			}
			a.cfg = cfg
			a.log, err = logging.New(logging.Config{
				Level:   cfg.Log.Level,
				Format:  cfg.Log.Format,
				Output:  cmd.ErrOrStderr(),
				Service: "pdf2docx",
			})
			if err != nil {
				return err
			}
			if used := a.v.ConfigFileUsed(); used != "" {
				a.log.Debug().Str("file", used).Msg("config loaded")
			}
			return nil
		},
	}
	root.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./pdf2docx.yaml or ~/.config/pdf2docx/pdf2docx.yaml)")
	root.PersistentFlags().String("log-level", "", "log level: trace|debug|info|warn|error|off")
	root.PersistentFlags().String("log-format", "", "log format: console|json")
	_ = a.v.BindPFlag("log.level", root.PersistentFlags().Lookup("log-level"))
	_ = a.v.BindPFlag("log.format", root.PersistentFlags().Lookup("log-format"))

	root.AddCommand(convertCmd(a), infoCmd(), serveCmd(a), mcpCmd(a), versionCmd())
	return root
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
