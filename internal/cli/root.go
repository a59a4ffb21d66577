package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"nutrition-engine/internal/infrastructure/config"
	"nutrition-engine/internal/pkg/common"
)

// 建置時透過 ldflags 注入
var (
	Version   = "dev"
	GitCommit = "unknown"
)

// RootOptions 全域旗標
type RootOptions struct {
	ConfigPath string
	LogLevel   string
	Output     string
	Timeout    time.Duration

	cfg *config.Config
}

// NewRootCommand 建立 nutrictl 根命令並註冊所有子命令
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:     "nutrictl",
		Short:   "Food resolution and condition-aware nutrient rating tools",
		Version: fmt.Sprintf("%s (commit: %s)", Version, GitCommit),
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.init()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			common.Sync()
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := cmd.PersistentFlags()
	pf.StringVarP(&opts.ConfigPath, "config", "c", "", "config file path (overrides APP_CONFIG_FILE)")
	pf.StringVar(&opts.LogLevel, "log-level", "", "log level (debug, info, warn, error)")
	pf.StringVarP(&opts.Output, "output", "o", "text", "output format (text, json)")
	pf.DurationVar(&opts.Timeout, "timeout", 30*time.Second, "operation timeout")

	cmd.AddCommand(
		newMigrateCommand(opts),
		newSeedCommand(opts),
		newResolveCommand(opts),
		newVitalCommand(opts),
		newTargetsCommand(opts),
	)
	return cmd
}

// Execute 執行 CLI
func Execute() error {
	return NewRootCommand().Execute()
}

func (o *RootOptions) init() error {
	if o.Output != "text" && o.Output != "json" {
		return fmt.Errorf("unsupported output format %q", o.Output)
	}
	if o.ConfigPath != "" {
		if err := os.Setenv("APP_CONFIG_FILE", o.ConfigPath); err != nil {
			return err
		}
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		return err
	}
	if o.LogLevel != "" {
		cfg.LogLevel = o.LogLevel
	}
	if err := common.InitLogger(cfg.LogLevel); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	o.cfg = cfg
	return nil
}

// print 依 --output 輸出；text 模式以 rows 繪製表格
func (o *RootOptions) print(w io.Writer, v interface{}, header []string, rows [][]string) error {
	if o.Output == "json" {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}

	table := tablewriter.NewWriter(w)
	if len(header) > 0 {
		table.Header(header)
	}
	for _, r := range rows {
		if err := table.Append(r); err != nil {
			return err
		}
	}
	return table.Render()
}
