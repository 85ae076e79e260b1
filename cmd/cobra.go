package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ChenBigdata421/jxt-customer-gateway/cmd/api"
	"github.com/ChenBigdata421/jxt-customer-gateway/cmd/migrate"
)

var rootCmd = &cobra.Command{
	Use:          "customer-gateway",
	Short:        "customer-gateway",
	SilenceUsage: true,
	Long:         `customer-gateway 客户查询网关：同步查询客户并把请求镜像到事件总线`,
	Args: func(cmd *cobra.Command, args []string) error {
		if len(args) < 1 {
			return errors.New("requires at least one arg")
		}
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return fmt.Errorf("unknown command %q, try `customer-gateway server -c config/settings.yml`", args[0])
	},
}

func init() {
	rootCmd.AddCommand(api.StartCmd)
	rootCmd.AddCommand(migrate.StartCmd)
}

// Execute : apply commands
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(-1)
	}
}
