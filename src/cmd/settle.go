package cmd

import (
	"github.com/pactline/escrowd/src/settle"
	"github.com/pactline/escrowd/src/utils/logger"

	"github.com/spf13/cobra"
)

func init() {
	RootCmd.AddCommand(settleCmd)
}

var settleCmd = &cobra.Command{
	Use:   "settle",
	Short: "Retry parked settlements once their payment connection exists",
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		controller, err := settle.NewController(conf)
		if err != nil {
			return
		}

		err = controller.Start()
		if err != nil {
			return
		}

		select {
		case <-controller.CtxRunning.Done():
		case <-applicationCtx.Done():
		}

		controller.StopWait()

		return
	},
	PostRunE: func(cmd *cobra.Command, args []string) (err error) {
		log := logger.NewSublogger("root-cmd")
		log.Debug("Finished settle command")
		applicationCtxCancel()
		return
	},
}
