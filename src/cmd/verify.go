package cmd

import (
	"github.com/pactline/escrowd/src/utils/logger"
	"github.com/pactline/escrowd/src/verify"

	"github.com/spf13/cobra"
)

func init() {
	RootCmd.AddCommand(verifyCmd)
}

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Dispatch due verification checks and finalize elapsed deals",
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		controller, err := verify.NewController(conf)
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
		log.Debug("Finished verify command")
		applicationCtxCancel()
		return
	},
}
