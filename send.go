package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kube-rca/smsgate/internal/handler"
)

var sendTo string

var sendCmd = &cobra.Command{
	Use:     "send [message]",
	Short:   "Send a text to numbers once, without the HTTP server",
	Example: `  smsgate send -c /etc/smsgate.yaml --to "0601020304;0605060708" "disk full on db01"`,
	Args:    cobra.MinimumNArgs(1),
	RunE:    runSend,
}

func init() {
	sendCmd.Flags().StringVar(&sendTo, "to", "", "numbers separated by ;")
	_ = sendCmd.MarkFlagRequired("to")
}

func runSend(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	destinations := handler.SplitDestinations(sendTo)
	svc, store, err := newDispatchService(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	outcomes, err := svc.DispatchText(cmd.Context(), strings.Join(args, " "), destinations, dispatchOptions(cfg))
	if err != nil {
		return err
	}

	var failed []string
	for _, o := range outcomes {
		fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", o.Destination, o.Reason)
		if !o.Sent {
			failed = append(failed, o.Destination)
		}
	}
	if len(failed) > 0 {
		return fmt.Errorf("cannot send text to: %s", strings.Join(failed, ", "))
	}
	return nil
}
