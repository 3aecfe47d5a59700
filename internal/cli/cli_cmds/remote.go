package cli_cmds

import (
	"errors"
	"fmt"
	"time"

	"github.com/ZanzyTHEbar/fireflyiii-go/internal/cli"
	"github.com/ZanzyTHEbar/fireflyiii-go/internal/nats_common"
	"github.com/spf13/cobra"
)

// NewRemote creates a command that controls a running poller over NATS
func NewRemote(params *cli.CmdParams) *cobra.Command {
	var (
		url     string
		subject string
		timeout time.Duration
	)

	remoteCmd := &cobra.Command{
		Use:       "remote <status|refresh>",
		Short:     "Send a control command to a running poller",
		Long:      `Send a control command over NATS to a poller started with publish.driver nats.`,
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"status", "refresh"},
		RunE: func(cmd *cobra.Command, args []string) error {
			if url == "" {
				url = params.Config.Publish.URL
			}
			if subject == "" {
				subject = params.Config.Publish.ControlSubject
			}
			if url == "" || subject == "" {
				return errors.New("remote needs a NATS url and control subject")
			}

			reply, err := nats_common.RequestControl(url, subject, args[0], timeout)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(reply))
			return nil
		},
	}

	remoteCmd.Flags().StringVar(&url, "url", "", "NATS server URL (default publish.url)")
	remoteCmd.Flags().StringVar(&subject, "subject", "", "Control subject (default publish.control_subject)")
	remoteCmd.Flags().DurationVar(&timeout, "timeout", 2*time.Minute, "How long to wait for the reply")

	return remoteCmd
}
