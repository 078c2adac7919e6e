package client

import (
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/spf13/cobra"
)

// NewStatusCommand constructs the `status` subcommand.
func NewStatusCommand(baseURL BaseURLFunc) *cobra.Command {
	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show server pipeline counters",
		RunE: func(cmd *cobra.Command, _ []string) error {
			req, err := http.NewRequestWithContext(cmd.Context(), http.MethodGet,
				baseURL()+"/v1/status", nil)
			if err != nil {
				return err
			}
			addToken(req)
			resp, err := http.DefaultClient.Do(req)
			if err != nil {
				return err
			}
			defer resp.Body.Close()
			b, err := io.ReadAll(resp.Body)
			if err != nil {
				return err
			}
			if resp.StatusCode != http.StatusOK {
				return fmt.Errorf("status failed: %s: %s", resp.Status, strings.TrimSpace(string(b)))
			}
			fmt.Fprintln(cmd.OutOrStdout(), strings.TrimSpace(string(b)))
			return nil
		},
	}
	return statusCmd
}
