package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/dmitrijs2005/memoria/internal/common"
	"github.com/spf13/cobra"
)

func (r *runner) newGetCmd() *cobra.Command {
	var (
		query   []string
		refresh bool
	)

	cmd := &cobra.Command{
		Use:   "get <path>",
		Short: "Fetch an API resource through the response cache",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := r.requireApp()
			if err != nil {
				return err
			}

			q, err := parseQuery(query)
			if err != nil {
				return err
			}

			ctx, cancel := app.requestContext(cmd.Context())
			defer cancel()

			if refresh {
				app.api.Invalidate(ctx, args[0], q)
			}

			env, err := app.api.GetCached(ctx, args[0], q)
			if err != nil {
				return err
			}
			if !env.OK() {
				return fmt.Errorf("%w: code %d: %s", common.ErrServer, env.Code, env.Message)
			}

			return printData(r, env.Data)
		},
	}

	cmd.Flags().StringArrayVarP(&query, "query", "q", nil, "Query parameter as key=value (repeatable)")
	cmd.Flags().BoolVar(&refresh, "refresh", false, "Ignore any cached response")

	return cmd
}

func parseQuery(pairs []string) (url.Values, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	q := url.Values{}
	for _, p := range pairs {
		k, v, ok := strings.Cut(p, "=")
		if !ok || k == "" {
			return nil, fmt.Errorf("invalid query parameter %q, expected key=value", p)
		}
		q.Add(k, v)
	}
	return q, nil
}

func printData(r *runner, data json.RawMessage) error {
	if len(data) == 0 {
		fmt.Fprintln(r.out, "{}")
		return nil
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, data, "", "  "); err != nil {
		return fmt.Errorf("%w: malformed response data", common.ErrServer)
	}
	buf.WriteByte('\n')
	_, err := buf.WriteTo(r.out)
	return err
}
