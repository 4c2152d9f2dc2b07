// Copyright 2025 Blink Labs Software
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	livestatus "github.com/blinklabs-io/golivestatus"
	"github.com/blinklabs-io/golivestatus/query"
	"github.com/blinklabs-io/golivestatus/response"
)

func newGetCommand() *cobra.Command {
	var (
		columns    []string
		filters    []string
		stats      []string
		limit      int
		format     string
		allowEmpty bool
		strict     bool
	)
	cmd := &cobra.Command{
		Use:   "get TABLE",
		Short: "Run a GET query against a table",
		Long: `Run a GET query against a table.

Filters and stats are given one condition per flag. A value of "&N" or "|N"
combines the N preceding entries with And/Or, and "!" negates the preceding
entry:

  livestatus get services --columns host_name,description \
    --filter "state = 2" --filter "acknowledged = 0" --filter "&2"`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var extra []livestatus.ClientOptionFunc
			if cmd.Flags().Changed("strict") {
				extra = append(extra, livestatus.WithStrict(strict))
			}
			client, err := newClient(cmd, extra...)
			if err != nil {
				return err
			}
			req := livestatus.GetRequest{
				Table:        args[0],
				Columns:      columns,
				Filters:      filters,
				Stats:        stats,
				OutputFormat: format,
			}
			if cmd.Flags().Changed("limit") {
				req.Limit = &limit
			}
			if cmd.Flags().Changed("allow-empty") {
				req.AllowEmptyList = &allowEmpty
			}
			res := client.Get(cmd.Context(), req)
			for _, warning := range res.Warnings {
				fmt.Fprintf(cmd.ErrOrStderr(), "warning: %s\n", warning)
			}
			if !res.OK {
				return queryError(res)
			}
			header := columns
			if len(stats) > 0 {
				header = nil
			}
			return writeResult(cmd.OutOrStdout(), flags.output, header, res.Data)
		},
	}
	f := cmd.Flags()
	f.StringSliceVar(&columns, "columns", nil, "comma-separated list of columns to return")
	f.StringArrayVarP(&filters, "filter", "f", nil, "filter condition or combinator (repeatable)")
	f.StringArrayVarP(&stats, "stats", "s", nil, "stats condition or combinator (repeatable)")
	f.IntVar(&limit, "limit", 0, "maximum number of rows")
	f.StringVar(&format, "format", query.OutputFormatJSON.String(), "response format requested from the server: json or text")
	f.BoolVar(&allowEmpty, "allow-empty", true, "treat an empty result list as success")
	f.BoolVar(&strict, "strict", false, "fail on malformed filter/stats entries instead of dropping them")
	return cmd
}

func queryError(res livestatus.Result) error {
	if res.Err != nil {
		return res.Err
	}
	return errors.New(response.FailureMessage)
}
