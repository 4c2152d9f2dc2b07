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
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/blinklabs-io/golivestatus/query"
)

func newQueryCommand() *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "query [QUERY]",
		Short: "Send a raw Livestatus query",
		Long: `Send a raw Livestatus query, given as an argument, read from --file or
read from standard input. Use "\n" in an argument to separate lines.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := readRawQuery(cmd.InOrStdin(), file, args)
			if err != nil {
				return err
			}
			client, err := newClient(cmd)
			if err != nil {
				return err
			}
			format := detectOutputFormat(raw)
			res := client.Execute(cmd.Context(), raw, format, nil)
			if !res.OK {
				return queryError(res)
			}
			return writeResult(cmd.OutOrStdout(), flags.output, nil, res.Data)
		},
	}
	cmd.Flags().StringVar(&file, "file", "", "read the query from a file")
	return cmd
}

func readRawQuery(stdin io.Reader, file string, args []string) (string, error) {
	var raw string
	switch {
	case len(args) == 1:
		raw = strings.ReplaceAll(args[0], `\n`, "\n")
	case file != "":
		data, err := os.ReadFile(file)
		if err != nil {
			return "", err
		}
		raw = string(data)
	default:
		data, err := io.ReadAll(stdin)
		if err != nil {
			return "", fmt.Errorf("read query: %w", err)
		}
		raw = string(data)
	}
	if strings.TrimSpace(raw) == "" {
		return "", errors.New("empty query")
	}
	return raw, nil
}

// detectOutputFormat reports JSON when the raw query asks the server for it
func detectOutputFormat(raw string) query.OutputFormat {
	for _, line := range strings.Split(raw, "\n") {
		key, value, ok := strings.Cut(line, ":")
		if !ok || !strings.EqualFold(strings.TrimSpace(key), "OutputFormat") {
			continue
		}
		if format, err := query.ParseOutputFormat(value); err == nil {
			return format
		}
	}
	return query.OutputFormatText
}
