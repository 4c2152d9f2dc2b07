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
	"strings"

	"github.com/peterh/liner"
	"github.com/spf13/cobra"

	livestatus "github.com/blinklabs-io/golivestatus"
)

const (
	shellPrompt             = "livestatus> "
	shellContinuationPrompt = "        ... "
)

func newShellCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "shell",
		Short: "Interactive query shell",
		Long: `Start an interactive shell. Type a query one header per line and finish it
with an empty line to send it. Type "exit" or press Ctrl-D to leave.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := newClient(cmd)
			if err != nil {
				return err
			}
			line := liner.NewLiner()
			defer line.Close()
			line.SetCtrlCAborts(true)
			return runShell(cmd, client, line)
		},
	}
}

func runShell(cmd *cobra.Command, client *livestatus.Client, line *liner.State) error {
	out := cmd.OutOrStdout()
	var pending []string
	for {
		prompt := shellPrompt
		if len(pending) > 0 {
			prompt = shellContinuationPrompt
		}
		input, err := line.Prompt(prompt)
		if err != nil {
			if errors.Is(err, io.EOF) {
				fmt.Fprintln(out)
				return nil
			}
			if errors.Is(err, liner.ErrPromptAborted) {
				// Ctrl-C discards the query being typed
				pending = nil
				continue
			}
			return err
		}
		trimmed := strings.TrimSpace(input)
		if len(pending) == 0 && (trimmed == "exit" || trimmed == "quit") {
			return nil
		}
		if trimmed != "" {
			pending = append(pending, trimmed)
			continue
		}
		if len(pending) == 0 {
			continue
		}
		raw := strings.Join(pending, "\n")
		line.AppendHistory(strings.Join(pending, " "))
		pending = nil
		res := client.Execute(cmd.Context(), raw, detectOutputFormat(raw), nil)
		if !res.OK {
			fmt.Fprintf(cmd.ErrOrStderr(), "error: %s\n", queryError(res))
			continue
		}
		if err := writeResult(out, flags.output, nil, res.Data); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "error: %s\n", err)
		}
	}
}
