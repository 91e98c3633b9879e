// Copyright 2026 Blink Labs Software
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
	"log/slog"
	"os"

	"github.com/blinklabs-io/sweepwars/internal/node"
	"github.com/spf13/cobra"
)

func inspectCommand() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "inspect",
		Short: "Print stored reward distributions, war outcomes and checkpoints",
		Run: func(cmd *cobra.Command, _ []string) {
			cfg := configFromCommand(cmd)
			logger := commonRun()
			if err := node.Inspect(cfg, logger, cmd.OutOrStdout(), limit); err != nil {
				slog.Error(err.Error())
				os.Exit(1)
			}
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "number of epochs and wars to show")
	return cmd
}
