////////////////////////////////////////////////////////////////////////////////
// Copyright © 2022 xx foundation                                             //
//                                                                            //
// Use of this source code is governed by a license that can be found in the  //
// LICENSE file.                                                              //
////////////////////////////////////////////////////////////////////////////////

// Handles command-line version functionality

package cmd

import (
	"fmt"
	"runtime/debug"
	"strings"

	"github.com/spf13/cobra"
)

// Change this value to set the version for this build
const SEMVER = "0.1.0"

// Version returns the version of the binary and its module dependencies.
func Version() string {
	out := fmt.Sprintf("teamsync v%s\n\n", SEMVER)

	info, ok := debug.ReadBuildInfo()
	if !ok {
		return out
	}

	deps := make([]string, 0, len(info.Deps))
	for _, dep := range info.Deps {
		deps = append(deps, "\t"+dep.Path+" "+dep.Version)
	}
	out += fmt.Sprintf("Dependencies:\n\n%s\n", strings.Join(deps, "\n"))
	return out
}

func init() {
	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version and dependency information for the teamsync binary",
	Long:  `Print the version and dependency information for the teamsync binary`,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Print(Version())
	},
}
