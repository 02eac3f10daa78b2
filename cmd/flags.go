////////////////////////////////////////////////////////////////////////////////
// Copyright © 2022 xx foundation                                             //
//                                                                            //
// Use of this source code is governed by a license that can be found in the  //
// LICENSE file.                                                              //
////////////////////////////////////////////////////////////////////////////////

package cmd

import (
	"github.com/spf13/cobra"
	jww "github.com/spf13/jwalterweatherman"
	"github.com/spf13/viper"
)

// CLI flag names shared between root and subcommands. Pull flag values with
// viper using these constants.
const (
	// Config file
	configFlag = "config"

	// Session flags
	sessionFlag  = "session"
	passwordFlag = "password"

	// Server flags
	serverFlag         = "server"
	tokenFlag          = "token"
	activeFlag         = "active"
	skipBootstrapFlag  = "skip-bootstrap"
	requestRateFlag    = "requestsPerSecond"
	requestTimeoutFlag = "requestTimeout"

	// Run flags
	waitTimeoutFlag = "waitTimeout"

	// Typing flags
	channelFlag = "channel"
	rootFlag    = "root"

	// Log flags
	logLevelFlag = "logLevel"
	logFlag      = "log"

	// Profiling
	profileCpuFlag = "profile-cpu"
)

// bindFlagHelper binds the key to a pflag.Flag used by Cobra and prints an
// error if one occurs.
func bindFlagHelper(key string, command *cobra.Command) {
	err := viper.BindPFlag(key, command.Flags().Lookup(key))
	if err != nil {
		jww.ERROR.Printf("viper.BindPFlag failed for %q: %+v", key, err)
	}
}

// bindPersistentFlagHelper binds the key to a persistent pflag.Flag used by
// Cobra and prints an error if one occurs.
func bindPersistentFlagHelper(key string, command *cobra.Command) {
	err := viper.BindPFlag(key, command.PersistentFlags().Lookup(key))
	if err != nil {
		jww.ERROR.Printf("viper.BindPFlag failed for %q: %+v", key, err)
	}
}
