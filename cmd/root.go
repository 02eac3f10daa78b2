////////////////////////////////////////////////////////////////////////////////
// Copyright © 2022 xx foundation                                             //
//                                                                            //
// Use of this source code is governed by a license that can be found in the  //
// LICENSE file.                                                              //
////////////////////////////////////////////////////////////////////////////////

// Package cmd initializes the CLI and config parsers as well as the logger.
package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pkg/profile"
	"github.com/spf13/cobra"
	jww "github.com/spf13/jwalterweatherman"
	"github.com/spf13/viper"
)

// Execute adds all child commands to the root command and sets flags
// appropriately. This is called by main.main(). It only needs to happen once
// to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "teamsync",
	Short: "Keeps local user records of team chat servers in sync",
	Long: `Connects to every saved server, applies user_updated events to the ` +
		`local records and prints typing events of the active server.`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		if profileOut := viper.GetString(profileCpuFlag); profileOut != "" {
			defer profile.Start(profile.CPUProfile,
				profile.ProfilePath(profileOut), profile.NoShutdownHook).Stop()
		}

		s := initSession()
		defer s.close()

		connected := 0
		for _, serverURL := range s.mgr.ServerURLs() {
			if err := s.connect(serverURL); err != nil {
				jww.ERROR.Printf("Failed to connect to %s: %+v", serverURL, err)
				continue
			}
			connected++
		}
		if connected == 0 {
			jww.FATAL.Panicf("Could not connect to any server")
		}
		jww.INFO.Printf("Connected to %d servers", connected)

		// Wait until the user terminates the program or the timeout passes
		c := make(chan os.Signal, 1)
		signal.Notify(c, os.Interrupt, syscall.SIGTERM)

		var timeout <-chan time.Time
		if waitTimeout := viper.GetDuration(waitTimeoutFlag); waitTimeout > 0 {
			timeout = time.After(waitTimeout)
		}

		select {
		case <-c:
			jww.INFO.Printf("Received signal, shutting down")
		case <-timeout:
			jww.INFO.Printf("Wait timeout reached, shutting down")
		}
	},
}

// init is the initialization function for Cobra which defines commands
// and flags.
func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String(configFlag, "",
		"Path to a YAML config file holding any of these flags")
	bindPersistentFlagHelper(configFlag, rootCmd)

	rootCmd.PersistentFlags().UintP(logLevelFlag, "v", 0,
		"Verbose mode for debugging")
	bindPersistentFlagHelper(logLevelFlag, rootCmd)

	rootCmd.PersistentFlags().StringP(logFlag, "l", "-",
		"Path to the log output path (- is stdout)")
	bindPersistentFlagHelper(logFlag, rootCmd)

	rootCmd.PersistentFlags().StringP(sessionFlag, "s", "",
		"Storage directory for the session; empty keeps everything in memory")
	bindPersistentFlagHelper(sessionFlag, rootCmd)

	rootCmd.PersistentFlags().StringP(passwordFlag, "p", "",
		"Password to the session storage")
	bindPersistentFlagHelper(passwordFlag, rootCmd)

	rootCmd.PersistentFlags().String(serverFlag, "",
		"URL of a server to add to the session")
	bindPersistentFlagHelper(serverFlag, rootCmd)

	rootCmd.PersistentFlags().String(tokenFlag, "",
		"Personal access or session token for --server")
	bindPersistentFlagHelper(tokenFlag, rootCmd)

	rootCmd.PersistentFlags().String(activeFlag, "",
		"URL of the server to make active")
	bindPersistentFlagHelper(activeFlag, rootCmd)

	rootCmd.PersistentFlags().Bool(skipBootstrapFlag, false,
		"Do not fetch the current user, config and license on connect")
	bindPersistentFlagHelper(skipBootstrapFlag, rootCmd)

	rootCmd.PersistentFlags().Int(requestRateFlag, 10,
		"Maximum number of REST requests per second to each server")
	bindPersistentFlagHelper(requestRateFlag, rootCmd)

	rootCmd.PersistentFlags().Duration(requestTimeoutFlag, 30*time.Second,
		"Timeout of each REST request")
	bindPersistentFlagHelper(requestTimeoutFlag, rootCmd)

	rootCmd.PersistentFlags().String(profileCpuFlag, "",
		"Enable cpu profiling and write the profile to this directory")
	bindPersistentFlagHelper(profileCpuFlag, rootCmd)

	rootCmd.Flags().Duration(waitTimeoutFlag, 0,
		"Exit after this long; 0 waits for an interrupt")
	bindFlagHelper(waitTimeoutFlag, rootCmd)
}

// initConfig reads in the config file if one is set.
func initConfig() {
	configFile := viper.GetString(configFlag)
	if configFile == "" {
		return
	}

	viper.SetConfigFile(configFile)
	viper.SetConfigType("yaml")
	if err := viper.ReadInConfig(); err != nil {
		jww.FATAL.Panicf("Failed to read config %s: %+v", configFile, err)
	}
}
