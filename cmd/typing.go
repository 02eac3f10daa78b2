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

// typingCmd tells the active server that the local user is typing.
var typingCmd = &cobra.Command{
	Use:   "typing",
	Short: "Announce that you are typing in a channel of the active server",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		s := initSession()
		defer s.close()

		serverURL, err := s.mgr.GetActiveServerURL()
		if err != nil {
			jww.FATAL.Panicf("%+v", err)
		}

		if err = s.connect(serverURL); err != nil {
			jww.FATAL.Panicf("Failed to connect to %s: %+v", serverURL, err)
		}

		channelID := viper.GetString(channelFlag)
		s.reconciler.UserTyping(serverURL, channelID, viper.GetString(rootFlag))
		jww.INFO.Printf("Sent typing in %s to %s", channelID, serverURL)
	},
}

func init() {
	typingCmd.Flags().String(channelFlag, "", "ID of the channel")
	bindFlagHelper(channelFlag, typingCmd)
	_ = typingCmd.MarkFlagRequired(channelFlag)

	typingCmd.Flags().String(rootFlag, "",
		"ID of the thread root post when typing in a thread")
	bindFlagHelper(rootFlag, typingCmd)

	rootCmd.AddCommand(typingCmd)
}
