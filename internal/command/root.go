package command

import (
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/priyanshu442004/WatchParty/internal/ui"
	"github.com/priyanshu442004/WatchParty/internal/version"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "watchparty",
	Short: "Group video chat in your terminal, powered by WebRTC",
	Long: `WatchParty joins named rooms where every participant exchanges camera,
microphone and screen capture directly with every other participant over
WebRTC. The server only relays negotiation messages; media never touches it.`,
	Version: version.Version,
}

// Execute adds all child commands to the root command and sets flags
// appropriately. Called once from main.
func Execute() {
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt)
	go func() {
		<-sig
		os.Exit(0)
	}()

	rootCmd.SilenceErrors = true
	rootCmd.SilenceUsage = true

	if err := rootCmd.Execute(); err != nil {
		ui.PrintError(err.Error())
		os.Exit(1)
	}
}
