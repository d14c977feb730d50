package command

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/priyanshu442004/WatchParty/internal/config"
	"github.com/priyanshu442004/WatchParty/internal/media"
	"github.com/priyanshu442004/WatchParty/internal/rtc"
	"github.com/priyanshu442004/WatchParty/internal/session"
	"github.com/priyanshu442004/WatchParty/internal/ui"
)

var (
	flagJoinName     string
	flagJoinDomain   string
	flagJoinInsecure bool
	flagJoinSTUN     string
	flagJoinTURN     string
	flagJoinTURNUser string
	flagJoinTURNPass string
	flagJoinRelay    bool
	flagJoinTimeout  time.Duration
)

var joinCmd = &cobra.Command{
	Use:     "join <room-id>",
	Aliases: []string{"j"},
	Short:   "Join a room and start a call",
	Long: `Join a room by id and exchange camera, microphone and screen capture
with everyone in it.

Examples:
  watchparty join 4f6b2c --name alice
  watchparty join 4f6b2c --name bob --domain my.server.dev --insecure
  watchparty join 4f6b2c --relay`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return joinRoom(args[0])
	},
}

func joinRoom(roomID string) error {
	if roomID == "" {
		return fmt.Errorf("room ID cannot be empty")
	}

	cfg, err := config.Load(config.Options{
		Domain:     flagJoinDomain,
		Insecure:   flagJoinInsecure,
		STUNServer: flagJoinSTUN,
		TURNServer: flagJoinTURN,
		TURNUser:   flagJoinTURNUser,
		TURNPass:   flagJoinTURNPass,
		ForceRelay: flagJoinRelay,
	})
	if err != nil {
		return err
	}

	userName := flagJoinName
	if userName == "" {
		userName = os.Getenv("USER")
	}
	if userName == "" {
		userName = "guest"
	}

	acquirer, err := media.NewDeviceAcquirer()
	if err != nil {
		return fmt.Errorf("media devices: %w", err)
	}

	fmt.Println()
	spin := ui.NewConnectionSpinner("Connecting to server...")
	spin.Start()
	channel := session.NewChannel(cfg.WebSocketURL)
	if err := channel.Connect(); err != nil {
		spin.Error("Connection failed")
		return err
	}
	defer channel.Close()
	spin.Stop()

	updates := make(chan session.Snapshot, 16)
	sess := session.New(session.Config{
		Transport:          channel,
		NewConn:            rtc.NewFactory(cfg),
		Acquirer:           acquirer,
		RoomID:             roomID,
		UserName:           userName,
		NegotiationTimeout: flagJoinTimeout,
		OnUpdate: func(snap session.Snapshot) {
			select {
			case updates <- snap:
			default:
			}
		},
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	var runErr error
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		runErr = sess.Run(ctx)
		done <- runErr
	}()

	model := ui.NewCallModel(sess, roomID, updates, done)
	if _, err := tea.NewProgram(model).Run(); err != nil {
		cancel()
		wg.Wait()
		return fmt.Errorf("render call view: %w", err)
	}

	cancel()
	wg.Wait()

	switch {
	case runErr == nil, errors.Is(runErr, context.Canceled):
		ui.PrintSuccess("Left the room.")
		return nil
	case errors.Is(runErr, session.ErrChannelClosed):
		return fmt.Errorf("lost connection to the signaling server")
	default:
		return runErr
	}
}

func init() {
	rootCmd.AddCommand(joinCmd)

	joinCmd.Flags().StringVarP(&flagJoinName, "name", "n", "", "Display name shown to other participants")
	joinCmd.Flags().StringVar(&flagJoinDomain, "domain", "", "Custom server domain")
	joinCmd.Flags().BoolVar(&flagJoinInsecure, "insecure", false, "Use ws/http instead of wss/https")
	joinCmd.Flags().StringVarP(&flagJoinSTUN, "stun", "s", "", "Custom STUN server")
	joinCmd.Flags().StringVarP(&flagJoinTURN, "turn", "t", "", "Custom TURN server")
	joinCmd.Flags().StringVar(&flagJoinTURNUser, "turn-user", "", "TURN username")
	joinCmd.Flags().StringVar(&flagJoinTURNPass, "turn-pass", "", "TURN password")
	joinCmd.Flags().BoolVarP(&flagJoinRelay, "relay", "r", false, "Force relay mode")
	joinCmd.Flags().DurationVar(&flagJoinTimeout, "negotiation-timeout", 30*time.Second, "Per-peer negotiation deadline")
}
