package command

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"github.com/priyanshu442004/WatchParty/internal/config"
	"github.com/priyanshu442004/WatchParty/internal/ui"
)

var (
	flagRoomsDomain   string
	flagRoomsInsecure bool
)

var roomsCmd = &cobra.Command{
	Use:     "rooms",
	Aliases: []string{"room"},
	Short:   "Browse and create rooms",
}

var roomsListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List rooms on the server",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return listRooms()
	},
}

var roomsCreateCmd = &cobra.Command{
	Use:   "create <name>",
	Short: "Create a new room",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return createRoom(args[0])
	},
}

var roomsShowCmd = &cobra.Command{
	Use:   "show <room-id>",
	Short: "Show a room and who is in it",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return showRoom(args[0])
	},
}

type roomRecord struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

type participantRecord struct {
	Name          string `json:"name"`
	VideoEnabled  bool   `json:"video_enabled"`
	AudioEnabled  bool   `json:"audio_enabled"`
	ScreenSharing bool   `json:"screen_sharing"`
}

type roomDetailRecord struct {
	Room             roomRecord                   `json:"room"`
	Participants     map[string]participantRecord `json:"participants"`
	ParticipantCount int                          `json:"participant_count"`
}

func listRooms() error {
	cfg, err := roomsConfig()
	if err != nil {
		return err
	}

	var rooms []roomRecord
	if err := apiGet(cfg, "/rooms", &rooms); err != nil {
		return err
	}

	rows := make([]ui.RoomRow, 0, len(rooms))
	for _, r := range rooms {
		rows = append(rows, ui.RoomRow{ID: r.ID, Name: r.Name, CreatedAt: r.CreatedAt})
	}
	ui.RenderRoomsTable(rows)
	return nil
}

func createRoom(name string) error {
	cfg, err := roomsConfig()
	if err != nil {
		return err
	}

	body, err := json.Marshal(map[string]string{"name": name})
	if err != nil {
		return err
	}

	resp, err := apiClient().Post(cfg.APIBaseURL+"/rooms", "application/json", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create room: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		return apiError("create room", resp)
	}

	var room roomRecord
	if err := json.NewDecoder(resp.Body).Decode(&room); err != nil {
		return fmt.Errorf("decode room: %w", err)
	}

	fmt.Println(ui.RoomCreatedView(room.ID, room.Name))
	return nil
}

func showRoom(roomID string) error {
	cfg, err := roomsConfig()
	if err != nil {
		return err
	}

	var detail roomDetailRecord
	if err := apiGet(cfg, "/rooms/"+roomID, &detail); err != nil {
		return err
	}

	rows := make([]ui.ParticipantRow, 0, len(detail.Participants))
	for _, p := range detail.Participants {
		rows = append(rows, ui.ParticipantRow{
			Name:          p.Name,
			VideoEnabled:  p.VideoEnabled,
			AudioEnabled:  p.AudioEnabled,
			ScreenSharing: p.ScreenSharing,
		})
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Name < rows[j].Name })

	fmt.Println(ui.RoomDetailView(ui.RoomRow{
		ID:        detail.Room.ID,
		Name:      detail.Room.Name,
		CreatedAt: detail.Room.CreatedAt,
	}, rows))
	return nil
}

func roomsConfig() (*config.Config, error) {
	return config.Load(config.Options{
		Domain:   flagRoomsDomain,
		Insecure: flagRoomsInsecure,
	})
}

func apiClient() *http.Client {
	return &http.Client{Timeout: 10 * time.Second}
}

func apiGet(cfg *config.Config, path string, out any) error {
	resp, err := apiClient().Get(cfg.APIBaseURL + path)
	if err != nil {
		return fmt.Errorf("reach server: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return apiError("fetch "+path, resp)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func apiError(op string, resp *http.Response) error {
	var body struct {
		Error string `json:"error"`
	}
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if json.Unmarshal(data, &body) == nil && body.Error != "" {
		return fmt.Errorf("%s: %s", op, body.Error)
	}
	return fmt.Errorf("%s: server returned %s", op, resp.Status)
}

func init() {
	rootCmd.AddCommand(roomsCmd)
	roomsCmd.AddCommand(roomsListCmd, roomsCreateCmd, roomsShowCmd)

	roomsCmd.PersistentFlags().StringVar(&flagRoomsDomain, "domain", "", "Custom server domain")
	roomsCmd.PersistentFlags().BoolVar(&flagRoomsInsecure, "insecure", false, "Use http instead of https")
}
