package ui

import (
	"fmt"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

// RoomRow is one room as returned by the directory API.
type RoomRow struct {
	ID        string
	Name      string
	CreatedAt time.Time
}

// ParticipantRow is one live participant inside a room.
type ParticipantRow struct {
	Name          string
	VideoEnabled  bool
	AudioEnabled  bool
	ScreenSharing bool
}

func newTable() table.Writer {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.Style().Color.Header = text.Colors{text.FgCyan, text.Bold}
	return t
}

// RoomsTableView renders the room directory as a go-pretty table.
func RoomsTableView(rooms []RoomRow) string {
	if len(rooms) == 0 {
		return MutedStyle.Render("No rooms yet. Create one with `watchparty rooms create`.")
	}

	t := newTable()
	t.AppendHeader(table.Row{"Room ID", "Name", "Created"})
	for _, r := range rooms {
		t.AppendRow(table.Row{r.ID, r.Name, r.CreatedAt.Format("2006-01-02 15:04")})
	}
	return t.Render()
}

// RenderRoomsTable outputs the table directly to stdout.
func RenderRoomsTable(rooms []RoomRow) {
	fmt.Println(RoomsTableView(rooms))
}

// RoomDetailView renders one room with its live participants.
func RoomDetailView(room RoomRow, participants []ParticipantRow) string {
	header := fmt.Sprintf("%s %s %s\n",
		IconRoom, BoldStyle.Render(room.Name), MutedStyle.Render("("+room.ID+")"))

	if len(participants) == 0 {
		return header + MutedStyle.Render("Nobody is in this room right now.")
	}

	t := newTable()
	t.AppendHeader(table.Row{"Participant", "Video", "Audio", "Screen"})
	for _, p := range participants {
		t.AppendRow(table.Row{p.Name, onOff(p.VideoEnabled), onOff(p.AudioEnabled), onOff(p.ScreenSharing)})
	}
	return header + t.Render()
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}

// RoomCreatedView renders the post-create box with the join hint.
func RoomCreatedView(roomID, name string) string {
	content := fmt.Sprintf("%s Room Created!\n\n%s Name:     %s\n%s Room ID:  %s\n\nJoin with: %s",
		IconSuccess,
		IconRoom, BoldStyle.Foreground(Primary).Render(name),
		IconCopy, BoldStyle.Foreground(Primary).Render(roomID),
		MutedStyle.Render(fmt.Sprintf("watchparty join %s --name <you>", roomID)),
	)
	return SuccessBoxStyle.Render(content)
}
