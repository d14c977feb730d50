package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/priyanshu442004/WatchParty/internal/session"
)

// Controls is the slice of the session the call view drives. Implemented by
// *session.Session; methods are safe to call from the UI goroutine.
type Controls interface {
	ToggleVideo()
	ToggleAudio()
	StartScreenShare()
	StopScreenShare()
	SendChat(text string)
}

// SnapshotMsg carries a fresh session snapshot into the model.
type SnapshotMsg session.Snapshot

// SessionDoneMsg reports that the session loop returned.
type SessionDoneMsg struct {
	Err error
}

// CallModel is the Bubble Tea model for a live room: roster, chat log and a
// chat input line, updated from session snapshots.
type CallModel struct {
	controls Controls
	roomID   string

	updates <-chan session.Snapshot
	done    <-chan error

	snap   session.Snapshot
	joined bool

	spinner spinner.Model
	input   textinput.Model

	width    int
	quitting bool
	err      error
}

// NewCallModel creates the call view. updates delivers snapshots from the
// session loop; done delivers its exit error.
func NewCallModel(controls Controls, roomID string, updates <-chan session.Snapshot, done <-chan error) *CallModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = SpinnerStyle

	in := textinput.New()
	in.Placeholder = "Type a message and press Enter"
	in.Prompt = ChatNameStyle.Render("> ")
	in.CharLimit = 500
	in.Focus()

	return &CallModel{
		controls: controls,
		roomID:   roomID,
		updates:  updates,
		done:     done,
		spinner:  s,
		input:    in,
		width:    80,
	}
}

// Err reports the session exit error once the program finished.
func (m *CallModel) Err() error {
	return m.err
}

func (m *CallModel) Init() tea.Cmd {
	return tea.Batch(
		m.spinner.Tick,
		textinput.Blink,
		m.waitForSnapshot(),
		m.waitForDone(),
	)
}

func (m *CallModel) waitForSnapshot() tea.Cmd {
	return func() tea.Msg {
		snap, ok := <-m.updates
		if !ok {
			return nil
		}
		return SnapshotMsg(snap)
	}
}

func (m *CallModel) waitForDone() tea.Cmd {
	return func() tea.Msg {
		return SessionDoneMsg{Err: <-m.done}
	}
}

func (m *CallModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc":
			m.quitting = true
			return m, tea.Quit

		case "ctrl+o":
			m.controls.ToggleVideo()

		case "ctrl+u":
			m.controls.ToggleAudio()

		case "ctrl+s":
			if m.snap.ScreenSharing {
				m.controls.StopScreenShare()
			} else {
				m.controls.StartScreenShare()
			}

		case "enter":
			text := strings.TrimSpace(m.input.Value())
			if text != "" {
				m.controls.SendChat(text)
				m.input.Reset()
			}

		default:
			var cmd tea.Cmd
			m.input, cmd = m.input.Update(msg)
			cmds = append(cmds, cmd)
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.input.Width = min(60, msg.Width-10)

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		cmds = append(cmds, cmd)

	case SnapshotMsg:
		m.snap = session.Snapshot(msg)
		if m.snap.SelfID != "" {
			m.joined = true
		}
		cmds = append(cmds, m.waitForSnapshot())

	case SessionDoneMsg:
		m.err = msg.Err
		m.quitting = true
		return m, tea.Quit
	}

	return m, tea.Batch(cmds...)
}

func (m *CallModel) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder

	header := HeaderStyle.Render(fmt.Sprintf("%s WatchParty - Room %s", IconRoom, m.roomID))
	b.WriteString(header + "\n\n")

	if !m.joined {
		b.WriteString(fmt.Sprintf("%s Connecting to room...\n", m.spinner.View()))
		return ContainerStyle.Render(b.String())
	}

	b.WriteString(m.viewSelf())
	b.WriteString("\n")
	b.WriteString(m.viewPeers())
	b.WriteString("\n")
	b.WriteString(m.viewChat())
	b.WriteString("\n" + m.input.View() + "\n")
	b.WriteString(FooterStyle.Render(
		"ctrl+o video · ctrl+u audio · ctrl+s screen share · esc leave"))

	return ContainerStyle.Render(b.String())
}

func (m *CallModel) viewSelf() string {
	name := BoldStyle.Render(m.snap.UserName)
	badges := mediaBadges(m.snap.VideoEnabled, m.snap.AudioEnabled, m.snap.ScreenSharing)
	return fmt.Sprintf("%s %s %s %s\n", IconPeer, name, MutedStyle.Render("(you)"), badges)
}

func (m *CallModel) viewPeers() string {
	if len(m.snap.Peers) == 0 {
		return MutedStyle.Render("Nobody else is here yet.") + "\n"
	}

	var b strings.Builder
	for _, p := range m.snap.Peers {
		var status string
		switch {
		case p.LinkState == "connected" && p.Receiving:
			status = SuccessStyle.Render("●")
		case p.LinkState == "connected":
			status = WarningStyle.Render("●")
		default:
			status = fmt.Sprintf("%s %s", m.spinner.View(), MutedStyle.Render(p.LinkState))
		}
		badges := mediaBadges(p.VideoEnabled, p.AudioEnabled, p.ScreenSharing)
		b.WriteString(fmt.Sprintf("  %s %s %s\n", status, p.Name, badges))
	}
	return b.String()
}

func (m *CallModel) viewChat() string {
	var b strings.Builder
	b.WriteString(MutedStyle.Render(fmt.Sprintf("%s Chat", IconChat)) + "\n")

	tail := m.snap.Chat
	if len(tail) > 8 {
		tail = tail[len(tail)-8:]
	}
	if len(tail) == 0 {
		b.WriteString(MutedStyle.Render("  No messages yet.") + "\n")
		return b.String()
	}

	for _, msg := range tail {
		name := msg.Name
		if msg.FromID == "" {
			name = name + " (you)"
		}
		b.WriteString(fmt.Sprintf("  %s %s %s\n",
			MutedStyle.Render(msg.SentAt.Format("15:04")),
			ChatNameStyle.Render(name+":"),
			msg.Text,
		))
	}
	return b.String()
}

func mediaBadges(video, audio, screen bool) string {
	var parts []string
	if video {
		parts = append(parts, IconCamera)
	} else {
		parts = append(parts, MutedStyle.Render(IconCamera+"✕"))
	}
	if audio {
		parts = append(parts, IconMic)
	} else {
		parts = append(parts, IconMutedAV)
	}
	if screen {
		parts = append(parts, IconScreen)
	}
	return strings.Join(parts, " ")
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
