package main

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wordwrap"

	"github.com/fableloom/fableloom/pkg/story"
)

const (
	NarratorName    = "Narrator"
	PlaceHolderText = "Describe what happens next..."
)

// ConsoleUI is the BubbleTea model that runs the UI.
// https://github.com/charmbracelet/bubbletea
type ConsoleUI struct {
	config        *ConsoleConfig
	client        *http.Client
	story         *StoryResponse
	messages      []story.Message
	lastScore     int
	lastResponse  *GenerateResponse
	storyViewport viewport.Model
	metaViewport  viewport.Model
	textarea      textarea.Model
	ready         bool
	width         int
	height        int
	err           error
	loading       bool

	// Quit confirmation state
	showQuitModal bool

	// Progress bar state
	progressTick int

	// Transient status line, cleared on next action
	statusLine string
}

type generateResponseMsg struct {
	response *GenerateResponse
	err      error
}

type progressTickMsg struct{}

var (
	storyPanelStyle = lipgloss.NewStyle().
			PaddingTop(2).
			PaddingBottom(1).
			PaddingLeft(3).
			PaddingRight(0)

	metaPanelStyle = lipgloss.NewStyle().
			PaddingTop(2).
			PaddingBottom(0).
			PaddingLeft(0).
			PaddingRight(2)

	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")). // pink
			Bold(true)

	narratorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("86")) // green

	userStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("39")) // teal

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")) // red

	warnStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214")) // yellow

	promptStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")) // dark grey

	scoreGoodStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("82")). // bright green
			Bold(true)

	scoreBadStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")). // red
			Bold(true)

	modalStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("62")).
			Padding(1, 2).
			Background(lipgloss.Color("235")).
			Foreground(lipgloss.Color("255"))

	modalTitleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")).
			Bold(true).
			Align(lipgloss.Center)

	separatorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")) // dark grey
)

func NewConsoleUI(cfg *ConsoleConfig, client *http.Client, s *StoryResponse, msgs []story.Message) ConsoleUI {
	ta := textarea.New()
	ta.Placeholder = PlaceHolderText
	ta.Focus()
	ta.Prompt = promptStyle.Render(":: ")
	ta.CharLimit = 1000
	ta.SetWidth(50)
	ta.SetHeight(3)
	ta.ShowLineNumbers = false

	storyVp := viewport.New(50, 20)
	storyVp.MouseWheelEnabled = true

	metaVp := viewport.New(20, 20)

	lastScore := story.MaxNSI
	if len(msgs) > 0 {
		lastScore = msgs[len(msgs)-1].Score()
	}

	return ConsoleUI{
		config:        cfg,
		client:        client,
		story:         s,
		messages:      msgs,
		lastScore:     lastScore,
		textarea:      ta,
		storyViewport: storyVp,
		metaViewport:  metaVp,
	}
}

// writeStoryContent rebuilds the story panel for the current viewport width.
func (m *ConsoleUI) writeStoryContent() {
	width := m.storyViewport.Width - 6

	var content strings.Builder
	content.WriteString(titleStyle.Render("FABLELOOM") + "\n\n")
	content.WriteString(m.story.Name + "\n\n")
	content.WriteString(separatorStyle.Render(strings.Repeat("─", max(width-6, 1))) + "\n\n")

	for _, msg := range m.messages {
		content.WriteString(userStyle.Render("You: ") + wordwrap.String(msg.Prompt, width-6) + "\n\n")
		content.WriteString(narratorStyle.Render(NarratorName+": ") + wordwrap.String(msg.Text, width-6) + "\n\n")
	}

	if m.loading {
		content.WriteString(m.renderProgressBar())
	}
	if m.statusLine != "" {
		content.WriteString(promptStyle.Render(m.statusLine) + "\n")
	}
	if m.err != nil {
		content.WriteString(errorStyle.Render("Error: "+m.err.Error()) + "\n")
	}

	m.storyViewport.SetContent(content.String())
	m.storyViewport.GotoBottom()
}

func (m *ConsoleUI) writeMetadata() {
	var content strings.Builder
	content.WriteString(titleStyle.Render("STORY STATE") + "\n\n")

	content.WriteString("Story ID:\n")
	content.WriteString(m.story.ID.String()[:8] + "...\n\n")

	content.WriteString("Genre profile:\n")
	content.WriteString(m.story.GenreProfile + "\n\n")

	content.WriteString("Segments:\n")
	content.WriteString(fmt.Sprintf("%d total\n\n", len(m.messages)))

	content.WriteString("Stability:\n")
	score := fmt.Sprintf("%d / 100", m.lastScore)
	if m.lastScore >= 80 {
		content.WriteString(scoreGoodStyle.Render(score) + "\n\n")
	} else {
		content.WriteString(scoreBadStyle.Render(score) + "\n")
		content.WriteString(warnStyle.Render("stabilizing") + "\n\n")
	}

	if m.lastResponse != nil {
		v := m.lastResponse.Violations
		if v.CharacterInconsistency+v.TimelineContradiction+v.WorldRuleViolation+v.IgnoredFact > 0 {
			content.WriteString("Last violations:\n")
			if v.CharacterInconsistency > 0 {
				content.WriteString(fmt.Sprintf("• character: %d\n", v.CharacterInconsistency))
			}
			if v.TimelineContradiction > 0 {
				content.WriteString(fmt.Sprintf("• timeline: %d\n", v.TimelineContradiction))
			}
			if v.WorldRuleViolation > 0 {
				content.WriteString(fmt.Sprintf("• world rule: %d\n", v.WorldRuleViolation))
			}
			if v.IgnoredFact > 0 {
				content.WriteString(fmt.Sprintf("• ignored fact: %d\n", v.IgnoredFact))
			}
			content.WriteString("\n")
		}
	}

	content.WriteString("Commands:\n")
	content.WriteString("• Enter: Send\n")
	content.WriteString("• Ctrl+Y: Copy last segment\n")
	content.WriteString("• Ctrl+C: Quit\n")

	m.metaViewport.SetContent(content.String())
}

func (m ConsoleUI) Init() tea.Cmd {
	return textarea.Blink
}

func (m ConsoleUI) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if m.showQuitModal {
		return m.updateQuitModal(msg)
	}

	var (
		tiCmd tea.Cmd
		vpCmd tea.Cmd
		mvCmd tea.Cmd
	)

	switch msg := msg.(type) {
	case tea.MouseMsg:
		m.storyViewport, vpCmd = m.storyViewport.Update(msg)
		m.textarea, tiCmd = m.textarea.Update(msg)
		m.metaViewport, mvCmd = m.metaViewport.Update(msg)
		return m, tea.Batch(tiCmd, vpCmd, mvCmd)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

		storyWidth := int(float64(m.width)*0.75) - 4
		metaWidth := m.width - storyWidth - 6

		m.storyViewport.Width = storyWidth - 2
		m.storyViewport.Height = m.height - 7
		m.metaViewport.Width = metaWidth - 2
		m.metaViewport.Height = m.height - 4
		m.textarea.SetWidth(storyWidth - 4)

		m.ready = true
		m.writeStoryContent()
		m.writeMetadata()

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			m.showQuitModal = true
			return m, nil

		case tea.KeyCtrlY:
			if len(m.messages) > 0 {
				last := m.messages[len(m.messages)-1]
				if err := clipboard.WriteAll(last.Text); err != nil {
					m.statusLine = "clipboard unavailable"
				} else {
					m.statusLine = "last segment copied"
				}
				m.writeStoryContent()
			}
			return m, nil

		case tea.KeyEnter:
			if m.loading {
				return m, nil
			}

			input := strings.TrimSpace(m.textarea.Value())
			if input == "" {
				return m, nil
			}

			m.textarea.Reset()
			m.loading = true
			m.err = nil
			m.statusLine = ""
			m.progressTick = 0

			return m, tea.Batch(m.sendPrompt(input), progressTick())
		}

	case generateResponseMsg:
		m.loading = false
		if msg.err != nil {
			m.err = msg.err
		} else {
			m.lastResponse = msg.response
			m.lastScore = msg.response.StabilityScore
			m.messages = append(m.messages, msg.response.Message)
			if msg.response.SummaryUpdated {
				m.statusLine = "summary refreshed"
			}
		}
		m.writeStoryContent()
		m.writeMetadata()
		return m, nil

	case progressTickMsg:
		if m.loading {
			m.progressTick++
			m.writeStoryContent()
			return m, progressTick()
		}
	}

	m.textarea, tiCmd = m.textarea.Update(msg)
	m.storyViewport, vpCmd = m.storyViewport.Update(msg)
	m.metaViewport, mvCmd = m.metaViewport.Update(msg)

	return m, tea.Batch(tiCmd, vpCmd, mvCmd)
}

func (m ConsoleUI) sendPrompt(prompt string) tea.Cmd {
	return func() tea.Msg {
		resp, err := sendGenerate(m.client, m.config.APIBaseURL, m.story.ID, prompt)
		return generateResponseMsg{resp, err}
	}
}

func (m ConsoleUI) updateQuitModal(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc, tea.KeyEnter:
			return m, tea.Quit
		default:
			switch msg.String() {
			case "y", "Y":
				return m, tea.Quit
			case "n", "N":
				m.showQuitModal = false
				m.textarea.Focus()
				return m, textarea.Blink
			}
		}
	}

	return m, nil
}

func (m ConsoleUI) renderQuitModal() string {
	if m.width == 0 || m.height == 0 {
		return "Loading..."
	}

	var content strings.Builder
	content.WriteString(modalTitleStyle.Render("Leave Story?"))
	content.WriteString("\n\n")
	content.WriteString("Your story is saved; you can resume it later.")
	content.WriteString("\n\n")
	content.WriteString(promptStyle.Render("Press Y to quit, N to continue, or Ctrl+C to force quit"))

	modal := modalStyle.Width(50).Render(content.String())
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, modal, lipgloss.WithWhitespaceChars(" "))
}

func (m ConsoleUI) View() string {
	if m.showQuitModal {
		return m.renderQuitModal()
	}

	if !m.ready {
		return "\n  Initializing..."
	}

	storyWidth := int(float64(m.width)*0.75) - 4
	metaWidth := m.width - storyWidth - 6

	storyPanel := storyPanelStyle.Width(storyWidth).Height(m.height - 3).Render(
		lipgloss.JoinVertical(lipgloss.Left,
			m.storyViewport.View(),
			"",
			separatorStyle.Render(strings.Repeat("─", max(storyWidth-4, 1))),
			m.textarea.View(),
		),
	)

	metaPanel := metaPanelStyle.Width(metaWidth).Height(m.height - 2).Render(
		m.metaViewport.View(),
	)

	return lipgloss.JoinHorizontal(lipgloss.Top, storyPanel, metaPanel)
}

// renderProgressBar creates an animated progress bar for loading states
func (m ConsoleUI) renderProgressBar() string {
	usable := m.storyViewport.Width - 6
	if usable <= 0 {
		usable = 30
	}
	if usable > 80 {
		usable = 80
	} else if usable < 10 {
		usable = 10
	}

	const totalFrames = 40
	frame := m.progressTick % totalFrames
	filled := (frame * usable) / totalFrames

	var bar strings.Builder
	for i := 0; i < usable; i++ {
		if i < filled {
			bar.WriteString("█")
		} else if i == filled && frame%4 < 2 {
			bar.WriteString("▓")
		} else {
			bar.WriteString("░")
		}
	}
	return separatorStyle.Render(bar.String()) + "\n"
}

// progressTick creates a command that sends a progress tick message
func progressTick() tea.Cmd {
	return tea.Tick(time.Millisecond*200, func(time.Time) tea.Msg {
		return progressTickMsg{}
	})
}
