package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"animterm/internal/config"
	"animterm/internal/history"
	"animterm/internal/ops"
)

func main() {
	f, err := tea.LogToFile(logFile, "animterm")
	if err != nil {
		log.Fatal(err)
	}
	defer f.Close()

	logger := slog.New(slog.NewTextHandler(f, &slog.HandlerOptions{Level: slog.LevelInfo}))
	cfg, rcPath := loadConfig(logger)
	logger = slog.New(slog.NewTextHandler(f, &slog.HandlerOptions{Level: logLevel(cfg.LogLevel)}))
	slog.SetDefault(logger)

	m := initialModel(cfg, logger, rcPath)
	if len(os.Args) > 1 {
		if err := m.openScene(context.Background(), os.Args[1]); err != nil {
			m.errorMessage = err.Error()
		}
		m.mode = ModeNormal
	}
	if m.watcher != nil {
		defer m.watcher.Close()
	}

	p := tea.NewProgram(
		m,
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
	)
	if _, err := p.Run(); err != nil {
		log.Fatal(err)
	}
}

func logLevel(name string) slog.Level {
	var l slog.Level
	if err := l.UnmarshalText([]byte(name)); err != nil {
		return slog.LevelInfo
	}
	return l
}

func initialModel(cfg config.Config, log *slog.Logger, rcPath string) model {
	mode := ModeStartup
	if !cfg.StartMenu {
		mode = ModeNormal
	}
	return model{
		mode:    mode,
		cfg:     cfg,
		log:     log,
		session: newSession(cfg, log, ""),
		watcher: watchConfig(rcPath, log),
		rcPath:  rcPath,
	}
}

func (m model) Init() tea.Cmd {
	return waitForConfig(m.watcher, m.rcPath)
}

func (m *model) tick() tea.Cmd {
	if m.ticking {
		return nil
	}
	m.ticking = true
	return tea.Tick(m.session.player.FrameInterval(), func(time.Time) tea.Msg { return tickMsg{} })
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	ctx := context.Background()
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tickMsg:
		m.ticking = false
		if !m.session.player.Playing() {
			return m, nil
		}
		if err := m.session.player.Tick(ctx); err != nil {
			m.errorMessage = err.Error()
		}
		if m.session.player.Playing() {
			return m, m.tick()
		}
		return m, nil

	case configChangedMsg:
		m.applyConfig(msg)
		return m, waitForConfig(m.watcher, m.rcPath)

	case tea.KeyMsg:
		return m.handleKey(ctx, msg.String())
	}
	return m, nil
}

func (m model) handleKey(ctx context.Context, key string) (tea.Model, tea.Cmd) {
	if key == "ctrl+c" {
		return m, tea.Quit
	}
	if m.help && m.mode != ModeStartup {
		switch key {
		case "esc", "q", "?":
			m.help = false
			m.helpScroll = 0
		case "j", "down":
			m.helpScroll++
		case "k", "up":
			m.helpScroll = max(0, m.helpScroll-1)
		}
		return m, nil
	}

	switch m.mode {
	case ModeStartup:
		switch key {
		case "n":
			m.mode = ModeNormal
		case "o":
			m.mode = ModeFileInput
			m.fileOp = FileOpOpen
			m.input = ""
		case "q":
			return m, tea.Quit
		}
		return m, nil
	case ModeMove:
		m.handleMoveKey(ctx, key)
		return m, nil
	case ModeTextInput, ModeCommand, ModeFileInput:
		return m.handleInputKey(ctx, key)
	case ModeConfirm:
		return m.handleConfirmKey(ctx, key)
	}

	m.errorMessage = ""
	m.successMessage = ""
	s := m.session
	if s.player.Playing() && key != " " && key != "q" && key != "?" {
		m.errorMessage = "Playing; space to pause"
		return m, nil
	}

	switch key {
	case "q":
		if s.dirty && m.cfg.Confirmations {
			m.mode = ModeConfirm
			m.confirmAction = ConfirmQuit
			return m, nil
		}
		return m, tea.Quit
	case "?":
		m.help = true
	case " ":
		if err := s.player.Toggle(ctx); err != nil {
			m.errorMessage = err.Error()
		}
		if s.player.Playing() {
			return m, m.tick()
		}
	case "h", "l", "H", "L", "0", "$", "home", "end":
		m.handleScrub(ctx, key)
	case "tab":
		s.selectNext(1)
	case "shift+tab":
		s.selectNext(-1)
	case "e":
		m.createEllipse(ctx)
	case "p":
		m.createPolygon(ctx)
	case "t":
		m.mode = ModeTextInput
		m.input = ""
	case "m":
		m.startMove()
	case "r":
		m.rotateSelected(ctx, rotateStep)
	case "R":
		m.rotateSelected(ctx, -rotateStep)
	case "+", "=":
		m.scaleSelected(ctx, scaleUp)
	case "-":
		m.scaleSelected(ctx, 1/scaleUp)
	case "f":
		m.editSelected(ctx, ops.MoveToFront)
	case "b":
		m.editSelected(ctx, ops.MoveToBack)
	case "D":
		m.duplicateSelected(ctx)
	case "d":
		if _, ok := s.selectedDisplayed(); !ok {
			m.errorMessage = "Select a shape first (tab)"
		} else if m.cfg.Confirmations {
			m.mode = ModeConfirm
			m.confirmAction = ConfirmDeleteShape
		} else {
			m.deleteSelected(ctx)
		}
	case "u":
		m.undo(ctx)
	case "U":
		m.redo(ctx)
	case "k":
		m.addKeyframe(ctx)
	case "w":
		m.addTween(ctx)
	case "c":
		if err := m.copySelected(); err != nil {
			m.errorMessage = err.Error()
		} else {
			m.successMessage = "Copied"
		}
	case "v":
		if err := m.pasteShape(ctx); err != nil {
			m.errorMessage = err.Error()
		}
	case ":":
		m.mode = ModeCommand
		m.input = ""
	case "s", "o", "x", "X":
		m.mode = ModeFileInput
		m.fileOp = map[string]FileOperation{"s": FileOpSave, "o": FileOpOpen, "x": FileOpExportFrames, "X": FileOpExportPNG}[key]
		m.input = s.filename
	case "n":
		if s.dirty && m.cfg.Confirmations {
			m.mode = ModeConfirm
			m.confirmAction = ConfirmNewScene
			return m, nil
		}
		m.newScene()
	}
	return m, nil
}

func (m model) handleInputKey(ctx context.Context, key string) (tea.Model, tea.Cmd) {
	switch key {
	case "esc":
		m.mode = ModeNormal
		m.input = ""
		m.errorMessage = ""
		return m, nil
	case "backspace":
		if r := []rune(m.input); len(r) > 0 {
			m.input = string(r[:len(r)-1])
		}
		return m, nil
	case "enter":
	default:
		if m.mode == ModeTextInput && key == "ctrl+j" {
			m.input += "\n"
		} else if len([]rune(key)) == 1 || key == " " {
			m.input += key
		}
		return m, nil
	}

	input := strings.TrimSpace(m.input)
	switch m.mode {
	case ModeTextInput:
		if input != "" {
			m.createText(ctx, m.input)
		}
		m.mode = ModeNormal
	case ModeCommand:
		if err := m.runCommand(ctx, m.input); err != nil {
			m.errorMessage = err.Error()
			return m, nil
		}
		m.mode = ModeNormal
	case ModeFileInput:
		if input == "" {
			m.errorMessage = "Filename required"
			return m, nil
		}
		if m.fileOp == FileOpSave && m.cfg.Confirmations && input != m.session.filename && fileExists(m.cfg.SavePath(withExt(input, sceneExt))) {
			m.input = input
			m.mode = ModeConfirm
			m.confirmAction = ConfirmOverwriteFile
			return m, nil
		}
		if err := m.runFileOp(ctx, input); err != nil {
			m.errorMessage = err.Error()
			return m, nil
		}
		m.mode = ModeNormal
	}
	m.input = ""
	return m, nil
}

func (m *model) runFileOp(ctx context.Context, filename string) error {
	switch m.fileOp {
	case FileOpSave:
		return m.saveScene(filename)
	case FileOpOpen:
		return m.openScene(ctx, filename)
	case FileOpExportFrames:
		return m.exportFrames(ctx, filename)
	case FileOpExportPNG:
		return m.exportPNG(filename)
	}
	return fmt.Errorf("unknown file operation %d", m.fileOp)
}

// runCommand parses and runs a script, one action per line or per ';;'.
func (m *model) runCommand(ctx context.Context, text string) error {
	text = strings.ReplaceAll(text, ";;", "\n")
	script, err := history.ParseScript(text, m.session.scene)
	if err != nil {
		return err
	}
	if err := m.session.history.ExecuteScript(ctx, script); err != nil {
		return err
	}
	m.successMessage = fmt.Sprintf("Ran %d action(s)", len(script))
	return nil
}

func (m model) handleConfirmKey(ctx context.Context, key string) (tea.Model, tea.Cmd) {
	if key != "y" && key != "Y" {
		m.mode = ModeNormal
		return m, nil
	}
	m.mode = ModeNormal
	switch m.confirmAction {
	case ConfirmQuit:
		return m, tea.Quit
	case ConfirmDeleteShape:
		m.deleteSelected(ctx)
	case ConfirmNewScene:
		m.newScene()
	case ConfirmOverwriteFile:
		if err := m.runFileOp(ctx, m.input); err != nil {
			m.errorMessage = err.Error()
		}
		m.input = ""
	}
	return m, nil
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func (m model) View() string {
	if m.help && m.mode != ModeStartup {
		return m.helpView()
	}
	if m.mode == ModeStartup {
		return "animterm\n\n'n' New scene\n'o' Open existing scene\n'q' Quit"
	}

	renderWidth := max(m.width, 1)
	renderHeight := max(m.height-2, 1) // timeline and status line

	s := m.session
	canvas := NewCanvas(renderWidth, renderHeight, float64(s.cfg.CanvasWidth), float64(s.cfg.CanvasHeight))
	rows := canvas.Render(s.scene.DisplayShapes(), s.selected)

	var result strings.Builder
	result.WriteString(strings.Join(rows, "\n"))
	result.WriteString("\n")
	result.WriteString(renderTimeline(renderWidth, s.scene.Clock(), s.scene.EndTime(), s.scene.Timeline()))
	result.WriteString("\n")
	result.WriteString(m.statusLine())
	return result.String()
}

func (m model) statusLine() string {
	s := m.session
	var status string
	switch m.mode {
	case ModeMove:
		status = fmt.Sprintf("Mode: MOVE | %s | hjkl/arrows=move, Enter=finish, Esc=cancel", s.selected.Common().Name)
	case ModeTextInput:
		status = fmt.Sprintf("Mode: TEXT | Text: %s█ | Ctrl+J=newline, Enter=create, Esc=cancel", strings.ReplaceAll(m.input, "\n", "⏎"))
	case ModeCommand:
		status = fmt.Sprintf(":%s█", m.input)
	case ModeFileInput:
		ops := map[FileOperation]string{FileOpSave: "Save", FileOpOpen: "Open", FileOpExportFrames: "Export frames to", FileOpExportPNG: "Export PNG"}
		status = fmt.Sprintf("Mode: FILE | %s: %s█ | Enter=confirm, Esc=cancel", ops[m.fileOp], m.input)
	case ModeConfirm:
		var message string
		switch m.confirmAction {
		case ConfirmQuit:
			message = "Quit animterm? Unsaved changes will be lost. (y/n)"
		case ConfirmDeleteShape:
			message = fmt.Sprintf("Delete %s? (y/n)", s.selected.Common().Name)
		case ConfirmNewScene:
			message = "Start a new scene? Unsaved changes will be lost. (y/n)"
		case ConfirmOverwriteFile:
			message = fmt.Sprintf("File %s already exists. Overwrite? (y/n)", m.input)
		}
		status = "Mode: CONFIRM | " + message
	default:
		status = fmt.Sprintf("Mode: %s", m.modeString())
		if s.player.Playing() {
			status = "Mode: PLAY"
		}
		if s.filename != "" {
			status += " | " + s.filename
			if s.dirty {
				status += "*"
			}
		}
		if sh, ok := s.selectedDisplayed(); ok {
			status += " | Selected: " + sh.Common().Name
		}
		status += fmt.Sprintf(" | History: %s", s.history.State())
	}
	line := statusStyle.Render(padRight(status, max(m.width, 1)))
	if m.errorMessage != "" {
		line += errorStyle.Render(" ERROR: " + m.errorMessage)
	} else if m.successMessage != "" {
		line += successStyle.Render(" " + m.successMessage)
	}
	return line
}

func (m model) modeString() string {
	switch m.mode {
	case ModeStartup:
		return "STARTUP"
	case ModeNormal:
		return "NORMAL"
	case ModeMove:
		return "MOVE"
	case ModeTextInput:
		return "TEXT"
	case ModeCommand:
		return "COMMAND"
	case ModeFileInput:
		return "FILE"
	case ModeConfirm:
		return "CONFIRM"
	default:
		return "UNKNOWN"
	}
}

var helpLines = []string{
	"animterm Help",
	"=============",
	"",
	"Timeline:",
	"---------",
	"  h/l              Step the clock one frame back/forward",
	"  H/L              Step the clock one second",
	"  0/$              Jump to the start/end",
	"  space            Play/pause",
	"",
	"Shapes:",
	"-------",
	"  tab/shift+tab    Select next/previous shape on screen",
	"  e                New ellipse",
	"  p                New polygon",
	"  t                New text",
	"  m                Move selected shape (Enter=finish, Esc=cancel)",
	"  r/R              Rotate selected shape",
	"  +/-              Scale selected shape",
	"  f/b              Bring to front/send to back",
	"  D                Duplicate selected shape",
	"  d                Delete selected shape",
	"  c/v              Copy/paste shape through the clipboard",
	"",
	"Animation:",
	"----------",
	"  k                Turn the last action into a keyframe at the clock",
	"  w                Turn the last move/rotate/scale into a tween from the clock",
	"",
	"Files:",
	"------",
	"  s                Save scene",
	"  o                Open scene",
	"  x                Export every frame as PNG into a directory",
	"  X                Export the current frame as PNG",
	"  n                New scene",
	"",
	"General:",
	"  u                Undo last action",
	"  U                Redo last undone action",
	"  :                Run commands, e.g. :translate @\"Ellipse 1\" 10,0",
	"  ?                Toggle this help screen",
	"  q/Ctrl+C         Quit",
}

func (m model) helpView() string {
	visibleHeight := max(m.height-1, 1)
	startLine := min(m.helpScroll, max(len(helpLines)-visibleHeight, 0))
	endLine := min(startLine+visibleHeight, len(helpLines))

	result := strings.Join(helpLines[startLine:endLine], "\n")
	statusLine := fmt.Sprintf("Help (%d-%d of %d lines) | j/k to scroll, Esc to close",
		startLine+1, endLine, len(helpLines))
	return result + "\n" + statusLine
}
