package style

import (
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/lipgloss"
)

// --- Reusable Colors ---
var (
	colorPink      = lipgloss.Color("205")
	colorDarkGray  = lipgloss.Color("240")
	colorLightGray = lipgloss.Color("229")
	colorBlue      = lipgloss.Color("57")
	colorCyan      = lipgloss.Color("212")
	colorGreen     = lipgloss.Color("42")
	colorRed       = lipgloss.Color("196")
)

// --- General Purpose Styles ---
var (
	ErrorStyle   = lipgloss.NewStyle().Foreground(colorRed)
	SuccessStyle = lipgloss.NewStyle().Foreground(colorGreen)
	HelpStyle    = lipgloss.NewStyle().Faint(true)
)

// --- Search View Styles ---
var (
	DocStyle           = lipgloss.NewStyle().Margin(1, 2)
	TitleStyle         = lipgloss.NewStyle().Bold(true).Foreground(colorPink)
	HeaderStyle        = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	HighlightFontStyle = lipgloss.NewStyle().Foreground(colorCyan)
	RequestStyle       = lipgloss.NewStyle().Foreground(colorLightGray).PaddingLeft(2)
	BaseStyle          = lipgloss.NewStyle().BorderStyle(lipgloss.NormalBorder()).BorderForeground(colorDarkGray)
)

// --- Common Components ---

// NewSpinner creates a spinner with a consistent style.
func NewSpinner() spinner.Model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(colorPink)
	return s
}

// NewProgress creates the transfer progress bar.
func NewProgress() progress.Model {
	return progress.New(progress.WithDefaultGradient(), progress.WithWidth(40))
}

// NewTableStyles returns the default styles for tables, with our custom selection style.
func NewTableStyles() table.Styles {
	styles := table.DefaultStyles()
	styles.Selected = styles.Selected.Foreground(colorLightGray).Background(colorBlue).Bold(false)
	return styles
}
