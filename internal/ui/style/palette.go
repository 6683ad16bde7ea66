package style

import "github.com/charmbracelet/lipgloss"

var (
	// Primary colors
	Cyan    = lipgloss.Color("#00E5FF")
	Magenta = lipgloss.Color("#FF1B6B")
	Yellow  = lipgloss.Color("#FFB500")
	Green   = lipgloss.Color("#2AFFAA")
	Red     = lipgloss.Color("#FF5555")
	Blue    = lipgloss.Color("#3B82F6")
	Purple  = lipgloss.Color("#8B5CF6")

	// Dark base colors
	Base03 = lipgloss.Color("#1B1D23")
	Base02 = lipgloss.Color("#262831")
	Base01 = lipgloss.Color("#6C7280")
	Base2  = lipgloss.Color("#ECEFF4")
	Base1  = lipgloss.Color("#B4BCC8")

	// Light base colors
	Paper     = lipgloss.Color("#FAFAF7")
	PaperAlt  = lipgloss.Color("#ECEBE4")
	Ink       = lipgloss.Color("#1F2328")
	InkMuted  = lipgloss.Color("#6E7781")
	InkSubtle = lipgloss.Color("#424A53")

	DeepGreen  = lipgloss.Color("#1A7F37")
	DeepRed    = lipgloss.Color("#CF222E")
	DeepYellow = lipgloss.Color("#9A6700")
	DeepCyan   = lipgloss.Color("#0969DA")
)

// Palette provides a centralized color management
type Palette struct {
	Name string

	Primary   lipgloss.Color
	Secondary lipgloss.Color
	Success   lipgloss.Color
	Error     lipgloss.Color
	Warning   lipgloss.Color
	Info      lipgloss.Color

	Background    lipgloss.Color
	BackgroundAlt lipgloss.Color
	Text          lipgloss.Color
	TextMuted     lipgloss.Color
	TextSecondary lipgloss.Color

	// Profitability status colors
	Profit    lipgloss.Color
	Breakeven lipgloss.Color
	Loss      lipgloss.Color
}

// DarkPalette is the default palette.
func DarkPalette() Palette {
	return Palette{
		Name:      "dark",
		Primary:   Cyan,
		Secondary: Magenta,
		Success:   Green,
		Error:     Red,
		Warning:   Yellow,
		Info:      Blue,

		Background:    Base03,
		BackgroundAlt: Base02,
		Text:          Base2,
		TextMuted:     Base01,
		TextSecondary: Base1,

		Profit:    Green,
		Breakeven: Yellow,
		Loss:      Red,
	}
}

// LightPalette is used when dark mode is switched off.
func LightPalette() Palette {
	return Palette{
		Name:      "light",
		Primary:   DeepCyan,
		Secondary: Purple,
		Success:   DeepGreen,
		Error:     DeepRed,
		Warning:   DeepYellow,
		Info:      Blue,

		Background:    Paper,
		BackgroundAlt: PaperAlt,
		Text:          Ink,
		TextMuted:     InkMuted,
		TextSecondary: InkSubtle,

		Profit:    DeepGreen,
		Breakeven: DeepYellow,
		Loss:      DeepRed,
	}
}

// Styles are the lipgloss styles derived from a palette.
type Styles struct {
	Palette Palette

	Title     lipgloss.Style
	Header    lipgloss.Style
	Selected  lipgloss.Style
	Cell      lipgloss.Style
	Muted     lipgloss.Style
	Panel     lipgloss.Style
	Profit    lipgloss.Style
	Breakeven lipgloss.Style
	Loss      lipgloss.Style
	Unknown   lipgloss.Style
	Warning   lipgloss.Style
	Error     lipgloss.Style
}

func NewStyles(p Palette) Styles {
	return Styles{
		Palette: p,
		Title: lipgloss.NewStyle().
			Bold(true).
			Foreground(p.Primary).
			Padding(0, 1),
		Header: lipgloss.NewStyle().
			Bold(true).
			Foreground(p.TextSecondary).
			BorderStyle(lipgloss.NormalBorder()).
			BorderBottom(true).
			BorderForeground(p.TextMuted),
		Selected: lipgloss.NewStyle().
			Bold(true).
			Foreground(p.Background).
			Background(p.Primary),
		Cell:  lipgloss.NewStyle().Foreground(p.Text),
		Muted: lipgloss.NewStyle().Foreground(p.TextMuted),
		Panel: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(p.TextMuted).
			Padding(0, 1),
		Profit:    lipgloss.NewStyle().Foreground(p.Profit).Bold(true),
		Breakeven: lipgloss.NewStyle().Foreground(p.Breakeven),
		Loss:      lipgloss.NewStyle().Foreground(p.Loss),
		Unknown:   lipgloss.NewStyle().Foreground(p.TextMuted),
		Warning:   lipgloss.NewStyle().Foreground(p.Warning),
		Error:     lipgloss.NewStyle().Foreground(p.Error).Bold(true),
	}
}
