package styles

// DefaultTheme is the baseline palette, warm tones for an evening venue.
var DefaultTheme = Theme{
	Name: "default",
	Tokens: ThemeTokens{
		Background: "#14101A",
		Panel:      "#1E1826",
		Text:       "#ECE4F2",
		TextMuted:  "#9A8FA8",
		Border:     "#3A2F48",
		Accent:     "#D8A657",
		Focus:      "#E8C27A",
		Success:    "#8EC07C",
		Warning:    "#E3A44A",
		Error:      "#EA6962",
		Whisper:    "#D3869B",
		Chat:       "#7DAEA3",
	},
}
