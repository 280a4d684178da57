package colors

// Default returns the default color scheme (purple theme)
func Default() *ColorScheme {
	return &ColorScheme{
		Preset: "default",

		// Primary
		Accent: "#874BFD",

		// Board
		ColumnBorder:   "#5F87D7",
		CardBorder:     "#585858",
		SelectedBorder: "#D75FD7",
		DragBorder:     "#FFAF00",
		LockedBorder:   "#808080",

		// Text
		Title:  "#D75FD7",
		Subtle: "#626262",
		Normal: "#D0D0D0",

		// Status line
		InfoFg:        "#00AFFF",
		WarningFg:     "#FFD700",
		ErrorFg:       "#FF5F5F",
		StatusBarBg:   "#874BFD", // Matches accent
		StatusBarText: "#D0D0D0", // Matches normal text
	}
}
