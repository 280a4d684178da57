package colors

// Monochrome returns a black and white color scheme
func Monochrome() *ColorScheme {
	return &ColorScheme{
		Preset: "monochrome",

		Accent: "#FFFFFF",

		ColumnBorder:   "#8A8A8A",
		CardBorder:     "#585858",
		SelectedBorder: "#FFFFFF",
		DragBorder:     "#FFFFFF",
		LockedBorder:   "#444444",

		Title:  "#FFFFFF",
		Subtle: "#808080",
		Normal: "#D0D0D0",

		InfoFg:        "#FFFFFF",
		WarningFg:     "#FFFFFF",
		ErrorFg:       "#FFFFFF",
		StatusBarBg:   "#303030",
		StatusBarText: "#FFFFFF",
	}
}
