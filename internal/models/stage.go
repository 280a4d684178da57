package models

// Stage is a pipeline stage; opportunities are grouped into stages on the board.
type Stage struct {
	ID        int    `json:"id"`
	Name      string `json:"name"`
	Color     string `json:"color"` // Hex color code (e.g., "#7D56F4")
	SortOrder int    `json:"sortOrder"`
}
