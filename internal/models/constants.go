package models

// ============================================================================
// PAGINATION CONSTANTS
// ============================================================================

// DefaultPageSize is used when a list request does not ask for a page size
const DefaultPageSize = 20

// MaxPageSize caps the page size a client may request
const MaxPageSize = 100

// ============================================================================
// DEFAULT PIPELINE
// ============================================================================

// DefaultStages is seeded into an empty database
var DefaultStages = []Stage{
	{Name: "Lead", Color: "#6B7280", SortOrder: 0},
	{Name: "Qualified", Color: "#3B82F6", SortOrder: 1},
	{Name: "Proposal", Color: "#8B5CF6", SortOrder: 2},
	{Name: "Negotiation", Color: "#F97316", SortOrder: 3},
	{Name: "Won", Color: "#22C55E", SortOrder: 4},
	{Name: "Lost", Color: "#EF4444", SortOrder: 5},
}
