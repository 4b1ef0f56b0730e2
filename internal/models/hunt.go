package models

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Hunt is a themed, ordered sequence of clues.
type Hunt struct {
	ID          uint            `gorm:"primaryKey" json:"id"`
	Title       string          `gorm:"not null;size:255" json:"title"`
	Slug        string          `gorm:"uniqueIndex;size:255" json:"slug"`
	Description string          `gorm:"type:text" json:"description"`
	Category    string          `gorm:"size:100;index" json:"category"`
	Difficulty  string          `gorm:"size:50;index" json:"difficulty"`
	Location    string          `gorm:"size:255" json:"location"`
	Price       decimal.Decimal `gorm:"type:decimal(10,2);not null;default:0" json:"price"`
	AdminOnly   bool            `gorm:"default:false" json:"admin_only"`
	// AutoAcceptAnswers makes every submitted answer correct. Used by
	// exploratory hunts where any photo or note counts as an answer.
	AutoAcceptAnswers bool      `gorm:"default:false" json:"auto_accept_answers"`
	CreatorID         *uint     `gorm:"index" json:"creator_id,omitempty"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`

	Clues []Clue `gorm:"foreignKey:HuntID;constraint:OnDelete:CASCADE" json:"clues,omitempty"`
}

// TableName specifies the table name for Hunt model.
func (Hunt) TableName() string {
	return "hunts"
}

// IsFree reports whether the hunt costs nothing.
func (h *Hunt) IsFree() bool {
	return !h.Price.IsPositive()
}

// DefaultCluePoints is awarded for a clue when none is configured.
const DefaultCluePoints = 100

// Clue is one step in a hunt. Order is 1-based and unique within the hunt.
type Clue struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	HuntID    uint      `gorm:"not null;uniqueIndex:idx_clue_hunt_order" json:"hunt_id"`
	Order     int       `gorm:"column:clue_order;not null;uniqueIndex:idx_clue_hunt_order" json:"order"`
	Title     string    `gorm:"size:255" json:"title"`
	Body      string    `gorm:"type:text" json:"body"`
	Answer    string    `gorm:"not null;size:255" json:"-"`
	Hint      string    `gorm:"type:text" json:"-"`
	Narrative string    `gorm:"type:text" json:"-"`
	Points    int       `gorm:"not null;default:100" json:"points"`
	Latitude  *float64  `json:"latitude,omitempty"`
	Longitude *float64  `json:"longitude,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// TableName specifies the table name for Clue model.
func (Clue) TableName() string {
	return "clues"
}

// HasHint reports whether the clue carries a hint.
func (c *Clue) HasHint() bool {
	return strings.TrimSpace(c.Hint) != ""
}

// Matches compares a submitted answer with the stored one, ignoring case and
// surrounding whitespace.
func (c *Clue) Matches(answer string) bool {
	return NormalizeAnswer(answer) == NormalizeAnswer(c.Answer)
}

// NormalizeAnswer trims and case-folds an answer.
func NormalizeAnswer(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
