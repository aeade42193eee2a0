package validation

import (
	"strings"

	"github.com/imrishuroy/wishwall/internal/wishes"
)

// CreateWishRequest is the payload for POST /api/wishes
type CreateWishRequest struct {
	UserID   string `json:"userId" validate:"required,max=128"`  // client generated, trusted as-is
	Nickname string `json:"nickname" validate:"required,max=20"` // runes, not bytes
	Content  string `json:"content" validate:"required,max=200"`
	Contact  string `json:"contact" validate:"max=100"`   // optional
	Gender   string `json:"gender" validate:"wishgender"` // defaults to secret
}

// Normalize trims every field and fills the gender default. It runs before validation.
func (r *CreateWishRequest) Normalize() {
	r.UserID = strings.TrimSpace(r.UserID)
	r.Nickname = strings.TrimSpace(r.Nickname)
	r.Content = strings.TrimSpace(r.Content)
	r.Contact = strings.TrimSpace(r.Contact)
	r.Gender = strings.TrimSpace(r.Gender)
	if r.Gender == "" {
		r.Gender = string(wishes.GenderSecret)
	}
}

// ToCreateInput escapes the free text fields for storage.
func (r CreateWishRequest) ToCreateInput() wishes.CreateInput {
	return wishes.CreateInput{
		UserID:   EscapeHTML(r.UserID),
		Nickname: EscapeHTML(r.Nickname),
		Content:  EscapeHTML(r.Content),
		Contact:  EscapeHTML(r.Contact),
		Gender:   wishes.Gender(r.Gender),
	}
}

var htmlEscaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
	"'", "&#39;",
)

// EscapeHTML replaces the five HTML special characters with entities.
func EscapeHTML(s string) string {
	return htmlEscaper.Replace(s)
}
