package domain

import (
	"fmt"
	"time"
	"unicode/utf8"

	apperrors "github.com/abhilashprasadsahoo/aepl-projectverse/pkg/errors"
)

// Review bounds.
const (
	MinRating        = 1
	MaxRating        = 5
	MaxCommentLength = 1000
)

// Review is a buyer's rating of a product they own. A buyer has at most one
// review per product.
type Review struct {
	ID        string    `json:"id"`
	ProductID string    `json:"product_id"`
	BuyerID   string    `json:"buyer_id"`
	Rating    int       `json:"rating"`
	Comment   string    `json:"comment"`
	Approved  bool      `json:"approved"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ValidateRating returns an InvalidInput error unless rating is within
// MinRating..MaxRating.
func ValidateRating(rating int) error {
	if rating < MinRating || rating > MaxRating {
		return apperrors.InvalidInput(fmt.Sprintf("rating must be between %d and %d", MinRating, MaxRating))
	}
	return nil
}

// ValidateComment returns an InvalidInput error when the comment is longer
// than MaxCommentLength characters.
func ValidateComment(comment string) error {
	if utf8.RuneCountInString(comment) > MaxCommentLength {
		return apperrors.InvalidInput(fmt.Sprintf("comment must be at most %d characters", MaxCommentLength))
	}
	return nil
}

// ProductRating is the aggregate of a product's approved reviews.
type ProductRating struct {
	ProductID    string  `json:"product_id"`
	Rating       float64 `json:"rating"`
	TotalRatings int     `json:"total_ratings"`
}
