package domain

import (
	"strconv"
	"strings"
	"time"
)

type Person struct {
	Name string  `json:"name" db:"name" validate:"required"`
	Age  float64 `json:"age" db:"age" validate:"gte=0"`
}

type Item struct {
	ID        string    `json:"id" db:"id" validate:"required"`
	Title     string    `json:"title" db:"title" validate:"required"`
	URL       string    `json:"url" db:"url" validate:"required"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
	Caption   string    `json:"caption,omitempty" db:"caption"`
}

// AgeString renders age the way it is matched by search: no trailing zeros,
// no exponent.
func (p Person) AgeString() string {
	return strconv.FormatFloat(p.Age, 'f', -1, 64)
}

// Matches reports whether q occurs in the name (case-insensitive) or in the
// rendered age. An empty q matches every person.
func (p Person) Matches(q string) bool {
	q = strings.ToLower(q)
	return strings.Contains(strings.ToLower(p.Name), q) || strings.Contains(p.AgeString(), q)
}

// Matches reports whether q occurs in the title, ignoring case.
func (i Item) Matches(q string) bool {
	return strings.Contains(strings.ToLower(i.Title), strings.ToLower(q))
}
