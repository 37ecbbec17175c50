package web

import (
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"bookcatalog/internal/catalog"
)

const dateLayout = "2006-01-02"

func parseDate(s string) (time.Time, error) {
	return time.Parse(dateLayout, s)
}

type authorPayload struct {
	Name        string `json:"name"`
	Country     string `json:"country"`
	DateOfBirth string `json:"date_of_birth"`
	Description string `json:"description"`
}

func (p authorPayload) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.Name, validation.Required, validation.Length(1, 255)),
		validation.Field(&p.Country, validation.Length(0, 100)),
		validation.Field(&p.DateOfBirth, validation.Date(dateLayout),
			validation.By(notInFuture)),
		validation.Field(&p.Description, validation.Length(0, 2000)),
	)
}

func (p authorPayload) toModel() *catalog.Author {
	a := &catalog.Author{
		Name:        p.Name,
		Country:     p.Country,
		Description: p.Description,
	}
	if p.DateOfBirth != "" {
		if dob, err := time.Parse(dateLayout, p.DateOfBirth); err == nil {
			a.DateOfBirth = &dob
		}
	}
	return a
}

type bookPayload struct {
	AuthorID    int64  `json:"author_id"`
	Name        string `json:"name"`
	Summary     string `json:"summary"`
	PublishedAt string `json:"published_at"`
}

func (p bookPayload) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.AuthorID, validation.Required, validation.Min(int64(1))),
		validation.Field(&p.Name, validation.Required, validation.Length(1, 255)),
		validation.Field(&p.Summary, validation.Length(0, 2000)),
		validation.Field(&p.PublishedAt, validation.Required, validation.Date(dateLayout),
			validation.By(notInFuture)),
	)
}

func (p bookPayload) toModel() *catalog.Book {
	published, _ := time.Parse(dateLayout, p.PublishedAt)
	return &catalog.Book{
		AuthorID:    p.AuthorID,
		Name:        p.Name,
		Summary:     p.Summary,
		PublishedAt: published,
	}
}

type reviewPayload struct {
	Review   string `json:"review"`
	Score    int    `json:"score"`
	Reviewer string `json:"reviewer"`
}

func (p reviewPayload) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.Review, validation.Required, validation.Length(1, 2000)),
		validation.Field(&p.Score, validation.Required, validation.Min(1), validation.Max(5)),
		validation.Field(&p.Reviewer, validation.Required, validation.Length(1, 100)),
	)
}

type salePayload struct {
	Year  int   `json:"year"`
	Sales int64 `json:"sales"`
}

func (p salePayload) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.Year, validation.Required,
			validation.Min(1000), validation.Max(time.Now().Year())),
		validation.Field(&p.Sales, validation.Min(int64(0))),
	)
}

type upvotePayload struct {
	Voter string `json:"voter"`
}

func (p upvotePayload) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.Voter, validation.Required, validation.Length(1, 100)),
	)
}

// notInFuture rejects dates after today. The value is an already
// format-validated date string; blank passes so Required stays the only
// presence rule.
func notInFuture(value any) error {
	s, _ := value.(string)
	if s == "" {
		return nil
	}
	d, err := time.Parse(dateLayout, s)
	if err != nil {
		return nil // the Date rule reports format errors
	}
	if d.After(time.Now()) {
		return validation.NewError("validation_date_future", "must not be in the future")
	}
	return nil
}
