package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"strings"

	"github.com/vbonduro/peoplegallery/internal/domain"
)

// personRepository is implemented by jsonstore.PersonStore and store.PersonStore.
type personRepository interface {
	Append(ctx context.Context, p domain.Person) error
	List(ctx context.Context) ([]domain.Person, error)
}

type PeopleService struct {
	repo   personRepository
	logger *slog.Logger
}

func NewPeopleService(repo personRepository, logger *slog.Logger) *PeopleService {
	return &PeopleService{repo: repo, logger: logger}
}

// Add validates and appends a person. age is the raw decoded JSON value: a
// number or a string holding one.
func (s *PeopleService) Add(ctx context.Context, name string, age interface{}) (domain.Person, error) {
	parsed, err := parseAge(age)
	if err != nil {
		return domain.Person{}, err
	}
	p := domain.Person{Name: strings.TrimSpace(name), Age: parsed}
	if err := check(p); err != nil {
		return domain.Person{}, err
	}

	if err := s.repo.Append(ctx, p); err != nil {
		return domain.Person{}, fmt.Errorf("failed to save person: %w", err)
	}
	s.logger.Debug("person added", "name", p.Name, "age", p.Age)
	return p, nil
}

func (s *PeopleService) List(ctx context.Context) ([]domain.Person, error) {
	people, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list people: %w", err)
	}
	return people, nil
}

// Search returns people whose name or age contains q, in insertion order.
func (s *PeopleService) Search(ctx context.Context, q string) ([]domain.Person, error) {
	people, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Person, 0, len(people))
	for _, p := range people {
		if p.Matches(q) {
			out = append(out, p)
		}
	}
	return out, nil
}

func parseAge(v interface{}) (float64, error) {
	var (
		age float64
		err error
	)
	switch t := v.(type) {
	case nil:
		return 0, domain.Invalid("age is required")
	case float64:
		age = t
	case json.Number:
		age, err = t.Float64()
	case string:
		s := strings.TrimSpace(t)
		if s == "" {
			return 0, domain.Invalid("age is required")
		}
		age, err = strconv.ParseFloat(s, 64)
	default:
		return 0, domain.Invalid("age must be a number")
	}
	if err != nil || math.IsNaN(age) || math.IsInf(age, 0) {
		return 0, domain.Invalid("age must be a number")
	}
	if age == 0 {
		// -0 compares equal to 0 but would be encoded as "-0".
		age = 0
	}
	return age, nil
}
