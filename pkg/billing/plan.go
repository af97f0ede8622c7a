package billing

import (
	"errors"
	"fmt"
	"strings"

	"github.com/notenibblers/notenibblers/pkg/profile"
)

// Unlimited indicates no quota for a plan (-1 chosen for SQL compatibility).
const Unlimited int64 = -1

// Money represents a monetary amount in the smallest currency unit.
// $19.99 USD is Amount: 1999, Currency: "USD".
type Money struct {
	Amount   int64  `yaml:"amount"`
	Currency string `yaml:"currency"`
}

// Plan describes a subscription tier. Plans are immutable deploy-time
// configuration; PriceID is the billing provider's price reference for paid
// plans and empty for free ones.
type Plan struct {
	ID            string   `yaml:"id"`
	Name          string   `yaml:"name"`
	Description   string   `yaml:"description"`
	QuizLimit     int64    `yaml:"quiz_limit"` // quizzes per billing period, -1 for unlimited
	QuestionLimit int      `yaml:"question_limit"`
	Price         Money    `yaml:"price"`
	PriceID       string   `yaml:"price_id"`
	Features      []string `yaml:"features"`
	Public        bool     `yaml:"public"`
}

// IsPaid reports whether the plan goes through the billing provider.
func (p Plan) IsPaid() bool {
	return p.PriceID != ""
}

// Role is the profile role a subscriber to this plan holds: the lower-cased
// plan id. Admin is not a plan and never comes out of here.
func (p Plan) Role() profile.Role {
	return profile.Role(strings.ToLower(p.ID))
}

// Catalog is an injected, read-only lookup of the configured plans.
type Catalog struct {
	plans map[string]Plan
	order []string
}

// NewCatalog validates the given plans and builds a catalog.
func NewCatalog(plans ...Plan) (*Catalog, error) {
	if len(plans) == 0 {
		return nil, fmt.Errorf("%w: at least one plan is required", ErrInvalidCatalog)
	}

	c := &Catalog{plans: make(map[string]Plan, len(plans))}
	seenPrices := make(map[string]string, len(plans))
	for _, p := range plans {
		if p.ID == "" {
			return nil, fmt.Errorf("%w: plan id is required", ErrInvalidCatalog)
		}
		if _, dup := c.plans[p.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate plan id %q", ErrInvalidCatalog, p.ID)
		}
		if p.QuizLimit < Unlimited {
			return nil, fmt.Errorf("%w: plan %q has invalid quiz limit %d", ErrInvalidCatalog, p.ID, p.QuizLimit)
		}
		if p.QuestionLimit <= 0 {
			return nil, fmt.Errorf("%w: plan %q has invalid question limit %d", ErrInvalidCatalog, p.ID, p.QuestionLimit)
		}
		if p.Price.Amount < 0 {
			return nil, fmt.Errorf("%w: plan %q has negative price", ErrInvalidCatalog, p.ID)
		}
		if p.Price.Amount > 0 && p.PriceID == "" {
			return nil, fmt.Errorf("%w: paid plan %q needs a provider price reference", ErrInvalidCatalog, p.ID)
		}
		if p.PriceID != "" {
			if other, dup := seenPrices[p.PriceID]; dup {
				return nil, fmt.Errorf("%w: plans %q and %q share price reference %q", ErrInvalidCatalog, other, p.ID, p.PriceID)
			}
			seenPrices[p.PriceID] = p.ID
		}
		c.plans[p.ID] = p
		c.order = append(c.order, p.ID)
	}
	return c, nil
}

// MustNewCatalog panics on invalid configuration; plan misconfiguration
// should prevent startup.
func MustNewCatalog(plans ...Plan) *Catalog {
	c, err := NewCatalog(plans...)
	if err != nil {
		panic(err)
	}
	return c
}

// ByID resolves a plan by its identifier.
func (c *Catalog) ByID(id string) (Plan, error) {
	p, ok := c.plans[id]
	if !ok {
		return Plan{}, ErrPlanNotFound
	}
	return p, nil
}

// ByPriceID resolves a plan by the provider's price reference. Linear over
// the handful of configured plans.
func (c *Catalog) ByPriceID(priceID string) (Plan, error) {
	if priceID == "" {
		return Plan{}, errors.Join(ErrUnknownPriceRef, errors.New("empty price reference"))
	}
	for _, id := range c.order {
		if p := c.plans[id]; p.PriceID == priceID {
			return p, nil
		}
	}
	return Plan{}, fmt.Errorf("%w: %s", ErrUnknownPriceRef, priceID)
}

// Public returns the plans offered for self-service signup, in
// configuration order.
func (c *Catalog) Public() []Plan {
	out := make([]Plan, 0, len(c.order))
	for _, id := range c.order {
		if p := c.plans[id]; p.Public {
			out = append(out, p)
		}
	}
	return out
}

// DefaultPlans returns the built-in FREE/PRO catalog. The PRO price
// reference comes from configuration since it differs per environment.
func DefaultPlans(proPriceID string) []Plan {
	return []Plan{
		{
			ID:            "FREE",
			Name:          "Free",
			QuizLimit:     3,
			QuestionLimit: 20,
			Price:         Money{Amount: 0, Currency: "USD"},
			Features: []string{
				"3 quizzes per month",
				"Up to 20 questions per quiz",
				"All file formats",
			},
			Public: true,
		},
		{
			ID:            "PRO",
			Name:          "Pro",
			QuizLimit:     Unlimited,
			QuestionLimit: 20,
			Price:         Money{Amount: 1999, Currency: "USD"},
			PriceID:       proPriceID,
			Features: []string{
				"Unlimited quizzes",
				"Up to 20 questions per quiz",
				"All file formats",
				"Unlimited note storage",
			},
			Public: true,
		},
	}
}
