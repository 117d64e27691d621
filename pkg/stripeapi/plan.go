package stripeapi

import "context"

// Plan represents a recurring billing plan.
type Plan struct {
	Object
}

var planUpdatable = []string{
	"active",
	"metadata",
	"nickname",
	"product",
	"trial_period_days",
}

func newPlan(data map[string]any, api *Client) *Plan {
	p := &Plan{}
	p.Object = newObject(api, objectConfig{
		endpoint:  "plans",
		updatable: planUpdatable,
		nested: map[string]nestedCtor{
			"product": func(m map[string]any, api *Client) any { return newProduct(m, api) },
		},
	}, data)
	return p
}

func (p *Plan) Amount() int64         { return p.GetInt("amount") }
func (p *Plan) Currency() string      { return p.GetString("currency") }
func (p *Plan) Interval() string      { return p.GetString("interval") }
func (p *Plan) TrialPeriodDays() int64 { return p.GetInt("trial_period_days") }

// GetPlan retrieves a plan with its product expanded; ErrNotFound when
// missing.
func (c *Client) GetPlan(ctx context.Context, id string) (*Plan, error) {
	response, err := c.retrieve(ctx, "plans/"+id, Params{"expand": []string{"product"}})
	if err != nil {
		return nil, err
	}
	return newPlan(response, c), nil
}

// CreatePlan creates a plan.
func (c *Client) CreatePlan(ctx context.Context, params Params) (*Plan, error) {
	response, err := c.create(ctx, "plans", params)
	if err != nil {
		return nil, err
	}
	return newPlan(response, c), nil
}
