package stripeapi

import "context"

// Product represents a sellable good or service.
type Product struct {
	Object
}

var productUpdatable = []string{
	"active",
	"default_price",
	"description",
	"metadata",
	"name",
	"features",
	"images",
	"package_dimensions",
	"shippable",
	"statement_descriptor",
	"tax_code",
	"unit_label",
	"url",
}

func newProduct(data map[string]any, api *Client) *Product {
	p := &Product{}
	p.Object = newObject(api, objectConfig{
		endpoint:  "products",
		updatable: productUpdatable,
	}, data)
	return p
}

func (p *Product) Name() string { return p.GetString("name") }

// GetProduct retrieves a product; ErrNotFound when missing.
func (c *Client) GetProduct(ctx context.Context, id string) (*Product, error) {
	response, err := c.retrieve(ctx, "products/"+id, nil)
	if err != nil {
		return nil, err
	}
	return newProduct(response, c), nil
}
