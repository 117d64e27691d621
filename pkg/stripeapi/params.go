package stripeapi

import (
	"fmt"
	"net/url"
	"strconv"
)

// Params holds request parameters for an API call. Values may be strings,
// numbers, booleans, nested Params/maps, slices, or model objects (which
// are reduced to their ID before encoding).
type Params map[string]any

// identifiable is implemented by every model object; a model passed as a
// parameter value is encoded as its ID, never as its full body.
type identifiable interface {
	ID() string
}

// encodeParams flattens params into form values using bracketed keys for
// nested structures (a[b]=c, items[0][plan]=p), matching what the
// processor expects for both query strings and urlencoded bodies.
func encodeParams(params Params) url.Values {
	values := url.Values{}
	for key, value := range params {
		addValue(values, key, value)
	}
	return values
}

func addValue(values url.Values, key string, value any) {
	switch v := value.(type) {
	case nil:
		return
	case identifiable:
		values.Set(key, v.ID())
	case bool:
		if v {
			values.Set(key, "true")
		} else {
			values.Set(key, "false")
		}
	case string:
		values.Set(key, v)
	case int:
		values.Set(key, strconv.Itoa(v))
	case int64:
		values.Set(key, strconv.FormatInt(v, 10))
	case float64:
		values.Set(key, strconv.FormatFloat(v, 'f', -1, 64))
	case Params:
		for sub, subValue := range v {
			addValue(values, key+"["+sub+"]", subValue)
		}
	case map[string]any:
		for sub, subValue := range v {
			addValue(values, key+"["+sub+"]", subValue)
		}
	case map[string]string:
		for sub, subValue := range v {
			values.Set(key+"["+sub+"]", subValue)
		}
	case []string:
		for i, item := range v {
			values.Set(key+"["+strconv.Itoa(i)+"]", item)
		}
	case []any:
		for i, item := range v {
			addValue(values, key+"["+strconv.Itoa(i)+"]", item)
		}
	case []Params:
		for i, item := range v {
			addValue(values, key+"["+strconv.Itoa(i)+"]", item)
		}
	default:
		values.Set(key, fmt.Sprint(v))
	}
}
