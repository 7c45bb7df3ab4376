package client

import (
	"context"
	"encoding/json"

	"github.com/tidwall/gjson"
)

// PaginateSpec configures the generic page-follower. Pages advance either by
// an incrementing page number (PageParam) or by a server-provided token
// extracted from the previous response (NextTokenPath + TokenParam).
type PaginateSpec struct {
	Request RequestSpec

	// PageParam is the query parameter carrying the page number
	// (default "page"). Ignored when NextTokenPath is set.
	PageParam string

	// StartPage is the first page number (default 1).
	StartPage int

	// PageSizeParam names the query parameter carrying PageSize. When empty,
	// PageSize is only used for the short-page stop condition.
	PageSizeParam string

	// PageSize is the requested page size. A page shorter than this stops
	// the loop.
	PageSize int

	// DataPath is the gjson path of the result array in each response body
	// (default "items"). A non-array value at the path is treated as a
	// singleton page.
	DataPath string

	// NextTokenPath, when set, switches to token pagination: the value at
	// this path in the previous response is sent as TokenParam on the next
	// request, and an absent/falsy token stops the loop.
	NextTokenPath string

	// TokenParam is the query parameter carrying the next-page token
	// (default "cursor").
	TokenParam string

	// MaxPages bounds the number of requests (default 10).
	MaxPages int

	// StopWhenEmpty stops the loop on the first page with zero items.
	StopWhenEmpty bool
}

// PaginateResult is the accumulated output of Paginate.
type PaginateResult struct {
	// Items is the concatenation of every page's extracted items.
	Items []any

	// Responses holds the raw response envelopes in request order.
	Responses []*Response
}

// Paginate repeatedly issues the request with an escalating page indicator
// and concatenates the extracted arrays. It stops when the page is empty
// (if StopWhenEmpty), the page is shorter than PageSize, the next-page token
// is absent, or MaxPages is reached. Scan strategies do not use this; their
// termination conditions are irregular enough to warrant their own loops.
func (c *Client) Paginate(ctx context.Context, spec PaginateSpec) (*PaginateResult, error) {
	if spec.PageParam == "" {
		spec.PageParam = "page"
	}
	if spec.StartPage <= 0 {
		spec.StartPage = 1
	}
	if spec.DataPath == "" {
		spec.DataPath = "items"
	}
	if spec.TokenParam == "" {
		spec.TokenParam = "cursor"
	}
	if spec.MaxPages <= 0 {
		spec.MaxPages = 10
	}

	result := &PaginateResult{}
	token := ""
	tokenMode := spec.NextTokenPath != ""

	for page := 0; page < spec.MaxPages; page++ {
		req := spec.Request
		req.Query = cloneQuery(req.Query)
		if tokenMode {
			if token != "" {
				req.Query[spec.TokenParam] = token
			}
		} else {
			req.Query[spec.PageParam] = spec.StartPage + page
		}
		if spec.PageSizeParam != "" && spec.PageSize > 0 {
			req.Query[spec.PageSizeParam] = spec.PageSize
		}

		resp, err := c.Request(ctx, req)
		if err != nil {
			return result, err
		}
		result.Responses = append(result.Responses, resp)

		items := extractItems(resp.Raw(), spec.DataPath)
		result.Items = append(result.Items, items...)

		if len(items) == 0 && spec.StopWhenEmpty {
			break
		}
		if spec.PageSize > 0 && len(items) < spec.PageSize {
			break
		}

		if tokenMode {
			next := gjson.GetBytes(resp.Raw(), spec.NextTokenPath)
			if !truthyToken(next) {
				break
			}
			token = next.String()
		}
	}

	return result, nil
}

// extractItems pulls the page's items out of the raw body. A missing path
// yields an empty page; a scalar or object yields a singleton.
func extractItems(raw []byte, dataPath string) []any {
	value := gjson.GetBytes(raw, dataPath)
	if !value.Exists() || value.Type == gjson.Null {
		return nil
	}
	if value.IsArray() {
		parts := value.Array()
		items := make([]any, 0, len(parts))
		for _, part := range parts {
			items = append(items, part.Value())
		}
		return items
	}
	return []any{value.Value()}
}

// truthyToken reports whether a next-page token should advance the loop.
// Absent, null, false, empty-string, and zero tokens all stop it.
func truthyToken(value gjson.Result) bool {
	switch value.Type {
	case gjson.String:
		return value.String() != ""
	case gjson.Number:
		return value.Float() != 0
	case gjson.True:
		return true
	default:
		return false
	}
}

func cloneQuery(query map[string]any) map[string]any {
	clone := make(map[string]any, len(query)+2)
	for k, v := range query {
		clone[k] = v
	}
	return clone
}

// DecodeInto re-encodes a parsed JSON value into a typed struct. It is a
// convenience for callers that want typed records out of Response.Data.
func DecodeInto(data any, target any) error {
	encoded, err := json.Marshal(data)
	if err != nil {
		return err
	}
	return json.Unmarshal(encoded, target)
}
