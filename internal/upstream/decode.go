package upstream

import (
	"bytes"
	"encoding/json"
	"fmt"

	commonerrors "github.com/AlibekovAA/givematch-portal/internal/common/errors"
)

type paginated struct {
	Results json.RawMessage `json:"results"`
}

// decodeList accepts either a bare array or an object carrying a results
// array. A null body is an empty list.
func decodeList[T any](body []byte) ([]T, error) {
	body = bytes.TrimSpace(body)
	if len(body) == 0 || bytes.Equal(body, []byte("null")) {
		return []T{}, nil
	}

	switch body[0] {
	case '[':
		var items []T
		if err := json.Unmarshal(body, &items); err != nil {
			return nil, commonerrors.ErrUpstreamBadResponse.WithCause(err)
		}
		if items == nil {
			items = []T{}
		}
		return items, nil
	case '{':
		var page paginated
		if err := json.Unmarshal(body, &page); err != nil {
			return nil, commonerrors.ErrUpstreamBadResponse.WithCause(err)
		}
		if len(page.Results) == 0 {
			return nil, commonerrors.ErrUpstreamBadResponse.WithCause(fmt.Errorf("object response without results"))
		}
		results := bytes.TrimSpace(page.Results)
		if !bytes.Equal(results, []byte("null")) && results[0] != '[' {
			return nil, commonerrors.ErrUpstreamBadResponse.WithCause(fmt.Errorf("results is not an array"))
		}
		return decodeList[T](results)
	default:
		return nil, commonerrors.ErrUpstreamBadResponse.WithCause(fmt.Errorf("unexpected response shape"))
	}
}
