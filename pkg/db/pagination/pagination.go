package pagination

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"strings"
)

var ErrInvalidToken = errors.New("invalid page token")

const (
	DefaultPageSize = 25
	MaxPageSize     = 250
)

type Pagination struct {
	PageToken string `form:"page_token" json:"page_token,omitempty"`
	PageSize  int    `form:"page_size" json:"page_size,omitempty"`
}

// Size clamps PageSize to [1, MaxPageSize], defaulting when unset.
func (p Pagination) Size() int {
	switch {
	case p.PageSize <= 0:
		return DefaultPageSize
	case p.PageSize > MaxPageSize:
		return MaxPageSize
	default:
		return p.PageSize
	}
}

// Cursor marks the last row of a page in (position desc, id desc) order.
type Cursor struct {
	ID       string `json:"id,omitempty"`
	Position string `json:"position,omitempty"`
}

type PageInfo struct {
	NextPageToken string `json:"next_page_token,omitempty"`
	HasMore       bool   `json:"has_more"`
}

func EncodeCursor(data Cursor) (string, error) {
	b, err := json.Marshal(data)
	if err != nil {
		return "", err
	}

	return base64.RawURLEncoding.EncodeToString(b), nil
}

func DecodeCursor(data string) (*Cursor, error) {
	data = strings.TrimSpace(data)
	if data == "" {
		return nil, nil
	}
	b, err := base64.RawURLEncoding.DecodeString(data)
	if err != nil {
		return nil, ErrInvalidToken
	}

	var cursor Cursor
	if err := json.Unmarshal(b, &cursor); err != nil {
		return nil, ErrInvalidToken
	}
	if cursor.ID == "" || cursor.Position == "" {
		return nil, ErrInvalidToken
	}

	return &cursor, nil
}

// BuildCursorPageInfo expects data fetched with limit+1 rows and trims it to
// limit, returning the page info for the trimmed slice.
func BuildCursorPageInfo[T any](data []T, limit int, extractCursor func(T) Cursor) ([]T, PageInfo, error) {
	if len(data) <= limit || limit <= 0 {
		return data, PageInfo{HasMore: false}, nil
	}

	data = data[:limit]
	token, err := EncodeCursor(extractCursor(data[len(data)-1]))
	if err != nil {
		return nil, PageInfo{}, err
	}

	return data, PageInfo{HasMore: true, NextPageToken: token}, nil
}
