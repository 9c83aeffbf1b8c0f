package pagination

import (
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"
)

const (
	// DefaultLimit is the standard page size when a limit is not provided.
	DefaultLimit = 25
	// MaxLimit caps how many items any page can request.
	MaxLimit = 100
)

const cursorPrefix = "after:"

// Params holds cursor pagination inputs from controllers.
type Params struct {
	Limit  int
	Cursor string
}

// Cursor points just past the last item of the previous page.
type Cursor struct {
	AfterID int64
}

// NormalizeLimit enforces the configured default and maximum limits.
func NormalizeLimit(limit int) int {
	if limit <= 0 {
		return DefaultLimit
	}
	if limit > MaxLimit {
		return MaxLimit
	}
	return limit
}

// EncodeCursor builds an opaque cursor string from the provided values.
func EncodeCursor(cursor Cursor) string {
	payload := cursorPrefix + strconv.FormatInt(cursor.AfterID, 10)
	return base64.RawURLEncoding.EncodeToString([]byte(payload))
}

// ParseCursor decodes the cursor string back into its components. An empty
// value yields a nil cursor.
func ParseCursor(value string) (*Cursor, error) {
	if strings.TrimSpace(value) == "" {
		return nil, nil
	}

	decoded, err := base64.RawURLEncoding.DecodeString(value)
	if err != nil {
		return nil, fmt.Errorf("decode cursor: %w", err)
	}
	raw, ok := strings.CutPrefix(string(decoded), cursorPrefix)
	if !ok {
		return nil, fmt.Errorf("invalid cursor format")
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return nil, fmt.Errorf("invalid cursor id")
	}
	return &Cursor{AfterID: id}, nil
}

// Slice returns one page of items in their existing order plus the cursor of
// the next page, empty on the last page. A cursor whose item is no longer
// present is an error so callers restart instead of skipping items.
func Slice[T any](items []T, idOf func(T) int64, params Params) ([]T, string, error) {
	cursor, err := ParseCursor(params.Cursor)
	if err != nil {
		return nil, "", err
	}

	start := 0
	if cursor != nil {
		start = -1
		for i, item := range items {
			if idOf(item) == cursor.AfterID {
				start = i + 1
				break
			}
		}
		if start < 0 {
			return nil, "", fmt.Errorf("cursor no longer matches the catalog")
		}
	}

	limit := NormalizeLimit(params.Limit)
	end := min(start+limit, len(items))
	page := items[start:end]

	next := ""
	if end < len(items) && len(page) > 0 {
		next = EncodeCursor(Cursor{AfterID: idOf(page[len(page)-1])})
	}
	return page, next, nil
}
