package postgres

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

var ErrInvalidCursor = errors.New("invalid cursor")

// Cursor — позиция в выборке (created_at, id DESC). На провод уходит
// "<unix-nanos>~<id>"; клиент видит непрозрачный токен и возвращает его как есть.
// Наносекундная точность сохраняет порядок timestamptz без потерь.
type Cursor struct {
	CreatedAt time.Time
	ID        string
}

func EncodeCursor(c Cursor) string {
	return strconv.FormatInt(c.CreatedAt.UnixNano(), 10) + "~" + c.ID
}

func DecodeCursor(s string) (*Cursor, error) {
	if s == "" {
		return nil, nil
	}
	nanos, id, ok := strings.Cut(s, "~")
	if !ok || id == "" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidCursor, s)
	}
	n, err := strconv.ParseInt(nanos, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrInvalidCursor, s)
	}
	return &Cursor{CreatedAt: time.Unix(0, n).UTC(), ID: id}, nil
}
