package database

import (
	"fmt"
	"strings"
	"time"
)

// nullTime scans timestamps from drivers that return time.Time (pgx) and
// from sqlite columns stored as text or unix seconds.
type nullTime struct {
	Time  time.Time
	Valid bool
}

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05",
	time.DateOnly,
}

// Scan implements sql.Scanner.
func (nt *nullTime) Scan(value any) error {
	switch v := value.(type) {
	case nil:
		*nt = nullTime{}
		return nil
	case time.Time:
		*nt = nullTime{Time: v.UTC(), Valid: true}
		return nil
	case int64:
		*nt = nullTime{Time: time.Unix(v, 0).UTC(), Valid: true}
		return nil
	case []byte:
		return nt.parse(string(v))
	case string:
		return nt.parse(v)
	default:
		return fmt.Errorf("unsupported timestamp type %T", value)
	}
}

func (nt *nullTime) parse(s string) error {
	s = strings.TrimSpace(s)
	if s == "" {
		*nt = nullTime{}
		return nil
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			*nt = nullTime{Time: t.UTC(), Valid: true}
			return nil
		}
	}
	return fmt.Errorf("unparseable timestamp %q", s)
}
