package storage

import (
	"database/sql/driver"
	"fmt"
)

// JSON holds an opaque JSON document. It is stored verbatim in a jsonb column
// and never inspected beyond being present.
type JSON []byte

func (j JSON) MarshalJSON() ([]byte, error) {
	if len(j) == 0 {
		return []byte("null"), nil
	}
	return j, nil
}

// UnmarshalJSON keeps a literal null as an absent value.
func (j *JSON) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*j = nil
		return nil
	}
	*j = append((*j)[:0], data...)
	return nil
}

func (j JSON) Value() (driver.Value, error) {
	if len(j) == 0 {
		return nil, nil
	}
	return string(j), nil
}

func (j *JSON) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*j = nil
	case []byte:
		*j = append(JSON(nil), v...)
	case string:
		*j = JSON(v)
	default:
		return fmt.Errorf("storage: cannot scan %T into JSON", src)
	}
	return nil
}

func (j JSON) clone() JSON {
	if j == nil {
		return nil
	}
	return append(JSON(nil), j...)
}
