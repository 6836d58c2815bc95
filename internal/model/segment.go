package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// SegmentCriteria is the saved-filter definition: every field-equality pair
// must match the recipient's merge fields, and the recipient must carry every
// listed tag.
type SegmentCriteria struct {
	FieldEquals map[string]string `json:"field_equals,omitempty"`
	HasTags     []string          `json:"has_tags,omitempty"`
}

func (c SegmentCriteria) Value() (driver.Value, error) {
	return json.Marshal(c)
}

func (c *SegmentCriteria) Scan(src any) error {
	switch v := src.(type) {
	case []byte:
		return json.Unmarshal(v, c)
	case string:
		return json.Unmarshal([]byte(v), c)
	case nil:
		*c = SegmentCriteria{}
		return nil
	}
	return fmt.Errorf("cannot scan %T into SegmentCriteria", src)
}

type Segment struct {
	ID        string          `db:"id" json:"id"`
	Name      string          `db:"name" json:"name"`
	Criteria  SegmentCriteria `db:"criteria" json:"criteria"`
	CreatedAt time.Time       `db:"created_at" json:"created_at"`
}
