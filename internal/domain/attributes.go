package domain

// Field names used by requirements and clarification questions.
const (
	FieldAction         = "action"
	FieldObject         = "object"
	FieldSpecificObject = "specific_object"
	FieldLocation       = "location"
	FieldQuantity       = "quantity"
	FieldSize           = "size"
	FieldConditions     = "conditions"
	FieldDuration       = "duration"
	FieldTime           = "time"
	FieldDate           = "date"
)

// Fields lists every attribute name in declaration order.
var Fields = []string{
	FieldAction, FieldObject, FieldSpecificObject, FieldLocation, FieldQuantity,
	FieldSize, FieldConditions, FieldDuration, FieldTime, FieldDate,
}

// Attributes is the structured fact set extracted from a message. Every field
// is optional; nil means "not mentioned".
type Attributes struct {
	Action         *string `json:"action"          gorm:"type:varchar(255)"`
	Object         *string `json:"object"          gorm:"type:varchar(255)"`
	SpecificObject *string `json:"specific_object" gorm:"type:varchar(255)"`
	Location       *string `json:"location"        gorm:"type:varchar(255)"`
	Quantity       *string `json:"quantity"        gorm:"type:varchar(255)"`
	Size           *string `json:"size"            gorm:"type:varchar(255)"`
	Conditions     *string `json:"conditions"      gorm:"type:varchar(255)"`
	Duration       *string `json:"duration"        gorm:"type:varchar(255)"`
	Time           *string `json:"time"            gorm:"column:time_of_day;type:varchar(32)"`
	Date           *string `json:"date"            gorm:"column:date_text;type:varchar(32)"`
}

// Get returns the attribute stored under the given field name. Unknown names
// yield nil.
func (a Attributes) Get(field string) *string {
	switch field {
	case FieldAction:
		return a.Action
	case FieldObject:
		return a.Object
	case FieldSpecificObject:
		return a.SpecificObject
	case FieldLocation:
		return a.Location
	case FieldQuantity:
		return a.Quantity
	case FieldSize:
		return a.Size
	case FieldConditions:
		return a.Conditions
	case FieldDuration:
		return a.Duration
	case FieldTime:
		return a.Time
	case FieldDate:
		return a.Date
	}
	return nil
}

// Empty reports whether no attribute is set.
func (a Attributes) Empty() bool {
	for _, f := range Fields {
		if a.Get(f) != nil {
			return false
		}
	}
	return true
}

// Keywords returns the non-nil values among action and object, in that order.
func (a Attributes) Keywords() []string {
	out := make([]string, 0, 2)
	if a.Action != nil && *a.Action != "" {
		out = append(out, *a.Action)
	}
	if a.Object != nil && *a.Object != "" {
		out = append(out, *a.Object)
	}
	return out
}

// Deref returns the pointed-to value or "".
func Deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// Ptr returns a pointer to s.
func Ptr(s string) *string { return &s }

// IsField reports whether name is one of Fields.
func IsField(name string) bool {
	for _, f := range Fields {
		if f == name {
			return true
		}
	}
	return false
}
