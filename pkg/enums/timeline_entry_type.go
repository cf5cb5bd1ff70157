package enums

import "fmt"

// TimelineEntryType classifies an order timeline audit entry.
type TimelineEntryType string

const (
	TimelineEntryStatusChange TimelineEntryType = "status_change"
	TimelineEntryPayment      TimelineEntryType = "payment"
	TimelineEntryNote         TimelineEntryType = "note"
)

var validTimelineEntryTypes = []TimelineEntryType{
	TimelineEntryStatusChange,
	TimelineEntryPayment,
	TimelineEntryNote,
}

// String implements fmt.Stringer.
func (t TimelineEntryType) String() string {
	return string(t)
}

// IsValid reports whether the value is a known TimelineEntryType.
func (t TimelineEntryType) IsValid() bool {
	for _, candidate := range validTimelineEntryTypes {
		if candidate == t {
			return true
		}
	}
	return false
}

// ParseTimelineEntryType converts raw input into a TimelineEntryType.
func ParseTimelineEntryType(value string) (TimelineEntryType, error) {
	for _, candidate := range validTimelineEntryTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid timeline entry type %q", value)
}
