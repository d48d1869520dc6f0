package types

import (
	"fmt"
	"strings"
)

// ValidateIDPresent checks that an identifier is non-blank.
func ValidateIDPresent(id, field string) error {
	if strings.TrimSpace(id) == "" {
		return fmt.Errorf("%s is required", field)
	}
	return nil
}

// ValidateEntity checks the invariants an ExtractedEntity must hold before
// it is handed to consumers. Bounds are intentionally not range-checked
// here; consumers clamp them against whatever text they resolve on.
func ValidateEntity(e *ExtractedEntity) error {
	if err := ValidateIDPresent(e.ID, "id"); err != nil {
		return err
	}
	if err := ValidateIDPresent(e.SourceSegmentID, "sourceSegmentId"); err != nil {
		return err
	}
	switch e.Kind {
	case EntityTodo, EntitySchedule:
	default:
		return fmt.Errorf("unknown entity kind %q", e.Kind)
	}
	if e.TextStartIndex != nil && e.TextEndIndex != nil && *e.TextStartIndex > *e.TextEndIndex {
		return fmt.Errorf("textStartIndex %d > textEndIndex %d", *e.TextStartIndex, *e.TextEndIndex)
	}
	return nil
}
