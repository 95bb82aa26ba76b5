package messagequeue

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Validate checks whether data is valid JSON conforming to the schema
// associated with the given subject. Subjects outside the pipeline pass.
func Validate(subject string, data []byte) error {
	if !json.Valid(data) {
		return fmt.Errorf("invalid JSON on subject %s", subject)
	}
	if !strings.HasPrefix(subject, SubjectPrefix+".") {
		return nil
	}

	var p StagePayload
	if err := json.Unmarshal(data, &p); err != nil {
		return fmt.Errorf("schema validation failed for %s: %w", subject, err)
	}
	if p.TargetID == "" {
		return fmt.Errorf("schema validation failed for %s: target_id is required", subject)
	}
	if StageSubject(p.Stage) != subject {
		return fmt.Errorf("schema validation failed for %s: stage %q does not match subject", subject, p.Stage)
	}
	return nil
}
