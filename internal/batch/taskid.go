package batch

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// newTaskID builds a task identifier of the form
// batch_<YYYYMMDD_HHMMSS>_<6 hex>. The timestamp keeps directories
// sortable; the random suffix keeps same-second submissions apart.
func newTaskID(now time.Time) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:6]
	return fmt.Sprintf("batch_%s_%s", now.Format("20060102_150405"), suffix)
}
