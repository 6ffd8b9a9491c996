package ids

import "github.com/segmentio/ksuid"

// New returns a K-sortable globally unique id for new records.
func New() string {
	return ksuid.New().String()
}
