package util

import (
	"time"
	_ "time/tzdata"

	"github.com/yorunoba/nightdesk-backend/pkg/logger"
)

// LoadLocation resolves an IANA zone name. Unknown names fall back to UTC+9,
// where every store currently operates.
func LoadLocation(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		logger.Warn("Unknown display timezone, using UTC+9", map[string]interface{}{
			"timezone": name,
			"error":    err.Error(),
		})
		return time.FixedZone("UTC+9", 9*60*60)
	}
	return loc
}
