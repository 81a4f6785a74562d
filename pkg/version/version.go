// Package version holds build information stamped in by the linker:
//
//	go build -ldflags "-X github.com/nais/deploystatus/pkg/version.revision=$(git rev-parse --short HEAD) -X github.com/nais/deploystatus/pkg/version.date=$(date +%s)"
package version

import (
	"fmt"
	"strconv"
	"time"
)

var (
	revision = "unknown"
	date     = "0"
)

func Version() string {
	return revision
}

// BuildTime returns the build timestamp, which is stored as a UNIX epoch.
func BuildTime() (time.Time, error) {
	epoch, err := strconv.ParseInt(date, 10, 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("expected UNIX epoch, found '%s'", date)
	}
	if epoch == 0 {
		return time.Time{}, fmt.Errorf("build time not set")
	}
	return time.Unix(epoch, 0), nil
}
