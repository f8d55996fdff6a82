package utils

import (
	"time"

	"github.com/beevik/ntp"
)

// ClockOffset queries server and returns how far the local clock is from it.
func ClockOffset(server string) (time.Duration, error) {
	resp, err := ntp.QueryWithOptions(server, ntp.QueryOptions{Timeout: 3 * time.Second})
	if err != nil {
		return 0, err
	}
	if err = resp.Validate(); err != nil {
		return 0, err
	}

	return resp.ClockOffset, nil
}
