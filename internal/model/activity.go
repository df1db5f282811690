package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// DisplayTimeLayout renders the scheduled moment of an activity.
const DisplayTimeLayout = "02/01/2006 15:04"

// Activity is a single scheduled task record.
type Activity struct {
	ID       string   `json:"id"`
	Task     string   `json:"task"`
	Category Category `json:"category"`
	Duration Minutes  `json:"duration"`
	Time     string   `json:"time"`
	Done     bool     `json:"done"`
}

// Minutes is a duration in whole minutes. It decodes from a JSON number or a
// numeric string, and always encodes as a number.
type Minutes int

func (m *Minutes) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*m = 0
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var raw string
		if err := json.Unmarshal(data, &raw); err != nil {
			return err
		}
		raw = strings.TrimSpace(raw)
		if raw == "" {
			*m = 0
			return nil
		}
		n, err := strconv.Atoi(raw)
		if err != nil {
			return fmt.Errorf("duration %q is not a number", raw)
		}
		*m = Minutes(n)
		return nil
	}
	var n int
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("duration: %w", err)
	}
	*m = Minutes(n)
	return nil
}
