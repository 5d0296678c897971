package upstream

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
)

// Number accepts JSON numbers, numeric strings and null. Anything that cannot
// be read as a number decodes to 0.
type Number float64

func (n *Number) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*n = 0
		return nil
	}

	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			*n = 0
			return nil
		}
		f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			*n = 0
			return nil
		}
		*n = Number(f)
		return nil
	}

	f, err := strconv.ParseFloat(string(data), 64)
	if err != nil {
		*n = 0
		return nil
	}
	*n = Number(f)
	return nil
}

func (n Number) Float64() float64 {
	return float64(n)
}

// ID accepts both string and numeric identifiers.
type ID string

func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}
	*id = ID(string(data))
	return nil
}

type User struct {
	ID        ID     `json:"id"`
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Role      string `json:"role"`
	Company   string `json:"company,omitempty"`
}

type Donation struct {
	ID            ID     `json:"id"`
	Donor         string `json:"donor"`
	Nonprofit     string `json:"nonprofit"`
	Campaign      string `json:"campaign,omitempty"`
	Amount        Number `json:"amount"`
	MatchedAmount Number `json:"matched_amount"`
	Status        string `json:"status"`
	CreatedAt     string `json:"created_at"`
}

type Company struct {
	ID            ID     `json:"id"`
	Name          string `json:"name"`
	MatchRatio    Number `json:"match_ratio"`
	MatchCap      Number `json:"match_cap"`
	EmployeeCount Number `json:"employee_count"`
	TotalMatched  Number `json:"total_matched"`
}

type Campaign struct {
	ID      ID     `json:"id"`
	Title   string `json:"title"`
	Company string `json:"company,omitempty"`
	Goal    Number `json:"goal"`
	Raised  Number `json:"raised"`
	Status  string `json:"status"`
	EndDate string `json:"end_date,omitempty"`
}

func (c Campaign) Active() bool {
	return c.Status == "" || strings.EqualFold(c.Status, "active")
}

type Nonprofit struct {
	ID          ID     `json:"id"`
	Name        string `json:"name"`
	Category    string `json:"category"`
	TotalRaised Number `json:"total_raised"`
}

type LeaderboardEntry struct {
	Rank   Number `json:"rank"`
	Name   string `json:"name"`
	Amount Number `json:"amount"`
}
