package live

import (
	"time"

	"github.com/AlibekovAA/givematch-portal/internal/upstream"
)

const (
	KindStatsUpdate    = "stats_update"
	KindNewDonation    = "new_donation"
	KindMatchCompleted = "match_completed"
)

// DashboardStats is the payload of a stats_update event.
type DashboardStats struct {
	TotalDonations  upstream.Number `json:"total_donations"`
	TotalMatched    upstream.Number `json:"total_matched"`
	ActiveCampaigns upstream.Number `json:"active_campaigns"`
	DonorCount      upstream.Number `json:"donor_count"`
}

// DonationEvent is the payload of new_donation and match_completed events.
type DonationEvent struct {
	ID            upstream.ID     `json:"id"`
	Donor         string          `json:"donor"`
	Nonprofit     string          `json:"nonprofit"`
	Company       string          `json:"company,omitempty"`
	Amount        upstream.Number `json:"amount"`
	MatchedAmount upstream.Number `json:"matched_amount"`
}

type RecordedEvent struct {
	Kind       string        `json:"kind"`
	Donation   DonationEvent `json:"donation"`
	ReceivedAt time.Time     `json:"received_at"`
}
