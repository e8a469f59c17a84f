package models

import "time"

// PrizeTier is a named prize category with a fixed award quota.
type PrizeTier struct {
	Name  string `json:"name"`
	Icon  string `json:"icon"`
	Quota int    `json:"quota"`
	Order int    `json:"order"` // display order, ascending
}

// AwardRecord links one winner to the tier they won. Records are append-only.
type AwardRecord struct {
	ParticipantName string    `json:"name"`
	TierName        string    `json:"tier"`
	Time            time.Time `json:"time"`
}

// TierStatus is a tier together with its live award counts.
type TierStatus struct {
	PrizeTier
	Awarded   int  `json:"awarded"`
	Remaining int  `json:"remaining"`
	Exhausted bool `json:"exhausted"`
}

// Snapshot is the persisted shape of one lottery session.
type Snapshot struct {
	Participants []string      `json:"participants"`
	Tiers        []PrizeTier   `json:"tiers"`
	Records      []AwardRecord `json:"records"`
}
