// Package model defines domain models for the habit record ledger.
package model

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// Categories is the fixed set of habit categories known to the contract.
// Category indices stored on chain resolve into this slice modulo its length.
var Categories = []string{"健康", "学习", "工作", "生活", "运动", "其他"}

// CategoryAll bypasses category filtering in Filter.
const CategoryAll = "all"

// CategoryLabel resolves an on-chain category index to its display label.
func CategoryLabel(index uint32) string {
	return Categories[int(index)%len(Categories)]
}

// CategoryIndex returns the index for a label, or the index of the catch-all
// category when the label is unknown.
func CategoryIndex(label string) uint32 {
	for i, c := range Categories {
		if c == label {
			return uint32(i)
		}
	}
	return uint32(len(Categories) - 1)
}

// Record is a habit record as read from the ledger. The protected value lives
// behind CiphertextHandle; ClearValue is authoritative only when Verified is
// true. PublicMetric1 is a deliberately public convenience copy of the same
// user input and must never be treated as the confidential value.
type Record struct {
	ID               string         `json:"id"`
	Name             string         `json:"name"`
	Category         string         `json:"category"`
	CategoryIndex    uint32         `json:"categoryIndex"`
	CreatedAt        time.Time      `json:"createdAt"`
	Creator          common.Address `json:"creator"`
	PublicMetric1    uint64         `json:"publicMetric1"`
	PublicMetric2    uint64         `json:"publicMetric2"`
	CiphertextHandle common.Hash    `json:"ciphertextHandle"`
	Verified         bool           `json:"verified"`
	ClearValue       uint64         `json:"-"`
}

// MarshalJSON exposes clearValue only once the record is ledger-verified.
func (r Record) MarshalJSON() ([]byte, error) {
	type alias Record
	if !r.Verified {
		return json.Marshal(alias(r))
	}
	return json.Marshal(struct {
		alias
		ClearValue uint64 `json:"clearValue"`
	}{alias: alias(r), ClearValue: r.ClearValue})
}

// Filter selects records by case-insensitive name substring and exact
// category. An empty or "all" category matches every category.
type Filter struct {
	Search   string
	Category string
}

// Matches reports whether the record passes the filter.
func (f Filter) Matches(r Record) bool {
	if f.Search != "" && !strings.Contains(strings.ToLower(r.Name), strings.ToLower(f.Search)) {
		return false
	}
	if f.Category != "" && f.Category != CategoryAll && r.Category != f.Category {
		return false
	}
	return true
}

// Stats aggregates public metrics across the record collection.
type Stats struct {
	TotalRecords   int       `json:"totalRecords"`
	CompletedToday int       `json:"completedToday"`
	CurrentStreak  uint64    `json:"currentStreak"`
	SuccessRate    int       `json:"successRate"`
	WeeklyTrend    [7]uint64 `json:"weeklyTrend"`
}

// ComputeStats derives display statistics from records. CompletedToday counts
// records with a positive PublicMetric1, CurrentStreak is the maximum
// PublicMetric1, SuccessRate is completed/total rounded to the nearest percent
// and WeeklyTrend buckets PublicMetric1 by creation weekday (Sunday first).
func ComputeStats(records []Record) Stats {
	s := Stats{TotalRecords: len(records)}
	for _, r := range records {
		if r.PublicMetric1 > 0 {
			s.CompletedToday++
		}
		if r.PublicMetric1 > s.CurrentStreak {
			s.CurrentStreak = r.PublicMetric1
		}
		s.WeeklyTrend[int(r.CreatedAt.Weekday())] += r.PublicMetric1
	}
	if s.TotalRecords > 0 {
		s.SuccessRate = int((float64(s.CompletedToday)/float64(s.TotalRecords))*100 + 0.5)
	}
	return s
}

// Operation is a single user-visible operation, kept in the in-memory history
// log and optionally mirrored to the audit warehouse.
type Operation struct {
	At          time.Time `json:"at"`
	Description string    `json:"description"`
}
