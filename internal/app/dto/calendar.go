package dto

import (
	"time"

	"stayride/internal/domain/availability"
)

type CalendarBlock struct {
	From      time.Time `json:"from"`
	To        time.Time `json:"to"`
	Reason    string    `json:"reason"`
	Reference string    `json:"reference"`
}

type Calendar struct {
	ListingID string          `json:"listing_id"`
	Version   int64           `json:"version"`
	Blocks    []CalendarBlock `json:"blocks"`
}

// MapCalendar keeps blocks overlapping [from, to); zero bounds keep everything.
func MapCalendar(cal *availability.AvailabilityCalendar, from, to time.Time) Calendar {
	if cal == nil {
		return Calendar{Blocks: []CalendarBlock{}}
	}
	blocks := make([]CalendarBlock, 0, len(cal.Blocks))
	for _, b := range cal.Blocks {
		if !from.IsZero() && !b.Range.CheckOut.After(from) {
			continue
		}
		if !to.IsZero() && !b.Range.CheckIn.Before(to) {
			continue
		}
		blocks = append(blocks, CalendarBlock{
			From:      b.Range.CheckIn,
			To:        b.Range.CheckOut,
			Reason:    string(b.Reason),
			Reference: b.Reference,
		})
	}
	return Calendar{ListingID: string(cal.ListingID), Version: cal.Version, Blocks: blocks}
}
