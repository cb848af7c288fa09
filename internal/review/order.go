package review

import (
	"fmt"
	"sort"
	"time"
)

// Order is the policy used to sort the full review queue before the session
// starts. The set is closed and every policy is matched exhaustively.
type Order int

const (
	OrderRandom Order = iota
	OrderAscendingSRSStage
	OrderDescendingSRSStage
	OrderCurrentLevelFirst
	OrderLowestLevelFirst
	OrderNewestAvailableFirst
	OrderOldestAvailableFirst
	OrderLongestRelativeWait
	OrderAlternatingSRSStage
)

var orderNames = map[string]Order{
	"random":                 OrderRandom,
	"ascending_srs_stage":    OrderAscendingSRSStage,
	"descending_srs_stage":   OrderDescendingSRSStage,
	"current_level_first":    OrderCurrentLevelFirst,
	"lowest_level_first":     OrderLowestLevelFirst,
	"newest_available_first": OrderNewestAvailableFirst,
	"oldest_available_first": OrderOldestAvailableFirst,
	"longest_relative_wait":  OrderLongestRelativeWait,
	"alternating_srs_stage":  OrderAlternatingSRSStage,
}

// ParseOrder converts a configuration string into an Order.
func ParseOrder(name string) (Order, error) {
	if order, ok := orderNames[name]; ok {
		return order, nil
	}
	return OrderRandom, fmt.Errorf("unknown review order %q", name)
}

func (o Order) String() string {
	for name, order := range orderNames {
		if order == o {
			return name
		}
	}
	return "unknown"
}

// sortQueue orders items by the policy. The queue must already be shuffled:
// the sort is stable, so the shuffle decides ties beyond the subject-type
// tie-break.
func sortQueue(items []*Item, order Order, now time.Time) {
	less := comparator(order, now)
	if less == nil {
		return
	}
	sort.SliceStable(items, func(i, j int) bool { return less(items[i], items[j]) })

	if order == OrderAlternatingSRSStage {
		alternate(items)
	}
}

// comparator returns the less function for the policy, or nil when the
// shuffled order is kept as-is.
func comparator(order Order, now time.Time) func(a, b *Item) bool {
	switch order {
	case OrderRandom:
		return nil
	case OrderAscendingSRSStage, OrderAlternatingSRSStage:
		return func(a, b *Item) bool {
			if a.Assignment.SRSStage != b.Assignment.SRSStage {
				return a.Assignment.SRSStage < b.Assignment.SRSStage
			}
			return subjectTypeTieBreak(a, b)
		}
	case OrderDescendingSRSStage:
		return func(a, b *Item) bool {
			if a.Assignment.SRSStage != b.Assignment.SRSStage {
				return a.Assignment.SRSStage > b.Assignment.SRSStage
			}
			return subjectTypeTieBreak(a, b)
		}
	case OrderCurrentLevelFirst:
		return func(a, b *Item) bool {
			if a.Assignment.Level != b.Assignment.Level {
				return a.Assignment.Level > b.Assignment.Level
			}
			return subjectTypeTieBreak(a, b)
		}
	case OrderLowestLevelFirst:
		return func(a, b *Item) bool {
			if a.Assignment.Level != b.Assignment.Level {
				return a.Assignment.Level < b.Assignment.Level
			}
			return subjectTypeTieBreak(a, b)
		}
	case OrderNewestAvailableFirst:
		return func(a, b *Item) bool {
			if !a.Assignment.AvailableAt.Equal(b.Assignment.AvailableAt) {
				return a.Assignment.AvailableAt.After(b.Assignment.AvailableAt)
			}
			return subjectTypeTieBreak(a, b)
		}
	case OrderOldestAvailableFirst:
		return func(a, b *Item) bool {
			if !a.Assignment.AvailableAt.Equal(b.Assignment.AvailableAt) {
				return a.Assignment.AvailableAt.Before(b.Assignment.AvailableAt)
			}
			return subjectTypeTieBreak(a, b)
		}
	case OrderLongestRelativeWait:
		return func(a, b *Item) bool {
			ra, rb := availableRatio(a, now), availableRatio(b, now)
			if ra != rb {
				return ra > rb
			}
			return subjectTypeTieBreak(a, b)
		}
	}
	return nil
}

// subjectTypeTieBreak keeps equal-key items grouped radical, kanji then
// vocabulary; equal types leave the shuffled order intact.
func subjectTypeTieBreak(a, b *Item) bool {
	return a.Assignment.SubjectType < b.Assignment.SubjectType
}

// availableRatio is how long a review has waited relative to the length of
// its SRS interval. The clock is truncated to the hour so the ordering is
// stable within the hour the session started.
func availableRatio(item *Item, now time.Time) float64 {
	interval := item.Assignment.SRSStage.Duration(item.Assignment.Level)
	if interval <= 0 || item.Assignment.AvailableAt.IsZero() {
		return 0
	}
	truncated := now.Truncate(time.Hour)
	return float64(truncated.Sub(item.Assignment.AvailableAt)) / float64(interval)
}

// alternate interleaves an ascending-sorted queue from both ends so the
// session flips between the least and most advanced items.
func alternate(items []*Item) {
	interleaved := make([]*Item, 0, len(items))
	lo, hi := 0, len(items)-1
	for lo <= hi {
		interleaved = append(interleaved, items[lo])
		lo++
		if lo <= hi {
			interleaved = append(interleaved, items[hi])
			hi--
		}
	}
	copy(items, interleaved)
}
