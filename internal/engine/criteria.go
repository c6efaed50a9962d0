package engine

import "reviews_dashboard/internal/wbapi"

// MediaFilter is the tri-state media dimension of the filter.
type MediaFilter string

const (
	MediaAny      MediaFilter = "any"      // no constraint
	MediaRequired MediaFilter = "required" // at least one photo or a video
	MediaExcluded MediaFilter = "excluded" // no media at all
)

// Valid reports whether the value is one of the three known states.
func (m MediaFilter) Valid() bool {
	switch m {
	case MediaAny, MediaRequired, MediaExcluded:
		return true
	}
	return false
}

// Criteria is the client-side filter over the loaded collection.
// All dimensions are conjunctive.
type Criteria struct {
	Ratings map[int]bool    `json:"ratings"`
	Media   MediaFilter     `json:"media"`
	Tags    map[string]bool `json:"tags"`
}

// DefaultCriteria selects all five ratings, any media and no tags.
func DefaultCriteria() Criteria {
	return Criteria{
		Ratings: map[int]bool{1: true, 2: true, 3: true, 4: true, 5: true},
		Media:   MediaAny,
		Tags:    map[string]bool{},
	}
}

// allRatings reports whether the rating dimension is untouched, i.e. the
// full 1..5 set is selected. Unrated items (valuation 0) pass only then.
func (c Criteria) allRatings() bool {
	for r := 1; r <= 5; r++ {
		if !c.Ratings[r] {
			return false
		}
	}
	return true
}

// Matches applies the conjunctive predicate to a single feedback.
func (c Criteria) Matches(fb wbapi.Feedback) bool {
	if !c.allRatings() && !c.Ratings[fb.ProductValuation] {
		return false
	}

	switch c.Media {
	case MediaRequired:
		if !fb.HasMedia() {
			return false
		}
	case MediaExcluded:
		if fb.HasMedia() {
			return false
		}
	}

	if len(c.Tags) > 0 {
		found := false
		for _, tag := range fb.Bables {
			if c.Tags[tag] {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}
