package maps

import (
	"strconv"
	"strings"

	"github.com/vibefinder/vibefinder/internal/insight"
)

// Maps markup changes frequently; every selector below has a fallback
// and extraction degrades to empty strings rather than failing.
const extractScript = `(() => {
	const clean = (s) => (s || '').replace(/\s+/g, ' ').trim();
	const out = { name: '', rating: '', address: '', totalRatings: '', reviews: [] };

	const title = document.querySelector('h1');
	if (title) out.name = clean(title.textContent);

	const ratingEl = document.querySelector('div.F7nice span[aria-hidden="true"]');
	if (ratingEl) out.rating = clean(ratingEl.textContent);

	const countEl = document.querySelector('div.F7nice span[aria-label]');
	if (countEl) out.totalRatings = clean(countEl.getAttribute('aria-label'));

	const addrEl = document.querySelector('button[data-item-id="address"]');
	if (addrEl) out.address = clean(addrEl.textContent);

	const cards = document.querySelectorAll('div.jftiEf, div[data-review-id], div.gws-localreviews__google-review');
	for (const card of cards) {
		const textEl = card.querySelector('span.wiI7pd, div.MyEned, span[jsname="bN97Pc"]');
		const starEl = card.querySelector('span[aria-label*="star"]');
		const authorEl = card.querySelector('div.d4r55, div.TSUbDb, span.x3PK2d');
		const dateEl = card.querySelector('span.rsqaWe, span.dehysf');
		out.reviews.push({
			text: textEl ? clean(textEl.textContent) : '',
			stars: starEl ? clean(starEl.getAttribute('aria-label')) : '',
			author: authorEl ? clean(authorEl.textContent) : '',
			date: dateEl ? clean(dateEl.textContent) : '',
		});
	}
	return out;
})()`

const openReviewsScript = `(() => {
	const buttons = document.querySelectorAll('button');
	for (const button of buttons) {
		const label = button.getAttribute('aria-label') || '';
		if (label.includes('Reviews')) { button.click(); return true; }
	}
	const section = document.querySelector('div[aria-label*="Reviews"]');
	if (section) { section.scrollIntoView(); return true; }
	return false;
})()`

const scrollFeedScript = `(() => {
	const feed = document.querySelector('div[role="feed"]')
		|| document.querySelector('div[aria-label*="Reviews"]')
		|| document.querySelector('div.section-scrollbox');
	if (feed) { feed.scrollTo(0, feed.scrollHeight); return true; }
	return false;
})()`

type pageData struct {
	Name         string       `json:"name"`
	Rating       string       `json:"rating"`
	Address      string       `json:"address"`
	TotalRatings string       `json:"totalRatings"`
	Reviews      []reviewData `json:"reviews"`
}

type reviewData struct {
	Text   string `json:"text"`
	Stars  string `json:"stars"`
	Author string `json:"author"`
	Date   string `json:"date"`
}

// toCollection converts the extracted page payload into the collector
// result, capping at limit reviews. A missing profile name drops the
// whole profile so the placeholder row is not overwritten with blanks.
func toCollection(data pageData, limit int) insight.Collection {
	var collection insight.Collection

	if name := strings.TrimSpace(data.Name); name != "" {
		collection.Profile = &insight.Profile{
			Name:         name,
			Rating:       parseRating(data.Rating),
			Address:      cleanAddress(data.Address),
			TotalRatings: parseCount(data.TotalRatings),
		}
	}

	for _, raw := range data.Reviews {
		if limit > 0 && len(collection.Reviews) >= limit {
			break
		}
		collection.Reviews = append(collection.Reviews, insight.RawReview{
			Text:     strings.TrimSpace(raw.Text),
			Rating:   parseStars(raw.Stars),
			Author:   strings.TrimSpace(raw.Author),
			DateText: strings.TrimSpace(raw.Date),
		})
	}
	return collection
}

// parseRating reads a display rating like "4.6" or "4,6".
func parseRating(text string) float64 {
	text = strings.ReplaceAll(strings.TrimSpace(text), ",", ".")
	rating, err := strconv.ParseFloat(text, 64)
	if err != nil || rating < 0 || rating > 5 {
		return 0
	}
	return rating
}

// parseStars reads an aria-label like "5 stars" or "4 stars, 2 photos".
func parseStars(label string) *float64 {
	fields := strings.Fields(strings.TrimSpace(label))
	if len(fields) == 0 {
		return nil
	}
	value, err := strconv.ParseFloat(strings.ReplaceAll(fields[0], ",", "."), 64)
	if err != nil || value < 0 || value > 5 {
		return nil
	}
	return &value
}

// parseCount extracts the digits from a label like "1,234 reviews".
func parseCount(label string) int {
	var digits strings.Builder
	for _, r := range label {
		if r >= '0' && r <= '9' {
			digits.WriteRune(r)
		}
		if r == ' ' && digits.Len() > 0 {
			break
		}
	}
	if digits.Len() == 0 {
		return 0
	}
	count, err := strconv.Atoi(digits.String())
	if err != nil {
		return 0
	}
	return count
}

// cleanAddress strips the icon glyphs Maps renders inside the address
// button; they live in the Unicode private use area.
func cleanAddress(text string) string {
	trimmed := strings.TrimLeftFunc(strings.TrimSpace(text), func(r rune) bool {
		return r >= 0xE000 && r <= 0xF8FF
	})
	return strings.TrimSpace(trimmed)
}
