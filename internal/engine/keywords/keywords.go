// Package keywords extracts vibe tags, frequently mentioned dishes, and
// common complaints from review text using keyword heuristics.
package keywords

import (
	"regexp"
	"sort"
	"strings"
)

type vibeMapping struct {
	tag      string
	keywords []string
}

// Ordered so equal-score vibes resolve deterministically.
var vibeMappings = []vibeMapping{
	{"#Romantic", []string{"date", "romantic", "intimate", "cozy", "wine", "candle", "couple", "anniversary", "special"}},
	{"#Loud", []string{"loud", "noisy", "busy", "crowded", "energetic", "lively", "bar", "music", "upbeat"}},
	{"#FamilyFriendly", []string{"family", "kids", "children", "highchair", "friendly", "welcoming"}},
	{"#GoodForGroups", []string{"group", "friends", "party", "large", "social", "gathering", "celebration"}},
	{"#Quiet", []string{"quiet", "peaceful", "calm", "relaxed", "serene", "tranquil"}},
	{"#Upscale", []string{"upscale", "fancy", "elegant", "sophisticated", "fine", "classy", "luxury"}},
	{"#Casual", []string{"casual", "laid-back", "informal", "easy", "simple", "comfortable"}},
	{"#Fresh", []string{"fresh", "healthy", "organic", "natural", "clean", "light"}},
	{"#Authentic", []string{"authentic", "traditional", "genuine", "original", "classic"}},
	{"#Modern", []string{"modern", "contemporary", "innovative", "creative", "unique", "trendy"}},
	{"#Cozy", []string{"cozy", "warm", "homey", "inviting"}},
	{"#OutdoorSeating", []string{"outdoor", "patio", "terrace", "garden", "outside", "alfresco"}},
}

var foodIndicators = []string{
	"pizza", "burger", "pasta", "salad", "sandwich", "steak", "chicken",
	"fish", "salmon", "tuna", "shrimp", "lobster", "crab", "soup",
	"dessert", "cake", "pie", "ice cream", "appetizer", "entree",
	"sushi", "roll", "rice", "noodle", "taco", "burrito", "wings",
	"ribs", "bbq", "fries", "nachos", "quesadilla", "wrap", "panini",
}

var complaintKeywords = []string{
	"slow", "wait", "cold", "expensive", "pricey", "small", "tiny",
	"rude", "bad", "terrible", "awful", "disappointing", "disappointed",
	"dirty", "loud", "crowded", "overpriced", "burnt", "undercooked",
	"bland", "flavorless", "tasteless", "stale", "soggy", "greasy",
}

var (
	nonWordRe  = regexp.MustCompile(`[^a-z0-9\s]`)
	sentenceRe = regexp.MustCompile(`[.!?]`)
)

// Vibes maps review texts to up to maxVibes hashtag-style vibe tags by
// counting keyword mentions per vibe. Fewer than three reviews is too
// little signal to call a vibe.
func Vibes(reviews []string, maxVibes int) []string {
	if len(reviews) < 3 {
		return []string{"#NotEnoughData"}
	}
	if maxVibes <= 0 {
		maxVibes = 5
	}

	cleaned := make([]string, len(reviews))
	for i, review := range reviews {
		cleaned[i] = normalize(review)
	}

	type scored struct {
		tag   string
		score int
		order int
	}
	var hits []scored
	for order, mapping := range vibeMappings {
		score := 0
		for _, review := range cleaned {
			for _, kw := range mapping.keywords {
				score += strings.Count(review, kw)
			}
		}
		if score > 0 {
			hits = append(hits, scored{tag: mapping.tag, score: score, order: order})
		}
	}
	if len(hits) == 0 {
		return []string{"#NoVibeDetected"}
	}

	sort.Slice(hits, func(i, j int) bool {
		if hits[i].score != hits[j].score {
			return hits[i].score > hits[j].score
		}
		return hits[i].order < hits[j].order
	})

	tags := make([]string, 0, maxVibes)
	for _, hit := range hits {
		tags = append(tags, hit.tag)
		if len(tags) == maxVibes {
			break
		}
	}
	return tags
}

// Dishes returns the most mentioned food terms across the reviews,
// title-cased, most frequent first.
func Dishes(reviews []string, topN int) []string {
	if len(reviews) == 0 {
		return nil
	}
	if topN <= 0 {
		topN = 5
	}

	type scored struct {
		dish  string
		count int
		order int
	}
	var hits []scored
	for order, indicator := range foodIndicators {
		count := 0
		for _, review := range reviews {
			count += strings.Count(normalize(review), indicator)
		}
		if count > 0 {
			hits = append(hits, scored{dish: titleCase(indicator), count: count, order: order})
		}
	}
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].count != hits[j].count {
			return hits[i].count > hits[j].count
		}
		return hits[i].order < hits[j].order
	})

	dishes := make([]string, 0, topN)
	for _, hit := range hits {
		dishes = append(dishes, hit.dish)
		if len(dishes) == topN {
			break
		}
	}
	return dishes
}

// Complaints scans review sentences for complaint keywords and returns
// the most frequent cleaned-up complaint phrases.
func Complaints(reviews []string, topN int) []string {
	if len(reviews) == 0 {
		return nil
	}
	if topN <= 0 {
		topN = 3
	}

	counts := make(map[string]int)
	order := make(map[string]int)
	next := 0
	for _, review := range reviews {
		for _, sentence := range sentenceRe.Split(strings.ToLower(review), -1) {
			sentence = strings.TrimSpace(sentence)
			if sentence == "" {
				continue
			}
			for _, kw := range complaintKeywords {
				if !strings.Contains(sentence, kw) {
					continue
				}
				complaint := formatComplaint(sentence)
				if len(strings.Fields(complaint)) < 2 {
					break
				}
				if _, seen := counts[complaint]; !seen {
					order[complaint] = next
					next++
				}
				counts[complaint]++
				break
			}
		}
	}
	if len(counts) == 0 {
		return nil
	}

	type scored struct {
		complaint string
		count     int
		order     int
	}
	hits := make([]scored, 0, len(counts))
	for complaint, count := range counts {
		hits = append(hits, scored{complaint: complaint, count: count, order: order[complaint]})
	}
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].count != hits[j].count {
			return hits[i].count > hits[j].count
		}
		return hits[i].order < hits[j].order
	})

	complaints := make([]string, 0, topN)
	for _, hit := range hits {
		complaints = append(complaints, hit.complaint)
		if len(complaints) == topN {
			break
		}
	}
	return complaints
}

func normalize(text string) string {
	text = strings.ToLower(text)
	text = nonWordRe.ReplaceAllString(text, " ")
	return strings.Join(strings.Fields(text), " ")
}

func formatComplaint(sentence string) string {
	words := strings.Fields(normalize(sentence))
	if len(words) > 8 {
		words = words[:8]
	}
	if len(words) == 0 {
		return ""
	}
	phrase := strings.Join(words, " ")
	return strings.ToUpper(phrase[:1]) + phrase[1:]
}

func titleCase(term string) string {
	words := strings.Fields(term)
	for i, word := range words {
		words[i] = strings.ToUpper(word[:1]) + word[1:]
	}
	return strings.Join(words, " ")
}
