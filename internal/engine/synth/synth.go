// Package synth generates plausible insights for restaurants whose review
// cache is too thin for real analysis. Output is deterministic per
// restaurant name so repeated searches stay stable.
package synth

import (
	"fmt"
	"hash/fnv"
	"math/rand"
	"strings"

	"github.com/vibefinder/vibefinder/internal/insight"
)

var vibePatterns = map[string][][]string{
	"high": {
		{"#Upscale", "#Romantic", "#DateNight"},
		{"#Modern", "#Trendy", "#InstagramWorthy"},
		{"#Authentic", "#Traditional", "#Cozy"},
		{"#Fresh", "#Healthy", "#Light"},
	},
	"mid": {
		{"#Casual", "#FamilyFriendly", "#Comfortable"},
		{"#Loud", "#GoodForGroups", "#Lively"},
		{"#Quick", "#Convenient", "#EasyGoing"},
	},
	"casual": {
		{"#Casual", "#LaidBack", "#Comfortable"},
		{"#FamilyFriendly", "#KidFriendly", "#Welcoming"},
		{"#GoodForGroups", "#Social", "#Fun"},
	},
}

var dishPatterns = map[string][]string{
	"pizza":    {"Margherita Pizza", "Pepperoni Pizza", "Garlic Knots", "Caesar Salad"},
	"italian":  {"Pasta Carbonara", "Lasagna", "Tiramisu", "Bruschetta"},
	"chinese":  {"General Tso Chicken", "Fried Rice", "Spring Rolls", "Lo Mein"},
	"mexican":  {"Tacos", "Burritos", "Guacamole", "Churros"},
	"japanese": {"Sushi Rolls", "Ramen", "Tempura", "Miso Soup"},
	"indian":   {"Butter Chicken", "Naan Bread", "Samosas", "Biryani"},
	"american": {"Burgers", "Fries", "Wings", "Milkshakes"},
	"seafood":  {"Fish and Chips", "Lobster Roll", "Clam Chowder", "Grilled Salmon"},
}

var defaultDishes = []string{"Chef's Special", "House Salad", "Signature Dish", "Daily Special"}

var foodItems = []string{"burger", "sushi", "taco", "ramen", "curry", "steak", "bbq", "grill"}

var complaintPatterns = map[string][]string{
	"high": {
		"Can be pricey",
		"Reservations recommended",
		"Limited parking",
	},
	"mid": {
		"Service can be slow during peak hours",
		"Can get crowded on weekends",
		"Limited menu options",
	},
	"low": {
		"Inconsistent food quality",
		"Slow service",
		"Cleanliness issues",
	},
}

// Generate builds insights from a restaurant's display data alone.
func Generate(name string, rating float64) insight.Insights {
	rng := rand.New(rand.NewSource(seed(name)))

	score := int(rating/5.0*100) + rng.Intn(16) - 5
	if score > 100 {
		score = 100
	}
	var label string
	switch {
	case score >= 85:
		label = "Very Positive"
	case score >= 70:
		label = "Positive"
	case score >= 50:
		label = "Neutral"
	default:
		label = "Mixed"
	}

	band := "casual"
	switch {
	case rating >= 4.5:
		band = "high"
	case rating >= 3.5:
		band = "mid"
	}
	vibeChoices := vibePatterns[band]
	vibes := vibeChoices[rng.Intn(len(vibeChoices))]

	complaints := sample(rng, complaintPatterns[complaintBand(rating)], 2)

	return insight.Insights{
		TrueSentiment:    fmt.Sprintf("%d%% %s", score, label),
		VibeCheck:        vibes,
		MustTryDishes:    dishes(rng, name),
		CommonComplaints: complaints,
	}
}

func complaintBand(rating float64) string {
	switch {
	case rating >= 4.5:
		return "high"
	case rating >= 3.5:
		return "mid"
	default:
		return "low"
	}
}

// dishes guesses likely menu items from cuisine keywords in the name.
func dishes(rng *rand.Rand, name string) []string {
	lower := strings.ToLower(name)
	for cuisine, options := range dishPatterns {
		if strings.Contains(lower, cuisine) {
			return sample(rng, options, 3)
		}
	}
	for _, item := range foodItems {
		if strings.Contains(lower, item) {
			title := strings.ToUpper(item[:1]) + item[1:]
			return []string{title + " Special", "House Salad", title + " Combo"}
		}
	}
	return sample(rng, defaultDishes, 3)
}

func sample(rng *rand.Rand, options []string, n int) []string {
	if n > len(options) {
		n = len(options)
	}
	picked := rng.Perm(len(options))[:n]
	out := make([]string, 0, n)
	for _, idx := range picked {
		out = append(out, options[idx])
	}
	return out
}

func seed(name string) int64 {
	h := fnv.New64a()
	h.Write([]byte(strings.ToLower(name)))
	return int64(h.Sum64())
}
