package resolver

import (
	"strings"

	"github.com/agext/levenshtein"
)

// Similarity scores two normalized key parts in [0,1]. Substring
// containment handles prefix/suffix truncation ("champagne-chavost" vs
// "chavost"); normalized Levenshtein handles typos. The higher signal wins.
func Similarity(a, b string) float64 {
	if a == b {
		return 1
	}
	if a == "" || b == "" {
		return 0
	}

	lev := levenshtein.Similarity(a, b, nil)

	shorter, longer := a, b
	if len(shorter) > len(longer) {
		shorter, longer = longer, shorter
	}
	if strings.Contains(longer, shorter) {
		// Containment score grows with how much of the longer string the
		// shorter one covers, floored high enough to beat typo distance.
		cont := 0.7 + 0.3*float64(len(shorter))/float64(len(longer))
		if cont > lev {
			return cont
		}
	}

	return lev
}

// Weights for combining field similarities. Wine-name similarity dominates
// because producers publish many wines with near-identical producer text.
const (
	producerWeight = 0.4
	wineWeight     = 0.6
)

// CombinedScore blends producer and wine-name similarity.
func CombinedScore(producerSim, wineSim float64) float64 {
	return producerWeight*producerSim + wineWeight*wineSim
}
