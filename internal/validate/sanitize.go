package validate

import (
	"regexp"
	"strings"
	"time"

	"github.com/cellarbook/enrich-cli/internal/model"
)

// Absolute plausibility bounds applied before type-aware validation.
const (
	absMinABV      = 1.0
	absMaxABV      = 30.0
	absMinYear     = 1900
	absYearHorizon = 60 // years past now a drink window may reach
)

var (
	htmlTags     = regexp.MustCompile(`<[^>]*>`)
	mdLinks      = regexp.MustCompile(`\[([^\]]*)\]\([^)]*\)`)
	mdEmphasis   = regexp.MustCompile("[*_`#]+")
	multiNewline = regexp.MustCompile(`\n{3,}`)
	multiSpace   = regexp.MustCompile(`[ \t]{2,}`)
)

// StripMarkup removes HTML and markdown decoration from narrative text.
func StripMarkup(text string) string {
	t := htmlTags.ReplaceAllString(text, "")
	t = mdLinks.ReplaceAllString(t, "$1")
	t = mdEmphasis.ReplaceAllString(t, "")
	t = multiNewline.ReplaceAllString(t, "\n\n")
	t = multiSpace.ReplaceAllString(t, " ")
	return strings.TrimSpace(t)
}

// Keyword tables mapping free-form style adjectives onto the fixed
// vocabularies. First matching keyword wins; unrecognized input stays
// empty rather than guessed.
var bodyKeywords = []struct {
	kw  string
	val model.Body
}{
	{"full", model.BodyFull},
	{"rich", model.BodyFull},
	{"heavy", model.BodyFull},
	{"powerful", model.BodyFull},
	{"light", model.BodyLight},
	{"delicate", model.BodyLight},
	{"medium", model.BodyMedium},
	{"moderate", model.BodyMedium},
}

var tanninKeywords = []struct {
	kw  string
	val model.Tannin
}{
	{"high", model.TanninHigh},
	{"firm", model.TanninHigh},
	{"grippy", model.TanninHigh},
	{"structured", model.TanninHigh},
	{"low", model.TanninLow},
	{"soft", model.TanninLow},
	{"silky", model.TanninLow},
	{"supple", model.TanninLow},
	{"medium", model.TanninMedium},
	{"moderate", model.TanninMedium},
}

var acidityKeywords = []struct {
	kw  string
	val model.Acidity
}{
	{"high", model.AcidityHigh},
	{"crisp", model.AcidityHigh},
	{"bright", model.AcidityHigh},
	{"racy", model.AcidityHigh},
	{"zesty", model.AcidityHigh},
	{"low", model.AcidityLow},
	{"flabby", model.AcidityLow},
	{"medium", model.AcidityMedium},
	{"moderate", model.AcidityMedium},
	{"balanced", model.AcidityMedium},
}

var sweetnessKeywords = []struct {
	kw  string
	val model.Sweetness
}{
	{"off-dry", model.SweetnessOffDry},
	{"off dry", model.SweetnessOffDry},
	{"bone dry", model.SweetnessDry},
	{"luscious", model.SweetnessLuscious},
	{"unctuous", model.SweetnessLuscious},
	{"sweet", model.SweetnessSweet},
	{"dry", model.SweetnessDry},
	{"brut", model.SweetnessDry},
	{"demi-sec", model.SweetnessMedium},
	{"semi", model.SweetnessMedium},
}

// MapBody maps a free-form adjective to the body vocabulary.
func MapBody(s string) model.Body {
	low := strings.ToLower(s)
	for _, e := range bodyKeywords {
		if strings.Contains(low, e.kw) {
			return e.val
		}
	}
	return ""
}

// MapTannin maps a free-form adjective to the tannin vocabulary.
func MapTannin(s string) model.Tannin {
	low := strings.ToLower(s)
	for _, e := range tanninKeywords {
		if strings.Contains(low, e.kw) {
			return e.val
		}
	}
	return ""
}

// MapAcidity maps a free-form adjective to the acidity vocabulary.
func MapAcidity(s string) model.Acidity {
	low := strings.ToLower(s)
	for _, e := range acidityKeywords {
		if strings.Contains(low, e.kw) {
			return e.val
		}
	}
	return ""
}

// MapSweetness maps a free-form adjective to the sweetness vocabulary.
// Note "off-dry" is checked before "dry" by table order.
func MapSweetness(s string) model.Sweetness {
	low := strings.ToLower(s)
	for _, e := range sweetnessKeywords {
		if strings.Contains(low, e.kw) {
			return e.val
		}
	}
	return ""
}

// Sanitize cleans a freshly retrieved payload in place: markup stripped
// from narrative fields, numeric fields clamped to absolute plausible
// bounds, style adjectives mapped onto the fixed vocabularies.
func Sanitize(p *model.EnrichmentPayload, now time.Time) {
	if p == nil {
		return
	}

	p.Overview = StripMarkup(p.Overview)
	p.TastingNotes = StripMarkup(p.TastingNotes)
	p.PairingNotes = StripMarkup(p.PairingNotes)
	p.Appellation = strings.TrimSpace(StripMarkup(p.Appellation))
	p.ProductionMethod = strings.TrimSpace(StripMarkup(p.ProductionMethod))

	if p.ABV != nil {
		v := *p.ABV
		if v < absMinABV {
			v = absMinABV
		}
		if v > absMaxABV {
			v = absMaxABV
		}
		p.ABV = &v
	}

	if p.DrinkWindow != nil {
		maxYear := now.Year() + absYearHorizon
		if p.DrinkWindow.Start != 0 {
			p.DrinkWindow.Start = clampYear(p.DrinkWindow.Start, maxYear)
		}
		if p.DrinkWindow.End != 0 {
			p.DrinkWindow.End = clampYear(p.DrinkWindow.End, maxYear)
		}
	}

	// Style fields arrive free-form from the external call; remap anything
	// outside the fixed vocabulary.
	p.Style.Body = MapBody(string(p.Style.Body))
	p.Style.Tannin = MapTannin(string(p.Style.Tannin))
	p.Style.Acidity = MapAcidity(string(p.Style.Acidity))
	p.Style.Sweetness = MapSweetness(string(p.Style.Sweetness))

	for i := range p.Grapes {
		p.Grapes[i].Variety = strings.TrimSpace(p.Grapes[i].Variety)
	}
	for i := range p.CriticScores {
		p.CriticScores[i].Critic = strings.TrimSpace(p.CriticScores[i].Critic)
	}
}

func clampYear(y, maxYear int) int {
	if y < absMinYear {
		return absMinYear
	}
	if y > maxYear {
		return maxYear
	}
	return y
}
