// Package infer derives low-confidence fallback payloads from static
// reference tables when no usable external result exists.
package infer

import (
	_ "embed"
	"sort"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/cellarbook/enrich-cli/internal/model"
)

// InferredConfidence is the fixed confidence on every inferred payload.
// Low enough that a real result always outranks it in the merger.
const InferredConfidence = 0.2

//go:embed data/appellations.yaml
var appellationsYAML []byte

//go:embed data/styles.yaml
var stylesYAML []byte

type appellationEntry struct {
	Name   string `yaml:"name"`
	Region string `yaml:"region"`
	Grapes []struct {
		Variety string   `yaml:"variety"`
		Percent *float64 `yaml:"percent"`
	} `yaml:"grapes"`
	Style styleEntry `yaml:"style"`
}

type styleEntry struct {
	Body      string `yaml:"body"`
	Tannin    string `yaml:"tannin"`
	Acidity   string `yaml:"acidity"`
	Sweetness string `yaml:"sweetness"`
}

func (s styleEntry) profile() model.StyleProfile {
	return model.StyleProfile{
		Body:      model.Body(s.Body),
		Tannin:    model.Tannin(s.Tannin),
		Acidity:   model.Acidity(s.Acidity),
		Sweetness: model.Sweetness(s.Sweetness),
	}
}

// Inferencer matches region text against the appellation table, falling
// back to the wine-type style table. Tables are parsed once at
// construction and injected where needed.
type Inferencer struct {
	appellations []appellationEntry
	typeStyles   map[string]styleEntry
}

// New parses the embedded reference tables.
func New() (*Inferencer, error) {
	var appDoc struct {
		Appellations []appellationEntry `yaml:"appellations"`
	}
	if err := yaml.Unmarshal(appellationsYAML, &appDoc); err != nil {
		return nil, eris.Wrap(err, "infer: parse appellation table")
	}

	var styleDoc struct {
		Types map[string]styleEntry `yaml:"types"`
	}
	if err := yaml.Unmarshal(stylesYAML, &styleDoc); err != nil {
		return nil, eris.Wrap(err, "infer: parse style table")
	}

	// Longest appellation name first so "Chianti Classico" beats "Chianti".
	apps := appDoc.Appellations
	sort.SliceStable(apps, func(i, j int) bool {
		return len(apps[i].Name) > len(apps[j].Name)
	})

	return &Inferencer{appellations: apps, typeStyles: styleDoc.Types}, nil
}

// Infer builds a minimal payload from the identification's region and wine
// type. Returns nil when nothing in the reference tables applies.
func (inf *Inferencer) Infer(id model.Identification) *model.EnrichmentPayload {
	if app := inf.matchAppellation(id); app != nil {
		p := &model.EnrichmentPayload{
			Appellation: app.Name,
			Style:       app.Style.profile(),
			Confidence:  InferredConfidence,
			Sources:     []string{model.SourceDefault},
		}
		for _, g := range app.Grapes {
			p.Grapes = append(p.Grapes, model.GrapeComponent{Variety: g.Variety, Percent: g.Percent})
		}
		zap.L().Debug("infer: appellation match",
			zap.String("wine", id.Label()),
			zap.String("appellation", app.Name),
		)
		return p
	}

	if style, ok := inf.matchType(id.WineType); ok {
		zap.L().Debug("infer: wine-type style fallback",
			zap.String("wine", id.Label()),
			zap.String("type", id.WineType),
		)
		return &model.EnrichmentPayload{
			Style:      style.profile(),
			Confidence: InferredConfidence,
			Sources:    []string{model.SourceDefault},
		}
	}

	return nil
}

// matchAppellation scans region then wine-name text for a known
// appellation name.
func (inf *Inferencer) matchAppellation(id model.Identification) *appellationEntry {
	haystacks := []string{id.Region, id.WineName, id.Producer}
	for i := range inf.appellations {
		app := &inf.appellations[i]
		needle := strings.ToLower(app.Name)
		for _, h := range haystacks {
			if h == "" {
				continue
			}
			if strings.Contains(strings.ToLower(h), needle) {
				return app
			}
		}
	}
	return nil
}

func (inf *Inferencer) matchType(wineType string) (styleEntry, bool) {
	low := strings.ToLower(strings.TrimSpace(wineType))
	if low == "" {
		return styleEntry{}, false
	}
	if s, ok := inf.typeStyles[low]; ok {
		return s, true
	}
	// Free-form type text: look for a known type word inside it.
	for name, s := range inf.typeStyles {
		if strings.Contains(low, name) {
			return s, true
		}
	}
	return styleEntry{}, false
}
