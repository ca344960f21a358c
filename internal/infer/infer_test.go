package infer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cellarbook/enrich-cli/internal/model"
)

func newTestInferencer(t *testing.T) *Inferencer {
	t.Helper()
	inf, err := New()
	require.NoError(t, err)
	return inf
}

func TestInferAppellationFromRegion(t *testing.T) {
	inf := newTestInferencer(t)

	p := inf.Infer(model.Identification{
		Producer: "Château Margaux",
		WineName: "Grand Vin",
		Region:   "Margaux, Bordeaux",
	})
	require.NotNil(t, p)

	assert.Equal(t, "Margaux", p.Appellation)
	assert.Equal(t, model.BodyFull, p.Style.Body)
	assert.NotEmpty(t, p.Grapes)
	assert.Equal(t, "Cabernet Sauvignon", p.Grapes[0].Variety)
	assert.Equal(t, InferredConfidence, p.Confidence)
	assert.Equal(t, []string{model.SourceDefault}, p.Sources)
}

func TestInferAppellationFromWineName(t *testing.T) {
	inf := newTestInferencer(t)

	p := inf.Infer(model.Identification{
		Producer: "Louis Jadot",
		WineName: "Chablis Premier Cru",
	})
	require.NotNil(t, p)
	assert.Equal(t, "Chablis", p.Appellation)
	assert.Equal(t, model.AcidityHigh, p.Style.Acidity)
}

func TestInferMostSpecificAppellationWins(t *testing.T) {
	inf := newTestInferencer(t)

	p := inf.Infer(model.Identification{
		Producer: "Castello di Ama",
		Region:   "Chianti Classico DOCG",
	})
	require.NotNil(t, p)
	assert.Equal(t, "Chianti Classico", p.Appellation)
}

func TestInferWineTypeFallback(t *testing.T) {
	inf := newTestInferencer(t)

	p := inf.Infer(model.Identification{
		Producer: "Some Producer",
		WineName: "House Red",
		WineType: "red",
	})
	require.NotNil(t, p)

	assert.Empty(t, p.Appellation)
	assert.Empty(t, p.Grapes)
	assert.False(t, p.Style.Empty())
	assert.Equal(t, InferredConfidence, p.Confidence)
}

func TestInferFreeFormWineType(t *testing.T) {
	inf := newTestInferencer(t)

	p := inf.Infer(model.Identification{
		Producer: "Some Producer",
		WineName: "Cuvée",
		WineType: "Sparkling Brut NV",
	})
	require.NotNil(t, p)
	assert.False(t, p.Style.Empty())
}

func TestInferNothingApplies(t *testing.T) {
	inf := newTestInferencer(t)

	p := inf.Infer(model.Identification{
		Producer: "Mystery Estate",
		WineName: "Unknown Bottling",
	})
	assert.Nil(t, p)
}
