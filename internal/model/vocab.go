package model

// Fixed style vocabularies. Sanitization maps free-form adjectives into
// these; anything unrecognized stays empty rather than guessed.

// Body describes weight on the palate.
type Body string

const (
	BodyLight  Body = "light"
	BodyMedium Body = "medium"
	BodyFull   Body = "full"
)

// Tannin describes tannin intensity.
type Tannin string

const (
	TanninLow    Tannin = "low"
	TanninMedium Tannin = "medium"
	TanninHigh   Tannin = "high"
)

// Acidity describes acid intensity.
type Acidity string

const (
	AcidityLow    Acidity = "low"
	AcidityMedium Acidity = "medium"
	AcidityHigh   Acidity = "high"
)

// Sweetness describes residual sugar level.
type Sweetness string

const (
	SweetnessDry      Sweetness = "dry"
	SweetnessOffDry   Sweetness = "off-dry"
	SweetnessMedium   Sweetness = "medium"
	SweetnessSweet    Sweetness = "sweet"
	SweetnessLuscious Sweetness = "luscious"
)

// Maturity describes where a wine sits in its drink window.
type Maturity string

const (
	MaturityYouthful Maturity = "youthful"
	MaturityReady    Maturity = "ready"
	MaturityPeak     Maturity = "peak"
	MaturityDecline  Maturity = "decline"
)

// WineType is the broad category used by type-aware validation and the
// fallback inferencer. Free-form input; these are the recognized values.
const (
	WineTypeRed       = "red"
	WineTypeWhite     = "white"
	WineTypeRose      = "rose"
	WineTypeSparkling = "sparkling"
	WineTypeDessert   = "dessert"
	WineTypeFortified = "fortified"
)
