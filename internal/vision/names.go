package vision

// Symbolic color identifiers produced by the naming decision tree,
// localized through the tables below.
type colorID int

const (
	colorWhite colorID = iota
	colorBlack
	colorLightGray
	colorDarkGray
	colorGray
	colorBrown
	colorBeige
	colorLightBeige
	colorOrange
	colorYellow
	colorPink
	colorRed
	colorMauve
	colorPurple
	colorCyan
	colorLightGreen
	colorGreen
	colorLightBlue
	colorBlue
	colorGeneric
)

var colorNames = map[string][]string{
	"fr": {
		colorWhite:      "blanc",
		colorBlack:      "noir",
		colorLightGray:  "gris clair",
		colorDarkGray:   "gris foncé",
		colorGray:       "gris",
		colorBrown:      "marron",
		colorBeige:      "beige",
		colorLightBeige: "beige clair",
		colorOrange:     "orange",
		colorYellow:     "jaune",
		colorPink:       "rose",
		colorRed:        "rouge",
		colorMauve:      "mauve",
		colorPurple:     "violet",
		colorCyan:       "cyan",
		colorLightGreen: "vert clair",
		colorGreen:      "vert",
		colorLightBlue:  "bleu clair",
		colorBlue:       "bleu",
		colorGeneric:    "couleur",
	},
	"en": {
		colorWhite:      "white",
		colorBlack:      "black",
		colorLightGray:  "light gray",
		colorDarkGray:   "dark gray",
		colorGray:       "gray",
		colorBrown:      "brown",
		colorBeige:      "beige",
		colorLightBeige: "light beige",
		colorOrange:     "orange",
		colorYellow:     "yellow",
		colorPink:       "pink",
		colorRed:        "red",
		colorMauve:      "mauve",
		colorPurple:     "purple",
		colorCyan:       "cyan",
		colorLightGreen: "light green",
		colorGreen:      "green",
		colorLightBlue:  "light blue",
		colorBlue:       "blue",
		colorGeneric:    "color",
	},
	"es": {
		colorWhite:      "blanco",
		colorBlack:      "negro",
		colorLightGray:  "gris claro",
		colorDarkGray:   "gris oscuro",
		colorGray:       "gris",
		colorBrown:      "marrón",
		colorBeige:      "beige",
		colorLightBeige: "beige claro",
		colorOrange:     "naranja",
		colorYellow:     "amarillo",
		colorPink:       "rosa",
		colorRed:        "rojo",
		colorMauve:      "malva",
		colorPurple:     "violeta",
		colorCyan:       "cian",
		colorLightGreen: "verde claro",
		colorGreen:      "verde",
		colorLightBlue:  "azul claro",
		colorBlue:       "azul",
		colorGeneric:    "color",
	},
}

// ColorName maps an RGB triple to a human color label in the given language.
// The cascade is a fixed heuristic keyed on channel dominance, lightness and
// saturation; thresholds are characterization-tested, not color science.
// Saturation exactly at the achromatic threshold names an achromatic color.
func ColorName(r, g, b int, lang string) string {
	names, ok := colorNames[lang]
	if !ok {
		names = colorNames["fr"]
	}
	return names[classify(r, g, b)]
}

func classify(r, g, b int) colorID {
	max := maxInt(r, maxInt(g, b))
	min := minInt(r, minInt(g, b))
	lightness := float64(max+min) / 2

	var saturation float64
	if max != min {
		saturation = float64(max-min) / float64(255-absInt(max+min-255))
	}

	// Achromatic: white, black and the grays
	if saturation <= 0.15 {
		switch {
		case lightness > 220:
			return colorWhite
		case lightness < 40:
			return colorBlack
		case lightness > 160:
			return colorLightGray
		case lightness < 90:
			return colorDarkGray
		default:
			return colorGray
		}
	}

	isRed := r == max
	isGreen := g == max
	isBlue := b == max

	// Brown/beige: red+green heavy, little blue, not too bright
	if r > 80 && g > 60 && b < 140 && r > b && g > b && absInt(r-g) < 80 {
		switch {
		case lightness < 100:
			return colorBrown
		case lightness < 150:
			return colorBeige
		default:
			return colorLightBeige
		}
	}

	// Orange: strong red, medium green, little blue
	if isRed && r > 180 && g > 80 && g < 180 && b < 100 {
		return colorOrange
	}

	// Yellow: red + green, little blue
	if r > 180 && g > 180 && b < 140 {
		return colorYellow
	}

	// Pink: red dominant, medium blue, bright
	if isRed && b > 120 && lightness > 140 {
		return colorPink
	}

	// Red
	if isRed && r > 140 && g < 100 && b < 100 {
		return colorRed
	}

	// Purple/mauve: red + blue
	if r > 100 && b > 100 && absInt(r-b) < 60 && g < minInt(r, b)-20 {
		if lightness > 140 {
			return colorMauve
		}
		return colorPurple
	}

	// Cyan: green + blue, little red
	if g > 120 && b > 120 && r < 100 {
		return colorCyan
	}

	// Green
	if isGreen && g > 100 && r < 120 && b < 120 {
		if lightness > 160 {
			return colorLightGreen
		}
		return colorGreen
	}

	// Blue
	if isBlue && b > 100 && r < 120 && g < 140 {
		if lightness > 160 {
			return colorLightBlue
		}
		return colorBlue
	}

	return colorGeneric
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func absInt(a int) int {
	if a < 0 {
		return -a
	}
	return a
}
