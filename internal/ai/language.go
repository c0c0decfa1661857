package ai

// Lang bundles the per-language prompt templates and localized defaults.
type Lang struct {
	Code          string
	Name          string
	SystemPrompt  string
	CaptionPrompt string
	RatingGood    string
	Attribution   string
}

var languages = map[string]Lang{
	"fr": {
		Code:          "fr",
		Name:          "français",
		SystemPrompt:  "Tu es un expert en analyse d'images. Tu fournis des analyses complètes et détaillées incluant des tags, descriptions, couleurs et évaluation de qualité. Tu réponds TOUJOURS en français.",
		CaptionPrompt: "Décris cette image en français de manière détaillée en incluant tous les objets visibles, les couleurs, l'ambiance, le style, la composition et l'éclairage.",
		RatingGood:    "bon",
		Attribution:   "Analysé par Ollama LLaVA",
	},
	"en": {
		Code:          "en",
		Name:          "English",
		SystemPrompt:  "You are an expert in image analysis. You provide complete and detailed analyses including tags, descriptions, colors and quality assessment. You ALWAYS respond in English.",
		CaptionPrompt: "Describe this image in English in detail including all visible objects, colors, atmosphere, style, composition and lighting.",
		RatingGood:    "good",
		Attribution:   "Analyzed by Ollama LLaVA",
	},
	"es": {
		Code:          "es",
		Name:          "español",
		SystemPrompt:  "Eres un experto en análisis de imágenes. Proporcionas análisis completos y detallados que incluyen etiquetas, descripciones, colores y evaluación de calidad. SIEMPRE respondes en español.",
		CaptionPrompt: "Describe esta imagen en español de manera detallada incluyendo todos los objetos visibles, los colores, el ambiente, el estilo, la composición y la iluminación.",
		RatingGood:    "bueno",
		Attribution:   "Analizado por Ollama LLaVA",
	},
}

// DefaultLanguage is used when a language code is unknown. The deployment
// default lives in config (analysis.default_language); this constant only
// guards against invalid codes reaching an adapter.
const DefaultLanguage = "fr"

// Language returns the configuration for code, falling back to the default
// language for unknown codes.
func Language(code string) Lang {
	if l, ok := languages[code]; ok {
		return l
	}
	return languages[DefaultLanguage]
}

// SupportedLanguage reports whether code has a language table.
func SupportedLanguage(code string) bool {
	_, ok := languages[code]
	return ok
}
