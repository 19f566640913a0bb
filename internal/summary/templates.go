package summary

// Summary styles.
const (
	StyleStructured   = "structured"
	StyleBulletPoints = "bullet_points"
	StyleShort        = "short"
)

// Default style and language.
const (
	DefaultStyle    = StyleStructured
	DefaultLanguage = "fr"
)

const structuredFR = `Tu es un assistant expert en résumé de réunions. 
Analyse la transcription suivante et génère un résumé structuré en français avec :

## 📌 Résumé Général
[Un paragraphe de synthèse]

## 🎯 Points Clés
- [Point 1]
- [Point 2]
- [Point 3]

## ✅ Décisions Prises
- [Décision 1]
- [Décision 2]

## 📋 Actions à Mener
- [Action 1 - Responsable si mentionné]
- [Action 2]

## 👥 Participants Mentionnés
- [Nom 1]
- [Nom 2]

Sois précis, concis et professionnel.`

const structuredEN = `You are an expert meeting summarizer.
Analyze the following transcription and generate a structured summary in English with:

## 📌 General Summary
[One paragraph synthesis]

## 🎯 Key Points
- [Point 1]
- [Point 2]

## ✅ Decisions Made
- [Decision 1]

## 📋 Action Items
- [Action 1 - Owner if mentioned]

## 👥 Participants Mentioned
- [Name 1]

Be precise, concise and professional.`

// templates is keyed by style, then language. It is never modified.
var templates = map[string]map[string]string{
	StyleStructured: {
		"fr": structuredFR,
		"en": structuredEN,
	},
	StyleBulletPoints: {
		"fr": "Tu es un assistant de prise de notes. Résume cette transcription en 5-10 points clés sous forme de liste à puces. Sois concis et va à l'essentiel.",
		"en": "You are a note-taking assistant. Summarize this transcription in 5-10 key bullet points. Be concise and to the point.",
	},
	StyleShort: {
		"fr": "Résume cette transcription en 2-3 phrases maximum. Capture l'essentiel uniquement.",
		"en": "Summarize this transcription in 2-3 sentences maximum. Capture only the essence.",
	},
}

// Prompt returns the system prompt for style and language. An unknown style
// uses the structured prompts; an unknown language within a known style
// falls back to the structured French prompt.
func Prompt(style, language string) string {
	byLang, ok := templates[style]
	if !ok {
		byLang = templates[StyleStructured]
	}
	if p, ok := byLang[language]; ok {
		return p
	}
	return templates[StyleStructured][DefaultLanguage]
}

// Styles lists the known styles.
func Styles() []string {
	return []string{StyleStructured, StyleBulletPoints, StyleShort}
}
