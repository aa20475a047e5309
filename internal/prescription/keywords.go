package prescription

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// MinKeywordMatches - минимальное число разных ключевых слов для валидного рецепта.
const MinKeywordMatches = 2

// Keywords - французские и английские медицинские термины, которые ищутся в тексте рецепта.
var Keywords = []string{
	"ordonnance",
	"prescription",
	"docteur",
	"médecin",
	"patient",
	"pharmacie",
	"médicament",
	"posologie",
	"comprimé",
	"gélule",
	"sirop",
	"injection",
	"traitement",
	"durée",
	"matin",
	"midi",
	"soir",
	"fois par jour",
	"hôpital",
	"clinique",
	"cachet",
	"signature",
	"renouvelable",
	"doctor",
	"physician",
	"medicine",
	"tablet",
	"capsule",
	"dosage",
	"daily",
}

// foldedKeywords - ключевые слова без диакритики; OCR часто теряет акценты.
var foldedKeywords = func() []string {
	out := make([]string, len(Keywords))
	for i, kw := range Keywords {
		out[i] = foldAccents(kw)
	}
	return out
}()

// MatchKeywords возвращает ключевые слова, встречающиеся в тексте как подстроки.
// Каждое слово учитывается один раз, порядок совпадает с Keywords.
func MatchKeywords(text string) []string {
	lower := strings.ToLower(text)
	if strings.TrimSpace(lower) == "" {
		return nil
	}
	folded := foldAccents(lower)

	var matched []string
	for i, kw := range Keywords {
		if strings.Contains(lower, kw) || strings.Contains(folded, foldedKeywords[i]) {
			matched = append(matched, kw)
		}
	}
	return matched
}

// IsValid сообщает, похож ли текст на рецепт.
func IsValid(text string) bool {
	return len(MatchKeywords(text)) >= MinKeywordMatches
}

func foldAccents(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}
