package stt

import "strings"

// NormalizeLang normalizes a BCP-47-ish language tag to "xx-XX" shape:
// lowercase primary subtag, uppercase region subtag. Per spec.md §9's
// resolution, this is applied at every boundary; callers never fall
// back to a literal "en-us" default — an empty input is returned empty
// so the caller can apply the configured default language instead.
func NormalizeLang(lang string) string {
	if lang == "" {
		return ""
	}
	parts := strings.SplitN(lang, "-", 2)
	primary := strings.ToLower(parts[0])
	if len(parts) == 1 {
		return primary
	}
	region := strings.ToUpper(parts[1])
	return primary + "-" + region
}
