package service

import (
	"regexp"
	"sort"
	"strings"

	"github.com/d60-Lab/skycial/internal/visibility"
)

var hashtagRe = regexp.MustCompile(`#([\p{L}\p{N}_-]+)`)

// beautyVocabulary 内容里出现这些词时自动打标签
var beautyVocabulary = map[string]string{
	"skincare":     "skincare",
	"skin care":    "skincare",
	"makeup":       "makeup",
	"make-up":      "makeup",
	"lipstick":     "makeup",
	"mascara":      "makeup",
	"foundation":   "makeup",
	"hair":         "haircare",
	"haircare":     "haircare",
	"beard":        "beard-care",
	"shave":        "grooming",
	"grooming":     "grooming",
	"nails":        "nails",
	"manicure":     "nails",
	"fragrance":    "fragrance",
	"perfume":      "fragrance",
	"sunscreen":    "sunscreen",
	"spf":          "sunscreen",
	"acne":         "acne",
	"serum":        "serum",
	"moisturizer":  "moisturizer",
	"moisturiser":  "moisturizer",
	"retinol":      "retinol",
	"diy":          "diy",
	"vegan":        "vegan",
	"cruelty-free": "cruelty-free",
	"oily":         "oily-skin",
	"dry skin":     "dry-skin",
	"zodiac":       "astrology",
	"horoscope":    "astrology",
}

// DeriveTags 从正文提取 #话题 与美妆关键词，并附加作者性别标签（无性别时为 unisex）
func DeriveTags(content, authorGender string) []string {
	set := make(map[string]struct{})
	for _, m := range hashtagRe.FindAllStringSubmatch(content, -1) {
		set[strings.ToLower(m[1])] = struct{}{}
	}
	lower := strings.ToLower(content)
	for word, tag := range beautyVocabulary {
		if containsWord(lower, word) {
			set[tag] = struct{}{}
		}
	}
	switch authorGender {
	case "female", "male":
		set[authorGender] = struct{}{}
	default:
		set[visibility.UnisexTag] = struct{}{}
	}

	tags := make([]string, 0, len(set))
	for t := range set {
		tags = append(tags, t)
	}
	sort.Strings(tags)
	return tags
}

// containsWord matches word on letter boundaries so "hair" does not hit "chair".
func containsWord(text, word string) bool {
	for i := 0; ; {
		j := strings.Index(text[i:], word)
		if j < 0 {
			return false
		}
		start, end := i+j, i+j+len(word)
		if (start == 0 || !isWordByte(text[start-1])) && (end == len(text) || !isWordByte(text[end])) {
			return true
		}
		i = start + 1
	}
}

func isWordByte(b byte) bool {
	return b >= 'a' && b <= 'z' || b >= '0' && b <= '9'
}
