package service

import "time"

type zodiacRange struct {
	sign                 string
	fromMonth, fromDay   int
	untilMonth, untilDay int
}

// 起止日期均包含；摩羯座跨年单独处理
var zodiacRanges = []zodiacRange{
	{"Aquarius", 1, 20, 2, 18},
	{"Pisces", 2, 19, 3, 20},
	{"Aries", 3, 21, 4, 19},
	{"Taurus", 4, 20, 5, 20},
	{"Gemini", 5, 21, 6, 20},
	{"Cancer", 6, 21, 7, 22},
	{"Leo", 7, 23, 8, 22},
	{"Virgo", 8, 23, 9, 22},
	{"Libra", 9, 23, 10, 22},
	{"Scorpio", 10, 23, 11, 21},
	{"Sagittarius", 11, 22, 12, 21},
}

// ZodiacSigns lists every sign in calendar order starting from Aquarius.
var ZodiacSigns = []string{
	"Aquarius", "Pisces", "Aries", "Taurus", "Gemini", "Cancer",
	"Leo", "Virgo", "Libra", "Scorpio", "Sagittarius", "Capricorn",
}

// ZodiacSign derives the western zodiac sign from a birth date.
func ZodiacSign(d time.Time) string {
	md := int(d.Month())*100 + d.Day()
	for _, r := range zodiacRanges {
		if md >= r.fromMonth*100+r.fromDay && md <= r.untilMonth*100+r.untilDay {
			return r.sign
		}
	}
	return "Capricorn"
}

// AgeOn returns the age in whole years at the given moment.
func AgeOn(birth, now time.Time) int {
	age := now.Year() - birth.Year()
	if now.Month() < birth.Month() || (now.Month() == birth.Month() && now.Day() < birth.Day()) {
		age--
	}
	return age
}
