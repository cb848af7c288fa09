package answer

import (
	"strings"
	"unicode"
)

// IsHiragana reports whether r is a hiragana syllable, including the small
// forms and the long vowel mark used in loan words.
func IsHiragana(r rune) bool {
	return (r >= 0x3041 && r <= 0x3096) || r == 'ー'
}

// IsKatakana reports whether r is a katakana syllable or the long vowel mark.
func IsKatakana(r rune) bool {
	return (r >= 0x30A1 && r <= 0x30F6) || r == 'ー'
}

// IsKana reports whether r belongs to either syllabary.
func IsKana(r rune) bool {
	return IsHiragana(r) || IsKatakana(r)
}

// ToHiragana folds katakana input into hiragana for comparison. The long
// vowel mark has no hiragana counterpart and is passed through unchanged;
// handling it separately here avoids the platform transliteration bug the
// original client had to work around.
func ToHiragana(text string) string {
	var b strings.Builder
	b.Grow(len(text))
	for _, r := range text {
		if r >= 0x30A1 && r <= 0x30F6 {
			r -= 0x60
		}
		b.WriteRune(r)
	}
	return b.String()
}

// romajiReplacements maps romanized syllables to hiragana. Longest-match-first
// lookup over this table, together with sokuon doubling and the trailing "n"
// rule, reproduces the behavior of an IME-style kana input field.
var romajiReplacements = map[string]string{
	"a": "あ",
	"ba": "ば",
	"be": "べ",
	"bi": "び",
	"bo": "ぼ",
	"bu": "ぶ",
	"bya": "びゃ",
	"bye": "びぇ",
	"byi": "びぃ",
	"byo": "びょ",
	"byu": "びゅ",
	"ca": "か",
	"ce": "け",
	"cha": "ちゃ",
	"che": "ちぇ",
	"chi": "ち",
	"cho": "ちょ",
	"chu": "ちゅ",
	"chya": "ちゃ",
	"chye": "ちぇ",
	"chyo": "ちょ",
	"chyu": "ちゅ",
	"ci": "き",
	"co": "こ",
	"cu": "く",
	"cya": "ちゃ",
	"cye": "ちぇ",
	"cyi": "ちぃ",
	"cyo": "ちょ",
	"cyu": "ちゅ",
	"da": "だ",
	"de": "で",
	"dha": "でゃ",
	"dhe": "でぇ",
	"dhi": "でぃ",
	"dho": "でょ",
	"dhu": "でゅ",
	"di": "ぢ",
	"do": "ど",
	"du": "づ",
	"dwa": "どぁ",
	"dwe": "どぇ",
	"dwi": "どぃ",
	"dwo": "どぉ",
	"dwu": "どぅ",
	"dya": "ぢゃ",
	"dye": "ぢぇ",
	"dyi": "ぢぃ",
	"dyo": "ぢょ",
	"dyu": "ぢゅ",
	"e": "え",
	"fa": "ふぁ",
	"fe": "ふぇ",
	"fi": "ふぃ",
	"fo": "ふぉ",
	"fu": "ふ",
	"fwa": "ふぁ",
	"fwe": "ふぇ",
	"fwi": "ふぃ",
	"fwo": "ふぉ",
	"fwu": "ふぅ",
	"fya": "ふゃ",
	"fye": "ふぇ",
	"fyi": "ふぃ",
	"fyo": "ふょ",
	"fyu": "ふゅ",
	"ga": "が",
	"ge": "げ",
	"gi": "ぎ",
	"go": "ご",
	"gu": "ぐ",
	"gwa": "ぐぁ",
	"gwe": "ぐぇ",
	"gwi": "ぐぃ",
	"gwo": "ぐぉ",
	"gwu": "ぐぅ",
	"gya": "ぎゃ",
	"gye": "ぎぇ",
	"gyi": "ぎぃ",
	"gyo": "ぎょ",
	"gyu": "ぎゅ",
	"ha": "は",
	"he": "へ",
	"hi": "ひ",
	"ho": "ほ",
	"hu": "ふ",
	"hya": "ひゃ",
	"hye": "ひぇ",
	"hyi": "ひぃ",
	"hyo": "ひょ",
	"hyu": "ひゅ",
	"i": "い",
	"ja": "じゃ",
	"je": "じぇ",
	"ji": "じ",
	"jo": "じょ",
	"ju": "じゅ",
	"jya": "じゃ",
	"jye": "じぇ",
	"jyi": "じぃ",
	"jyo": "じょ",
	"jyu": "じゅ",
	"ka": "か",
	"ke": "け",
	"ki": "き",
	"ko": "こ",
	"ku": "く",
	"kwa": "くぁ",
	"kya": "きゃ",
	"kye": "きぇ",
	"kyi": "きぃ",
	"kyo": "きょ",
	"kyu": "きゅ",
	"la": "ら",
	"lca": "ヵ",
	"lce": "ヶ",
	"le": "れ",
	"li": "り",
	"lka": "ヵ",
	"lke": "ヶ",
	"lo": "ろ",
	"ltsu": "っ",
	"ltu": "っ",
	"lu": "る",
	"lwe": "ゎ",
	"lya": "りゃ",
	"lye": "りぇ",
	"lyi": "りぃ",
	"lyo": "りょ",
	"lyu": "りゅ",
	"ma": "ま",
	"me": "め",
	"mi": "み",
	"mo": "も",
	"mu": "む",
	"mya": "みゃ",
	"mye": "みぇ",
	"myi": "みぃ",
	"myo": "みょ",
	"myu": "みゅ",
	"n ": "ん",
	"na": "な",
	"ne": "ね",
	"ni": "に",
	"nn": "ん",
	"no": "の",
	"nu": "ぬ",
	"nya": "にゃ",
	"nye": "にぇ",
	"nyi": "にぃ",
	"nyo": "にょ",
	"nyu": "にゅ",
	"o": "お",
	"pa": "ぱ",
	"pe": "ぺ",
	"pi": "ぴ",
	"po": "ぽ",
	"pu": "ぷ",
	"pya": "ぴゃ",
	"pye": "ぴぇ",
	"pyi": "ぴぃ",
	"pyo": "ぴょ",
	"pyu": "ぴゅ",
	"qa": "くぁ",
	"qe": "くぇ",
	"qi": "くぃ",
	"qo": "くぉ",
	"qwa": "くぁ",
	"qwe": "くぇ",
	"qwi": "くぃ",
	"qwo": "くぉ",
	"qwu": "くぅ",
	"qya": "くゃ",
	"qye": "くぇ",
	"qyi": "くぃ",
	"qyo": "くょ",
	"qyu": "くゅ",
	"ra": "ら",
	"re": "れ",
	"ri": "り",
	"ro": "ろ",
	"ru": "る",
	"rya": "りゃ",
	"rye": "りぇ",
	"ryi": "りぃ",
	"ryo": "りょ",
	"ryu": "りゅ",
	"sa": "さ",
	"se": "せ",
	"sha": "しゃ",
	"she": "しぇ",
	"shi": "し",
	"sho": "しょ",
	"shu": "しゅ",
	"shya": "しゃ",
	"shye": "しぇ",
	"shyo": "しょ",
	"shyu": "しゅ",
	"si": "し",
	"so": "そ",
	"su": "す",
	"swa": "すぁ",
	"swe": "すぇ",
	"swi": "すぃ",
	"swo": "すぉ",
	"swu": "すぅ",
	"sya": "しゃ",
	"sye": "しぇ",
	"syi": "しぃ",
	"syo": "しょ",
	"syu": "しゅ",
	"ta": "た",
	"te": "て",
	"tha": "てゃ",
	"the": "てぇ",
	"thi": "てぃ",
	"tho": "てょ",
	"thu": "てゅ",
	"ti": "ち",
	"to": "と",
	"tsa": "つぁ",
	"tse": "つぇ",
	"tsi": "つぃ",
	"tso": "つぉ",
	"tsu": "つ",
	"tu": "つ",
	"twa": "とぁ",
	"twe": "とぇ",
	"twi": "とぃ",
	"two": "とぉ",
	"twu": "とぅ",
	"tya": "ちゃ",
	"tye": "ちぇ",
	"tyi": "ちぃ",
	"tyo": "ちょ",
	"tyu": "ちゅ",
	"u": "う",
	"va": "ゔぁ",
	"ve": "ゔぇ",
	"vi": "ゔぃ",
	"vo": "ゔぉ",
	"vu": "ゔ",
	"vya": "ゔゃ",
	"vye": "ゔぇ",
	"vyi": "ゔぃ",
	"vyo": "ゔょ",
	"vyu": "ゔゅ",
	"wa": "わ",
	"we": "うぇ",
	"wha": "うぁ",
	"whe": "うぇ",
	"whi": "うぃ",
	"who": "うぉ",
	"whu": "う",
	"wi": "うぃ",
	"wo": "を",
	"wu": "う",
	"xa": "ぁ",
	"xca": "ヵ",
	"xce": "ヶ",
	"xe": "ぇ",
	"xi": "ぃ",
	"xka": "ヵ",
	"xke": "ヶ",
	"xn": "ん",
	"xo": "ぉ",
	"xtu": "っ",
	"xu": "ぅ",
	"xwa": "ゎ",
	"xya": "ゃ",
	"xye": "ぇ",
	"xyi": "ぃ",
	"xyo": "ょ",
	"xyu": "ゅ",
	"ya": "や",
	"ye": "いぇ",
	"yi": "い",
	"yo": "よ",
	"yu": "ゆ",
	"za": "ざ",
	"ze": "ぜ",
	"zi": "じ",
	"zo": "ぞ",
	"zu": "ず",
	"zya": "じゃ",
	"zye": "じぇ",
	"zyi": "じぃ",
	"zyo": "じょ",
	"zyu": "じゅ",
	"-": "ー",
}

var romajiConsonants = "bcdfghjklmnpqrstvwxyz"

func isRomajiConsonant(r rune) bool {
	return strings.ContainsRune(romajiConsonants, r)
}

// RomajiToHiragana converts romanized input to hiragana the way an IME would:
// doubled consonants become the small tsu, "n"/"m" before a consonant becomes
// ん, and any trailing letters that never completed a syllable are dropped.
func RomajiToHiragana(input string) string {
	runes := []rune(input)

	for i := 0; i < len(runes); i++ {
		if i > 0 && runes[i] != 'n' && runes[i] == runes[i-1] && isRomajiConsonant(runes[i-1]) {
			runes[i-1] = 'っ'
		}

		for length := 4; length >= 1; length-- {
			if length > i+1 {
				continue
			}
			candidate := string(runes[i-length+1 : i+1])
			replacement, ok := romajiReplacements[candidate]
			if !ok {
				continue
			}
			replaced := append([]rune{}, runes[:i-length+1]...)
			replaced = append(replaced, []rune(replacement)...)
			replaced = append(replaced, runes[i+1:]...)
			i = i - length + len([]rune(replacement))
			runes = replaced
			break
		}
	}

	for i, r := range runes {
		if r == 'n' || r == 'm' {
			runes[i] = 'ん'
		}
	}
	for len(runes) > 0 && unicode.IsLower(runes[len(runes)-1]) && runes[len(runes)-1] < 0x80 {
		runes = runes[:len(runes)-1]
	}
	return string(runes)
}
