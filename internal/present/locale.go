package present

import (
	"os"
	"strings"

	"github.com/goodsign/monday"
	"golang.org/x/text/language"
)

// HostLocale returns the locale from LC_ALL, LC_TIME or LANG, in that order.
func HostLocale() string {
	for _, key := range []string{"LC_ALL", "LC_TIME", "LANG"} {
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			return v
		}
	}
	return ""
}

// ResolveLocale maps a POSIX locale name ("en_US.UTF-8") or BCP 47 tag
// ("de-AT") to a locale monday can format dates for. A region monday does not
// know falls back to the language's most likely region.
func ResolveLocale(name string) (monday.Locale, bool) {
	tag, ok := parseLocale(name)
	if !ok {
		return "", false
	}
	base, _ := tag.Base()
	if region, conf := tag.Region(); conf != language.No {
		if loc, ok := knownLocale(base.String(), region.String()); ok {
			return loc, true
		}
	}
	if region, conf := language.Make(base.String()).Region(); conf != language.No {
		if loc, ok := knownLocale(base.String(), region.String()); ok {
			return loc, true
		}
	}
	return "", false
}

func knownLocale(base, region string) (monday.Locale, bool) {
	loc := monday.Locale(base + "_" + region)
	_, ok := monday.ShortFormatsByLocale[loc]
	return loc, ok
}

func parseLocale(locale string) (language.Tag, bool) {
	locale = strings.TrimSpace(locale)
	if i := strings.IndexAny(locale, ".@"); i >= 0 {
		locale = locale[:i]
	}
	if locale == "" || locale == "C" || locale == "POSIX" {
		return language.Und, false
	}
	tag, err := language.Parse(strings.ReplaceAll(locale, "_", "-"))
	if err != nil {
		return language.Und, false
	}
	return tag, true
}
