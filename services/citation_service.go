// services/citation_service.go
package services

import (
	"net/url"
	"sort"
	"strings"
	"unicode"

	"golang.org/x/net/publicsuffix"
	"mvdan.cc/xurls/v2"

	"github.com/AI-Template-SDK/senso-visibility/internal/models"
)

// UnknownBrand collects links whose host matches no tracked brand.
const UnknownBrand = "Unknown"

const trailingPunctuation = ".,;:!?)]}'\"*>"

type citationService struct{}

func NewCitationService() CitationService {
	return &citationService{}
}

// ExtractLinks finds every scheme-qualified URL in text and attributes it to
// the brand whose slug appears in its hostname. Sorted by count desc, then URL.
func (s *citationService) ExtractLinks(text string, brands []string) []models.Link {
	type slugged struct {
		brand string
		slug  string
	}
	var candidates []slugged
	for _, brand := range brands {
		if slug := BrandSlug(brand); slug != "" {
			candidates = append(candidates, slugged{brand: strings.TrimSpace(brand), slug: slug})
		}
	}

	index := make(map[string]int)
	var links []models.Link

	for _, match := range xurls.Strict().FindAllString(text, -1) {
		raw := strings.TrimRight(strings.TrimSpace(match), trailingPunctuation)
		u, err := url.Parse(raw)
		if err != nil || u.Hostname() == "" {
			continue
		}

		if i, ok := index[raw]; ok {
			links[i].Count++
			continue
		}

		owner := UnknownBrand
		best := 0
		core, full := hostKeys(u.Hostname())
		for _, c := range candidates {
			if len(c.slug) <= best {
				continue
			}
			if strings.Contains(core, c.slug) || strings.Contains(full, c.slug) {
				owner = c.brand
				best = len(c.slug)
			}
		}

		index[raw] = len(links)
		links = append(links, models.Link{URL: raw, Brand: owner, Count: 1})
	}

	sort.SliceStable(links, func(i, j int) bool {
		if links[i].Count != links[j].Count {
			return links[i].Count > links[j].Count
		}
		return links[i].URL < links[j].URL
	})
	return links
}

// BrandSlug lower-cases name and keeps only letters and digits.
func BrandSlug(name string) string {
	return alnum(strings.ToLower(name))
}

// hostKeys returns the host without "www." and its public suffix, and the
// whole host, both reduced to letters and digits.
func hostKeys(hostname string) (core, full string) {
	host := strings.TrimPrefix(strings.ToLower(hostname), "www.")
	core = host
	if suffix, _ := publicsuffix.PublicSuffix(host); suffix != "" && suffix != host {
		core = strings.TrimSuffix(host, "."+suffix)
	}
	return alnum(core), alnum(host)
}

func alnum(s string) string {
	var b strings.Builder
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// GroupLinks merges links from many contexts into per-brand buckets, summing
// counts for the same URL. Each bucket is sorted by count desc, then URL.
func GroupLinks(sets ...[]models.Link) map[string][]models.Link {
	merged := make(map[string]*models.Link)
	var order []string
	for _, set := range sets {
		for _, link := range set {
			key := link.Brand + "\x00" + link.URL
			if existing, ok := merged[key]; ok {
				existing.Count += link.Count
				continue
			}
			copied := link
			merged[key] = &copied
			order = append(order, key)
		}
	}

	grouped := make(map[string][]models.Link)
	for _, key := range order {
		link := merged[key]
		grouped[link.Brand] = append(grouped[link.Brand], *link)
	}
	for brand := range grouped {
		bucket := grouped[brand]
		sort.SliceStable(bucket, func(i, j int) bool {
			if bucket[i].Count != bucket[j].Count {
				return bucket[i].Count > bucket[j].Count
			}
			return bucket[i].URL < bucket[j].URL
		})
	}
	return grouped
}
