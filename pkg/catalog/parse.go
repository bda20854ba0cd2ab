package catalog

import (
	"strconv"
	"strings"
	"sync"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
)

// Selectors are compiled once on first use and shared by every parse. They
// are immutable after initialization.
var (
	selSearchItems = sync.OnceValue(func() cascadia.Selector {
		return cascadia.MustCompile("#search-result-list > li")
	})
	selWorkID = sync.OnceValue(func() cascadia.Selector {
		return cascadia.MustCompile("div[data-work-id]")
	})
	selWorkTitle = sync.OnceValue(func() cascadia.Selector {
		return cascadia.MustCompile("a.work-title[title]")
	})
	selMakerLink = sync.OnceValue(func() cascadia.Selector {
		return cascadia.MustCompile(".maker-name a")
	})
	selAuthor = sync.OnceValue(func() cascadia.Selector {
		return cascadia.MustCompile(".author-name")
	})
	selPrice = sync.OnceValue(func() cascadia.Selector {
		return cascadia.MustCompile(".work-price .price-base")
	})
	selStrikePrice = sync.OnceValue(func() cascadia.Selector {
		return cascadia.MustCompile(".work-price-wrap .strike .price-base")
	})
	selAgeRating = sync.OnceValue(func() cascadia.Selector {
		return cascadia.MustCompile(".age-rating[title]")
	})
	selRating = sync.OnceValue(func() cascadia.Selector {
		return cascadia.MustCompile(".star-rating[data-score]")
	})
	selDLCount = sync.OnceValue(func() cascadia.Selector {
		return cascadia.MustCompile(".dl-count")
	})
	selReviewCount = sync.OnceValue(func() cascadia.Selector {
		return cascadia.MustCompile(".review-count")
	})
)

// ParseSearchHTML extracts search items from a search result fragment.
// A malformed item aborts the parse; partial listings are worse than a
// visible error because they silently poison the parsed-result cache.
func ParseSearchHTML(html string) ([]SearchItem, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, &ParseError{What: "search result document", Err: err}
	}

	var items []SearchItem
	var parseErr error

	doc.FindMatcher(selSearchItems()).EachWithBreak(func(i int, sel *goquery.Selection) bool {
		item, err := parseSearchItem(sel)
		if err != nil {
			parseErr = err
			return false
		}
		items = append(items, item)
		return true
	})
	if parseErr != nil {
		return nil, parseErr
	}

	return items, nil
}

func parseSearchItem(sel *goquery.Selection) (SearchItem, error) {
	var item SearchItem

	id, ok := sel.FindMatcher(selWorkID()).First().Attr("data-work-id")
	if !ok || id == "" {
		return item, &ParseError{What: "work id"}
	}
	item.ID = id

	title, ok := sel.FindMatcher(selWorkTitle()).First().Attr("title")
	if !ok {
		return item, &ParseError{What: "work title"}
	}
	item.Title = title

	maker := sel.FindMatcher(selMakerLink()).First()
	if maker.Length() == 0 {
		return item, &ParseError{What: "maker element"}
	}
	item.CircleName = strings.TrimSpace(maker.Text())
	href, ok := maker.Attr("href")
	if !ok {
		return item, &ParseError{What: "maker link"}
	}
	circleID, err := circleIDFromHref(href)
	if err != nil {
		return item, err
	}
	item.CircleID = circleID

	if author := sel.FindMatcher(selAuthor()).First(); author.Length() > 0 {
		item.Creator = strings.TrimSpace(author.Text())
	}

	price, err := parseNum(sel.FindMatcher(selPrice()).First().Text())
	if err != nil {
		return item, &ParseError{What: "work price", Err: err}
	}
	if strike := sel.FindMatcher(selStrikePrice()).First(); strike.Length() > 0 {
		// Discounted layout: the struck-through value is the original price.
		original, err := parseNum(strike.Text())
		if err != nil {
			return item, &ParseError{What: "original price", Err: err}
		}
		sale := price
		item.Price = original
		item.SalePrice = &sale
	} else {
		item.Price = price
	}

	item.AgeRating = AgeRatingAdult
	if age := sel.FindMatcher(selAgeRating()).First(); age.Length() > 0 {
		title, _ := age.Attr("title")
		switch title {
		case "All ages":
			item.AgeRating = AgeRatingGeneral
		case "R-15":
			item.AgeRating = AgeRatingR15
		default:
			return item, &ParseError{What: "age rating: unknown title " + strconv.Quote(title)}
		}
	}

	if rating := sel.FindMatcher(selRating()).First(); rating.Length() > 0 {
		if score, ok := rating.Attr("data-score"); ok {
			v, err := strconv.ParseFloat(score, 64)
			if err != nil {
				return item, &ParseError{What: "rating score", Err: err}
			}
			item.Rating = &v
		}
	}

	if dl := sel.FindMatcher(selDLCount()).First(); dl.Length() > 0 {
		n, err := parseNum(dl.Text())
		if err != nil {
			return item, &ParseError{What: "download count", Err: err}
		}
		item.DLCount = &n
	}

	if rc := sel.FindMatcher(selReviewCount()).First(); rc.Length() > 0 {
		n, err := parseCount(rc.Text())
		if err != nil {
			return item, &ParseError{What: "review count", Err: err}
		}
		item.ReviewCount = &n
	}

	return item, nil
}

// circleIDFromHref extracts a circle ID from a profile link such as
// "/circle/profile/BG12345.html".
func circleIDFromHref(href string) (string, error) {
	trimmed := strings.TrimSuffix(strings.Trim(href, "/"), ".html")
	idx := strings.LastIndex(trimmed, "/")
	id := trimmed[idx+1:]
	if id == "" {
		return "", &ParseError{What: "circle id from " + strconv.Quote(href)}
	}
	return id, nil
}

// parseNum parses an integer that may carry thousands separators ("1,234").
func parseNum(s string) (int, error) {
	cleaned := strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	return strconv.Atoi(cleaned)
}

// parseCount parses a parenthesized count ("(56)").
func parseCount(s string) (int, error) {
	cleaned := strings.TrimSpace(s)
	cleaned = strings.Trim(cleaned, "()")
	return parseNum(cleaned)
}
