package catalog

import (
	"context"
	"strings"
	"sync"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
)

var (
	selCircleName = sync.OnceValue(func() cascadia.Selector {
		return cascadia.MustCompile(".circle-name")
	})
	selCircleWorkCount = sync.OnceValue(func() cascadia.Selector {
		return cascadia.MustCompile(".work-count")
	})
)

// circleProfilePath builds the circle profile page path for an ID such as
// "BG12345".
func circleProfilePath(id string) string {
	return "/circle/profile/" + id + ".html"
}

// Circle fetches a creator group's profile page and parses its name and work
// count.
func (s *Service) Circle(ctx context.Context, id string) (Circle, error) {
	path := circleProfilePath(id)

	if c, ok := s.circles.Get(path); ok {
		s.logger.Debug().Str("circle_id", id).Msg("Parsed circle cache hit")
		return c, nil
	}

	body, err := s.client.Get(ctx, path)
	if err != nil {
		return Circle{}, err
	}

	c, err := parseCircleHTML(id, body)
	if err != nil {
		return Circle{}, err
	}

	s.circles.Set(path, c)
	return c, nil
}

func parseCircleHTML(id, html string) (Circle, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return Circle{}, &ParseError{What: "circle profile document", Err: err}
	}

	name := strings.TrimSpace(doc.FindMatcher(selCircleName()).First().Text())
	if name == "" {
		return Circle{}, &ParseError{What: "circle name"}
	}

	c := Circle{ID: id, Name: name}

	if wc := doc.FindMatcher(selCircleWorkCount()).First(); wc.Length() > 0 {
		n, err := parseNum(wc.Text())
		if err != nil {
			return Circle{}, &ParseError{What: "circle work count", Err: err}
		}
		c.WorkCount = n
	}

	return c, nil
}
