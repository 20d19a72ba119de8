package controller

import (
	"errors"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/ellarises/portal/model"

	"github.com/go-playground/form/v4"
	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
)

// formDecoder caches struct metadata and is safe for concurrent use.
var formDecoder = form.NewDecoder()

// decodeForm parses the request body into dst using the `form` struct tags.
func decodeForm(c echo.Context, dst any) error {
	if err := c.Request().ParseForm(); err != nil {
		return ErrInvalid(err, "Error parsing form data")
	}
	if err := formDecoder.Decode(dst, c.Request().Form); err != nil {
		return ErrInvalid(err, "Error decoding form data")
	}
	return nil
}

// paramID reads the :id path parameter. ok is false for anything that is not
// a positive integer.
func paramID(c echo.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}

// listQuery reads the search text and page number of a list request.
func listQuery(c echo.Context, searchKey, pageKey string) model.SearchQuery {
	page, _ := strconv.Atoi(c.QueryParam(pageKey))
	return model.NewSearchQuery(c.QueryParam(searchKey), page)
}

func formID(s string) uint {
	id, err := strconv.ParseUint(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return 0
	}
	return uint(id)
}

// optionalInt returns nil for blank, malformed or negative input.
func optionalInt(s string) *int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < 0 {
		return nil
	}
	return &n
}

// scaleInt is optionalInt limited to the closed range lo..hi.
func scaleInt(s string, lo, hi int) *int {
	n := optionalInt(s)
	if n == nil || *n < lo || *n > hi {
		return nil
	}
	return n
}

// optionalDate parses YYYY-MM-DD and returns nil for blank or malformed input.
func optionalDate(s string) *time.Time {
	d, err := time.Parse("2006-01-02", strings.TrimSpace(s))
	if err != nil {
		return nil
	}
	return &d
}

// requiredDate parses YYYY-MM-DD; the zero time signals a missing date.
func requiredDate(s string) time.Time {
	if d := optionalDate(s); d != nil {
		return *d
	}
	return time.Time{}
}

// decimalOrZero parses a money value and falls back to 0.00.
func decimalOrZero(s string) decimal.Decimal {
	d, err := decimal.NewFromString(strings.TrimPrefix(strings.TrimSpace(s), "$"))
	if err != nil {
		return decimal.Zero
	}
	return d.Round(2)
}

// optionalDecimal returns an invalid NullDecimal for blank or malformed input.
func optionalDecimal(s string) decimal.NullDecimal {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(d)
}

func dateString(t *time.Time) string {
	if t == nil || t.IsZero() {
		return ""
	}
	return t.Format("2006-01-02")
}

func intString(n *int) string {
	if n == nil {
		return ""
	}
	return strconv.Itoa(*n)
}

// validationMessage extracts the user facing text of a model.ValidationError.
func validationMessage(err error) (string, bool) {
	var ve *model.ValidationError
	if errors.As(err, &ve) {
		return ve.Message, true
	}
	return "", false
}

// localPath returns the path and query of raw when it is a relative URL or
// an absolute URL on host. Everything else yields "".
func localPath(raw, host string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	if u.Scheme != "" || u.Host != "" {
		if u.Host != host || (u.Scheme != "http" && u.Scheme != "https") {
			return ""
		}
	}
	p := u.EscapedPath()
	if !strings.HasPrefix(p, "/") || strings.HasPrefix(p, "//") || strings.Contains(p, `\`) {
		return ""
	}
	if u.RawQuery != "" {
		p += "?" + u.RawQuery
	}
	return p
}
