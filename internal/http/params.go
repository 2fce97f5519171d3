package http

import (
	"fmt"
	"strconv"

	"github.com/gin-gonic/gin"
)

// queryUint32 parses an optional unsigned query parameter. Absent or empty
// values return nil.
func queryUint32(c *gin.Context, name string) (*uint32, error) {
	raw, ok := c.GetQuery(name)
	if !ok || raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseUint(raw, 10, 32)
	if err != nil {
		return nil, badRequest{msg: fmt.Sprintf("invalid %s %q", name, raw)}
	}
	n := uint32(v)
	return &n, nil
}

// searchParams reads search_by and page; the page defaults to 0.
func searchParams(c *gin.Context) (string, uint32, error) {
	page, err := queryUint32(c, "page")
	if err != nil {
		return "", 0, err
	}
	if page == nil {
		return c.Query("search_by"), 0, nil
	}
	return c.Query("search_by"), *page, nil
}

func requiredQuery(c *gin.Context, name string) (string, error) {
	v := c.Query(name)
	if v == "" {
		return "", badRequest{msg: fmt.Sprintf("missing %s", name)}
	}
	return v, nil
}
