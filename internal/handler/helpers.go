package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	appErrors "github.com/noah-isme/vtc-admin-api/pkg/errors"
	"github.com/noah-isme/vtc-admin-api/pkg/listquery"
)

// listParams reads the shared list query parameters. A page that is not a
// number is treated as absent.
func listParams(c *gin.Context) listquery.Params {
	page, err := strconv.Atoi(strings.TrimSpace(c.Query("page")))
	if err != nil {
		page = 0
	}
	return listquery.Params{
		Search:    strings.TrimSpace(c.Query("search")),
		Sort:      strings.TrimSpace(c.Query("sort")),
		Direction: strings.TrimSpace(c.Query("direction")),
		Page:      page,
	}
}

func invalidPayload(err error) error {
	return appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload")
}
