package handler

import (
	"net/http"
	"strconv"
)

// Pagination carries relative links for walking a history result set.
// Next is null when the current page came back short, meaning there is
// nothing further to fetch.
type Pagination struct {
	Next *string `json:"next"`
	Prev *string `json:"prev"`
}

// buildPagination derives next and prev links from the request URL and
// the size of the returned page.
func buildPagination(r *http.Request, limit, offset, returned int) Pagination {
	var p Pagination

	if returned == limit {
		p.Next = pageLink(r, limit, offset+limit)
	}
	if offset > 0 {
		prevOffset := offset - limit
		if prevOffset < 0 {
			prevOffset = 0
		}
		p.Prev = pageLink(r, limit, prevOffset)
	}
	return p
}

func pageLink(r *http.Request, limit, offset int) *string {
	q := r.URL.Query()
	q.Set("limit", strconv.Itoa(limit))
	q.Set("offset", strconv.Itoa(offset))
	link := r.URL.Path + "?" + q.Encode()
	return &link
}
