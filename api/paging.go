package api

import (
	"net/url"
	"strconv"
	"strings"
)

const DefaultPageSize = 20

// Page is a Spring Data page. Number is zero based.
type Page[T any] struct {
	Content       []T   `json:"content"`
	TotalElements int64 `json:"totalElements"`
	TotalPages    int   `json:"totalPages"`
	Number        int   `json:"number"`
	Size          int   `json:"size"`
}

// HasNext reports whether a page follows this one
func (p *Page[T]) HasNext() bool {
	return p.Number+1 < p.TotalPages
}

// Paginate slices items into a page the way the backend would. totalPages is
// never below one, so an empty list still has a first page.
func Paginate[T any](items []T, page, size int) Page[T] {
	if size <= 0 {
		size = DefaultPageSize
	}
	if page < 0 {
		page = 0
	}

	total := len(items)
	totalPages := (total + size - 1) / size
	if totalPages < 1 {
		totalPages = 1
	}

	start := page * size
	if start > total {
		start = total
	}
	end := start + size
	if end > total {
		end = total
	}

	return Page[T]{
		Content:       items[start:end],
		TotalElements: int64(total),
		TotalPages:    totalPages,
		Number:        page,
		Size:          size,
	}
}

// RegionAll disables the region filter
const RegionAll = "ALL"

// Regions are the province level filters offered to users, RegionAll first
var Regions = []string{
	RegionAll,
	"서울", "부산", "대구", "인천", "광주", "대전", "울산", "세종",
	"경기", "강원", "충북", "충남", "전북", "전남", "경북", "경남", "제주",
}

// FilterByRegion keeps the restaurants whose address contains region. An empty
// region or RegionAll keeps everything.
func FilterByRegion(items []Restaurant, region string) []Restaurant {
	region = strings.TrimSpace(region)
	if region == "" || region == RegionAll {
		return items
	}
	out := make([]Restaurant, 0, len(items))
	for _, r := range items {
		if strings.Contains(r.Address, region) {
			out = append(out, r)
		}
	}
	return out
}

// PageParams is the common page/size pair. A zero Size means DefaultPageSize.
type PageParams struct {
	Page int
	Size int
}

func (p PageParams) apply(q url.Values) {
	size := p.Size
	if size <= 0 {
		size = DefaultPageSize
	}
	page := p.Page
	if page < 0 {
		page = 0
	}
	q.Set("page", strconv.Itoa(page))
	q.Set("size", strconv.Itoa(size))
}
