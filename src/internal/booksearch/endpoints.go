package booksearch

import (
	"net/url"
	"strconv"

	"novelmeta/src/internal/fallback"
	"novelmeta/src/internal/keyword"
)

const (
	searchV3URL      = "https://app.jjwxc.org/search/searchV3"
	searchAndroidURL = "https://app.jjwxc.org/androidapi/search"

	detailCDNURL      = "https://app-cdn.jjwxc.net/androidapi/novelbasicinfo"
	detailBookURL     = "https://app.jjwxc.org/androidapi/getBookDetail"
	detailBasicURL    = "https://app.jjwxc.org/androidapi/novelbasicinfo"
	extendedInfoURL   = "https://app.jjwxc.org/androidapi/getnovelOtherInfo"
	appVersion        = "9.9.9"
	searchVersionCode = "282"
	otherVersionCode  = "279"
)

// detailParamNames are the id parameter spellings seen across API versions.
var detailParamNames = []string{"novelid", "novelId", "bookId", "bookid"}

func (s *Searcher) searchPlan(q keyword.Query) fallback.Plan {
	return fallback.Plan{
		Name: "search",
		Endpoints: []fallback.Endpoint{
			{URL: searchV3URL},
			{URL: searchAndroidURL, Params: url.Values{"versionCode": {searchVersionCode}}},
		},
		Extra: url.Values{
			"keyword": {q.Keyword},
			"type":    {strconv.Itoa(q.Intent.Code())},
			"page":    {"1"},
			"token":   {s.sid},
		},
		Header:  s.headers(),
		Timeout: s.cfg.SearchTimeout,
	}
}

func (s *Searcher) detailPlan(id string) fallback.Plan {
	return fallback.Plan{
		Name: "detail",
		Endpoints: []fallback.Endpoint{
			{URL: detailCDNURL},
			{URL: detailBookURL},
			{URL: detailBasicURL},
		},
		ParamNames: detailParamNames,
		Value:      id,
		Extra: url.Values{
			"token":    {s.sid},
			"version":  {appVersion},
			"platform": {"android"},
		},
		Header:  s.headers(),
		Timeout: s.cfg.DetailTimeout,
	}
}

func (s *Searcher) extendedPlan(id string) fallback.Plan {
	return fallback.Plan{
		Name: "extended",
		Endpoints: []fallback.Endpoint{{URL: extendedInfoURL, Params: url.Values{
			"versionCode": {otherVersionCode},
			"novelId":     {id},
			"type":        {"novelbasicinfo"},
		}}},
		Header:  s.headers(),
		Timeout: s.cfg.PageTimeout,
	}
}
