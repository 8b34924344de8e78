// Package opendata is the client for the Korea Culture Information Service
// (KCISA) restaurant open-data API.
package opendata

import (
	"bytes"
	"context"
	"strconv"

	"github.com/goccy/go-json"

	"restaurant-collector/models"
	"restaurant-collector/scraper"
	"restaurant-collector/utils"
)

const (
	DefaultURL  = "https://api.kcisa.kr/openapi/API_CNV_063/request"
	DefaultArea = "서울"
	SourceName  = "KCISA"

	successCode = "0000"
)

// Categories lists every category label the API accepts for clNm.
var Categories = []string{"한식", "분식", "치킨", "동양식", "서양식", "패스트푸드", "뷔페", "퓨전"}

// RecordList is the items.item field, which the API sends as a single object,
// an array, null or an empty string depending on the result size.
type RecordList []models.RawRecord

// UnmarshalJSON normalizes every shape into a slice.
func (l *RecordList) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case len(data) == 0, bytes.Equal(data, []byte("null")), bytes.Equal(data, []byte(`""`)):
		*l = RecordList{}
		return nil
	case data[0] == '[':
		var items []models.RawRecord
		if err := json.Unmarshal(data, &items); err != nil {
			return err
		}
		*l = items
		return nil
	default:
		var item models.RawRecord
		if err := json.Unmarshal(data, &item); err != nil {
			return err
		}
		*l = RecordList{item}
		return nil
	}
}

type envelope struct {
	Response struct {
		Header *struct {
			ResultCode models.Text `json:"resultCode"`
			ResultMsg  models.Text `json:"resultMsg"`
		} `json:"header"`
		Body struct {
			Items    itemsField  `json:"items"`
			PageNo   models.Text `json:"pageNo"`
			Total    models.Text `json:"totalCount"`
			NumOfRow models.Text `json:"numOfRows"`
		} `json:"body"`
	} `json:"response"`
}

// itemsField tolerates "items": "" which the API returns for empty pages.
type itemsField struct {
	Item RecordList `json:"item"`
}

func (f *itemsField) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || data[0] != '{' {
		f.Item = RecordList{}
		return nil
	}
	type plain itemsField
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*f = itemsField(p)
	return nil
}

// Client fetches pages from the open-data API.
type Client struct {
	baseURL string
	apiKey  string
	limiter *utils.RateLimiter
	fetcher *scraper.Fetcher
}

// New creates a Client. baseURL may be empty for the public endpoint.
func New(baseURL, apiKey string, limiter *utils.RateLimiter, fetcher *scraper.Fetcher) *Client {
	if baseURL == "" {
		baseURL = DefaultURL
	}
	return &Client{baseURL: baseURL, apiKey: apiKey, limiter: limiter, fetcher: fetcher}
}

// FetchPage returns the records of one page. The result is never nil.
func (c *Client) FetchPage(ctx context.Context, area, categoryLabel string, pageNo, pageSize int) ([]models.RawRecord, error) {
	if c.limiter != nil {
		if err := c.limiter.Acquire(ctx); err != nil {
			return nil, err
		}
	}

	params := map[string]string{
		"serviceKey": c.apiKey,
		"numOfRows":  strconv.Itoa(pageSize),
		"pageNo":     strconv.Itoa(pageNo),
		"areaNm":     area,
		"clNm":       categoryLabel,
	}

	var env envelope
	if err := c.fetcher.FetchWithRetry(ctx, c.baseURL, params, &env); err != nil {
		return nil, err
	}

	header := env.Response.Header
	if header == nil {
		return nil, &scraper.UpstreamError{Source: SourceName, Message: "Unknown KCISA error"}
	}
	if header.ResultCode.String() != successCode {
		msg := header.ResultMsg.String()
		if msg == "" {
			msg = "Unknown KCISA error"
		}
		return nil, &scraper.UpstreamError{Source: SourceName, Code: header.ResultCode.String(), Message: msg}
	}

	items := env.Response.Body.Items.Item
	if items == nil {
		return []models.RawRecord{}, nil
	}
	return items, nil
}
