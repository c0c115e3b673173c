package scraper

import (
	"compress/gzip"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"reflect"
	"strconv"
	"time"

	"github.com/mitchellh/mapstructure"
	"go.uber.org/zap"
)

const (
	userAgent       = "spigell/job-intake"
	contentType     = "application/json"
	contentEncoding = "gzip"
)

// Item is one undecoded entry of a board response.
type Item interface{}

// client is the HTTP plumbing shared by the job board sources.
type client struct {
	logger     *zap.Logger
	HTTPClient *http.Client
	UserAgent  string
}

func newClient(logger *zap.Logger) *client {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &client{
		logger: logger,
		HTTPClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		UserAgent: userAgent,
	}
}

// getItems makes a GET request and returns the list found under key in the JSON response.
func (c *client) getItems(ctx context.Context, endpoint string, q url.Values, key string) ([]Item, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}

	req.Header.Set("User-Agent", c.UserAgent)
	req.Header.Set("Accept", contentType)
	req.Header.Set("Accept-Encoding", contentEncoding)
	req.URL.RawQuery = q.Encode()

	c.logger.Debug("make request", zap.String("url", req.URL.Redacted()))
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("bad status: %s", resp.Status)
	}

	var body io.Reader = resp.Body
	if resp.Header.Get("Content-Encoding") == "gzip" {
		gz, err := gzip.NewReader(resp.Body)
		if err != nil {
			return nil, err
		}
		defer gz.Close()
		body = gz
	}

	var response map[string]any
	if err := json.NewDecoder(body).Decode(&response); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	raw, ok := response[key].([]any)
	if !ok {
		return nil, nil
	}

	items := make([]Item, 0, len(raw))
	for _, r := range raw {
		items = append(items, r)
	}
	return items, nil
}

// decodeItems converts generic JSON items into typed board records.
// Loosely typed fields such as numeric strings are accepted.
func decodeItems(items []Item, result any) error {
	cfg := &mapstructure.DecoderConfig{
		Metadata:         nil,
		Result:           result,
		TagName:          "json",
		WeaklyTypedInput: true,
	}
	decoder, err := mapstructure.NewDecoder(cfg)
	if err != nil {
		return err
	}
	return decoder.Decode(items)
}

// buildParams turns a params struct into query values using the "param" tag.
// Zero values are omitted, slices are repeated.
func buildParams(params any) url.Values {
	q := url.Values{}
	value := reflect.Indirect(reflect.ValueOf(params))
	for _, field := range reflect.VisibleFields(value.Type()) {
		key := field.Tag.Get("param")
		if key == "" || key == "-" {
			continue
		}

		fv := value.FieldByIndex(field.Index)
		switch fv.Kind() {
		case reflect.Slice:
			switch v := fv.Interface().(type) {
			case []int:
				for _, item := range v {
					q.Add(key, strconv.Itoa(item))
				}
			case []string:
				for _, item := range v {
					q.Add(key, item)
				}
			}
		default:
			s := fmt.Sprintf("%v", fv.Interface())
			if s != "" && s != "0" && s != "false" {
				q.Set(key, s)
			}
		}
	}

	return q
}
