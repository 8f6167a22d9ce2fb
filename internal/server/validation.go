package server

import (
	"net/url"
	"slices"
	"strings"
	"unicode/utf8"

	"trendpress/internal/core"
)

const (
	minKeywordLen = 2
	maxKeywordLen = 100
	maxURLLen     = 2000
	minAPIKeyLen  = 20
)

var supportedLangs = []string{"ko", "en"}

// validateArticleRequest checks and normalizes a keyword generation request.
// Empty optional fields get their defaults so the writer never sees blanks.
func validateArticleRequest(req *core.ArticleRequest) error {
	req.Keyword = strings.TrimSpace(req.Keyword)
	if n := utf8.RuneCountInString(req.Keyword); n < minKeywordLen || n > maxKeywordLen {
		return core.NewInvalidRequestError("keyword must be between 2 and 100 characters", nil)
	}

	if err := validateCommon(&req.APIKey, &req.Lang, &req.Style, &req.Length); err != nil {
		return err
	}
	return nil
}

// validateURLArticleRequest checks and normalizes a URL generation request.
func validateURLArticleRequest(req *core.URLArticleRequest) error {
	req.URL = strings.TrimSpace(req.URL)
	if req.URL == "" {
		return core.NewInvalidRequestError("url is required", nil)
	}
	if len(req.URL) > maxURLLen {
		return core.NewInvalidRequestError("url is too long", nil)
	}
	parsed, err := url.Parse(req.URL)
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
		return core.NewInvalidRequestError("url must be a valid http or https URL", err)
	}

	if err := validateCommon(&req.APIKey, &req.Lang, &req.Style, &req.Length); err != nil {
		return err
	}
	return nil
}

func validateCommon(apiKey, lang, style, length *string) error {
	if *apiKey != "" {
		if !strings.HasPrefix(*apiKey, "sk-") || len(*apiKey) < minAPIKeyLen {
			return core.NewInvalidRequestError("api_key has an invalid format", nil)
		}
	}

	if *lang == "" {
		*lang = "ko"
	}
	if !slices.Contains(supportedLangs, *lang) {
		return core.NewInvalidRequestError("lang must be one of: "+strings.Join(supportedLangs, ", "), nil)
	}

	if *style == "" {
		*style = core.ArticleStyles[0]
	}
	if !slices.Contains(core.ArticleStyles, *style) {
		return core.NewInvalidRequestError("style must be one of: "+strings.Join(core.ArticleStyles, ", "), nil)
	}

	if *length == "" {
		*length = "medium"
	}
	if !slices.Contains(core.ArticleLengths, *length) {
		return core.NewInvalidRequestError("length must be one of: "+strings.Join(core.ArticleLengths, ", "), nil)
	}

	return nil
}
