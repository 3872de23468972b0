package cachemdw

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"sort"
	"strings"
)

type CacheItemType int

const (
	CacheItemTypeQuery CacheItemType = iota + 1
)

func (t CacheItemType) String() string {
	switch t {
	case CacheItemTypeQuery:
		return "query"
	default:
		return "unknown"
	}
}

func BuildCacheKey(cacheItemType CacheItemType, parts []string) string {
	fullParts := append(
		[]string{
			cacheItemType.String(),
		},
		parts...,
	)

	return strings.Join(fullParts, ":")
}

// GetQueryKey calculates cache key for request from its method, url and a
// hash of every header it carries
func GetQueryKey(
	cachePrefix string,
	req *http.Request,
) (string, error) {
	if req == nil || req.URL == nil {
		return "", fmt.Errorf("request shouldn't be nil")
	}

	parts := []string{
		cachePrefix,
		req.Method,
		req.URL.RequestURI(),
		hashHeaders(req.Header),
	}

	return BuildCacheKey(CacheItemTypeQuery, parts), nil
}

// hashHeaders returns a hex sha256 of the headers in canonical order
func hashHeaders(header http.Header) string {
	names := make([]string, 0, len(header))
	for name := range header {
		names = append(names, name)
	}
	sort.Strings(names)

	hash := sha256.New()
	for _, name := range names {
		hash.Write([]byte(name))
		hash.Write([]byte{0})
		hash.Write([]byte(strings.Join(header[name], ",")))
		hash.Write([]byte{0})
	}

	return hex.EncodeToString(hash.Sum(nil))
}
