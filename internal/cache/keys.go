package cache

import (
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"
)

const (
	GlobalKeyPrefix = "texquiz"

	ServiceParser = "parser"
	ServiceFigure = "figure"

	ObjectDocument = "document"
	ObjectSVG      = "svg"
)

// GenerateCacheKey generates a cache key for a given service, object type, and identifier.
// If paramsKey are provided, they are joined by "_" and appended to the cache key.
func GenerateCacheKey(serviceName, objectType, identifier string, paramsKey ...string) string {
	baseKey := strings.Join([]string{GlobalKeyPrefix, serviceName, objectType, identifier}, ":")
	if len(paramsKey) > 0 {
		return strings.Join([]string{baseKey, strings.Join(paramsKey, "_")}, ":")
	}
	return baseKey
}

// ContentHash is the hex xxhash64 of s. Equal inputs always hash equal, so
// it can key cached work derived from source text.
func ContentHash(s string) string {
	return strconv.FormatUint(xxhash.Sum64String(s), 16)
}

// DocumentKey keys a cached parse result. The rule-set fingerprint is part
// of the key because the same source parses differently under other rules.
func DocumentKey(contentHash, rulesFingerprint string) string {
	if rulesFingerprint == "" {
		return GenerateCacheKey(ServiceParser, ObjectDocument, contentHash)
	}
	return GenerateCacheKey(ServiceParser, ObjectDocument, contentHash, rulesFingerprint)
}

// FigureKey keys a rendered figure.
func FigureKey(figureKey string) string {
	return GenerateCacheKey(ServiceFigure, ObjectSVG, figureKey)
}
