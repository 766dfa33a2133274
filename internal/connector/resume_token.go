package connector

import (
	"net/url"
	"strconv"
	"strings"
	"time"

	daemonerr "github.com/johnbean393/hivecrew-retrieval/internal/errors"
)

// encodeResumeToken produces the "{timestampSeconds}|{percentEncodedPath}" format.
func encodeResumeToken(modifiedAt time.Time, path string) string {
	return strconv.FormatFloat(float64(modifiedAt.Unix()), 'f', -1, 64) + "|" + url.QueryEscape(path)
}

// decodeResumeToken parses a resume token previously produced by
// encodeResumeToken. An empty token decodes to the zero value with ok=false.
func decodeResumeToken(token string) (ts time.Time, path string, ok bool, err error) {
	if token == "" {
		return time.Time{}, "", false, nil
	}
	parts := strings.SplitN(token, "|", 2)
	if len(parts) != 2 {
		return time.Time{}, "", false, daemonerr.Invalid("malformed resume token")
	}
	seconds, parseErr := strconv.ParseFloat(parts[0], 64)
	if parseErr != nil {
		return time.Time{}, "", false, daemonerr.Invalid("malformed resume token timestamp")
	}
	decodedPath, unescErr := url.QueryUnescape(parts[1])
	if unescErr != nil {
		return time.Time{}, "", false, daemonerr.Invalid("malformed resume token path")
	}
	return time.Unix(int64(seconds), 0).UTC(), decodedPath, true, nil
}
