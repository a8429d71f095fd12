package handlers

import (
	"regexp"
	"strconv"
	"strings"

	"picserve/internal/rendercache"
	"picserve/pkg/apperrors"
)

// deliveryRequest is the decoded form of a delivery path:
// {size}/{tag}*/{indexOrRandom}.
type deliveryRequest struct {
	Size    rendercache.Size
	SizeKey string // raw size segment, part of the random fingerprint
	Tags    []string
	Random  bool
	Index   int // 1-based
}

var randomSegment = regexp.MustCompile(`^(?i:random(_\d+)?)$`)

// parseDeliveryPath decodes the request path. The leading segment is the
// size and is mandatory; a trailing "random"/"random_N" segment selects
// random mode; a trailing number is the rotation index (default 1); the
// segments in between are the match-all tag filter.
func parseDeliveryPath(path string) (*deliveryRequest, error) {
	trimmed := strings.Trim(path, "/")
	if trimmed == "" {
		return nil, apperrors.NewBadRequestError("size segment is required")
	}
	segments := strings.Split(trimmed, "/")

	size, err := parseSize(segments[0])
	if err != nil {
		return nil, err
	}
	req := &deliveryRequest{
		Size:    size,
		SizeKey: segments[0],
		Index:   1,
	}
	segments = segments[1:]

	if len(segments) > 0 && randomSegment.MatchString(segments[len(segments)-1]) {
		// The _N suffix is accepted but carries no meaning beyond
		// selecting random mode.
		req.Random = true
		segments = segments[:len(segments)-1]
	}

	if !req.Random && len(segments) > 0 {
		if index, ok := parseIndex(segments[len(segments)-1]); ok {
			req.Index = index
			segments = segments[:len(segments)-1]
		}
	}

	req.Tags = segments
	return req, nil
}

// parseSize accepts "original", "WIDTH" (square) or "WIDTHxHEIGHT".
func parseSize(dim string) (rendercache.Size, error) {
	if strings.EqualFold(dim, "original") {
		return rendercache.Size{Original: true}, nil
	}

	lower := strings.ToLower(dim)
	if w, h, found := strings.Cut(lower, "x"); found {
		width, errW := strconv.Atoi(w)
		height, errH := strconv.Atoi(h)
		if errW != nil || errH != nil || width < 1 || height < 1 {
			return rendercache.Size{}, apperrors.NewBadRequestError("invalid size segment: " + dim)
		}
		return rendercache.Size{Width: width, Height: height}, nil
	}

	width, err := strconv.Atoi(lower)
	if err != nil || width < 1 {
		return rendercache.Size{}, apperrors.NewBadRequestError("invalid size segment: " + dim)
	}
	return rendercache.Size{Width: width, Height: width}, nil
}

// parseIndex accepts a purely numeric segment; anything below 1 clamps to
// 1. Non-numeric segments are not an error, they are tags.
func parseIndex(segment string) (int, bool) {
	if segment == "" {
		return 0, false
	}
	for _, r := range segment {
		if r < '0' || r > '9' {
			return 0, false
		}
	}
	index, err := strconv.Atoi(segment)
	if err != nil {
		// Numbers too large for int wrap to index 1 rather than failing.
		return 1, true
	}
	if index < 1 {
		index = 1
	}
	return index, true
}
