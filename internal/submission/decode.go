package submission

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/url"
	"strings"
)

// ErrMalformedBody is returned when a body cannot be decoded under the
// encoding it claims (or, for JSON-looking text, the encoding it resembles).
var ErrMalformedBody = errors.New("malformed request body")

// multipartMaxMemory caps how much of a multipart body is held in memory.
const multipartMaxMemory = 1 << 20

// Decode turns a wire request into a Raw field map. It has no side effects.
func Decode(req Request) (Raw, error) {
	mediaType, params, err := mime.ParseMediaType(req.ContentType)
	if err != nil {
		mediaType = strings.ToLower(strings.TrimSpace(req.ContentType))
		params = nil
	}

	switch {
	case isJSONMediaType(mediaType):
		return decodeJSON(req.Body)
	case mediaType == "application/x-www-form-urlencoded":
		body, err := url.ParseQuery(string(req.Body))
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedBody, err)
		}
		return mergeValues(req.Query, body), nil
	case mediaType == "multipart/form-data":
		return decodeMultipart(req, params["boundary"])
	case (mediaType == "" || strings.HasPrefix(mediaType, "text/")) && looksLikeJSON(req.Body):
		return decodeJSON(req.Body)
	default:
		// Unknown encodings fall back to parameters: the query string plus
		// whatever of the body reads as URL-encoded pairs.
		body, err := url.ParseQuery(string(req.Body))
		if err != nil {
			return mergeValues(req.Query), nil
		}
		return mergeValues(req.Query, body), nil
	}
}

func isJSONMediaType(mediaType string) bool {
	return mediaType == "application/json" || strings.HasSuffix(mediaType, "+json")
}

// looksLikeJSON reports whether body is framed like a JSON object or array.
func looksLikeJSON(body []byte) bool {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) < 2 {
		return false
	}
	first, last := trimmed[0], trimmed[len(trimmed)-1]
	return (first == '{' && last == '}') || (first == '[' && last == ']')
}

func decodeJSON(body []byte) (Raw, error) {
	raw := Raw{}
	if len(bytes.TrimSpace(body)) == 0 {
		return raw, nil
	}

	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()

	var doc any
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedBody, err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: trailing data after JSON document", ErrMalformedBody)
	}

	obj, ok := doc.(map[string]any)
	if !ok {
		// Valid JSON that is not an object carries no fields.
		return raw, nil
	}
	for key, value := range obj {
		switch v := value.(type) {
		case string:
			raw[key] = v
		case json.Number:
			raw[key] = v.String()
		case bool:
			if v {
				raw[key] = "true"
			} else {
				raw[key] = "false"
			}
		}
	}
	return raw, nil
}

func decodeMultipart(req Request, boundary string) (Raw, error) {
	if boundary == "" {
		return nil, fmt.Errorf("%w: multipart body without boundary", ErrMalformedBody)
	}
	form, err := multipart.NewReader(bytes.NewReader(req.Body), boundary).ReadForm(multipartMaxMemory)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedBody, err)
	}
	defer form.RemoveAll()

	return mergeValues(req.Query, url.Values(form.Value)), nil
}

// mergeValues flattens parameter sets into a Raw. Later sets override
// earlier ones and, within a set, the last value of a key wins.
func mergeValues(sets ...url.Values) Raw {
	raw := Raw{}
	for _, set := range sets {
		for key, values := range set {
			if len(values) == 0 {
				continue
			}
			raw[key] = values[len(values)-1]
		}
	}
	return raw
}
