package ai

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

var fencedJSON = regexp.MustCompile("(?s)```(?:json)?\\s*(\\{.*?\\})\\s*```")

// parseCategories extracts a category to references object from a model
// reply. The object may be fenced in a ```json block or appear bare.
func parseCategories(content string) (map[string][]string, error) {
	raw := ""
	if m := fencedJSON.FindStringSubmatch(content); m != nil {
		raw = m[1]
	} else {
		start := strings.Index(content, "{")
		end := strings.LastIndex(content, "}")
		if start == -1 || end <= start {
			return nil, fmt.Errorf("%w: no json object found", ErrInvalidResponse)
		}
		raw = content[start : end+1]
	}

	var generic map[string]json.RawMessage
	if err := json.Unmarshal([]byte(raw), &generic); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}

	out := make(map[string][]string, len(generic))
	for category, msg := range generic {
		refs, err := decodeRefs(msg)
		if err != nil {
			return nil, fmt.Errorf("%w: category %q: %v", ErrInvalidResponse, category, err)
		}
		out[category] = refs
	}
	return out, nil
}

// decodeRefs accepts a list of strings, or a list of objects carrying an id
// or url field.
func decodeRefs(msg json.RawMessage) ([]string, error) {
	var refs []string
	if err := json.Unmarshal(msg, &refs); err == nil {
		return refs, nil
	}

	var objs []struct {
		ID  string `json:"id"`
		URL string `json:"url"`
	}
	if err := json.Unmarshal(msg, &objs); err != nil {
		return nil, err
	}
	refs = make([]string, 0, len(objs))
	for _, o := range objs {
		switch {
		case o.ID != "":
			refs = append(refs, o.ID)
		case o.URL != "":
			refs = append(refs, o.URL)
		}
	}
	return refs, nil
}
