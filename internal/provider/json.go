package provider

import (
	"encoding/json"
	"fmt"
	"regexp"
)

// jsonObject matches the outermost brace-delimited span in a response.
// Models wrap JSON in prose or code fences often enough that a single
// structural extraction step is needed before strict decoding.
var jsonObject = regexp.MustCompile(`(?s)\{.*\}`)

// ExtractJSON finds the first JSON object in blob and decodes it into v.
// Anything that doesn't contain a decodable object is a generation failure.
func ExtractJSON(blob string, v any) error {
	match := jsonObject.FindString(blob)
	if match == "" {
		return fmt.Errorf("%w: no JSON object in response", ErrGeneration)
	}
	if err := json.Unmarshal([]byte(match), v); err != nil {
		return fmt.Errorf("%w: decode response: %v", ErrGeneration, err)
	}
	return nil
}
