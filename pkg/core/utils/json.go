package utils

import (
	"encoding/json"
	"fmt"
	"strings"

	jsonrepair "github.com/RealAlexandreAI/json-repair"
	hjson "github.com/hjson/hjson-go/v4"
)

// RepairJSON attempts to fix common JSON syntax errors from LLM outputs.
// Uses github.com/RealAlexandreAI/json-repair for intelligent repair.
// Supported repairs:
// - Missing quotes around keys
// - Single quotes instead of double quotes
// - Unclosed arrays/objects
// - Trailing commas
// - Leading/trailing whitespace and markdown code blocks
func RepairJSON(malformedJSON string) (string, error) {
	repaired, err := jsonrepair.RepairJSON(malformedJSON)
	if err != nil {
		return "", fmt.Errorf("JSON_REPAIR_FAILED: %v", err)
	}
	return repaired, nil
}

// StripCodeFence removes a single outer ``` or ```json fence.
func StripCodeFence(input string) string {
	s := strings.TrimSpace(input)
	if !strings.HasPrefix(s, "```") || !strings.HasSuffix(s, "```") || len(s) < 6 {
		return s
	}
	s = strings.TrimSuffix(strings.TrimPrefix(s, "```"), "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 && !strings.ContainsAny(s[:nl], "{[") {
		s = s[nl+1:] // language tag line
	}
	return strings.TrimSpace(s)
}

// DecodeJSON unmarshals input into dst. If the text is not valid JSON it is fenced-stripped
// and syntax-repaired once before a second attempt. Repair never invents fields, so callers
// still validate the decoded value.
func DecodeJSON(input string, dst interface{}) error {
	if err := json.Unmarshal([]byte(input), dst); err == nil {
		return nil
	}

	stripped := StripCodeFence(input)
	if err := json.Unmarshal([]byte(stripped), dst); err == nil {
		return nil
	}

	repaired, err := RepairJSON(stripped)
	if err != nil {
		return err
	}
	if strings.TrimSpace(repaired) == "" || repaired == `""` {
		return fmt.Errorf("JSON_REPAIR_FAILED: nothing recoverable")
	}
	if err := json.Unmarshal([]byte(repaired), dst); err != nil {
		return fmt.Errorf("JSON_STRUCTURAL_ERROR: %v", err)
	}
	return nil
}

// ParseHJSON parses Human-friendly JSON (Hjson) and returns standard JSON.
// Hjson supports:
// - Comments (# // /* */)
// - Unquoted keys
// - Unquoted strings
// - Optional commas
// - Multiline strings
func ParseHJSON(hjsonData []byte) ([]byte, error) {
	var result interface{}
	if err := hjson.Unmarshal(hjsonData, &result); err != nil {
		return nil, fmt.Errorf("HJSON_PARSE_ERROR: %v", err)
	}

	jsonBytes, err := json.Marshal(result)
	if err != nil {
		return nil, fmt.Errorf("JSON_MARSHAL_ERROR: %v", err)
	}
	return jsonBytes, nil
}
